package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"

	"content-agent/internal/resilience/retry"
	"content-agent/internal/usecase/content"
)

// anthropicQuotaMarkers appear in 400 responses when the account has run out
// of credit. Anthropic reports that as an invalid request, not as 402.
var anthropicQuotaMarkers = []string{"credit balance is too low", "billing_error"}

// classifyAnthropic converts an SDK error into a *content.ProviderError.
func classifyAnthropic(name string, err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return &content.ProviderError{Provider: name, Kind: retry.KindOf(err), Err: fmt.Errorf("claude api error: %w", err)}
	}

	kind := retry.KindFromStatus(apiErr.StatusCode)
	if apiErr.StatusCode == http.StatusBadRequest && containsAny(apiErr.Error(), anthropicQuotaMarkers) {
		kind = retry.KindQuota
	}

	var hint time.Duration
	if apiErr.Response != nil {
		hint = parseRetryAfter(apiErr.Response.Header, time.Now())
	}
	return &content.ProviderError{
		Provider:   name,
		Kind:       kind,
		RetryAfter: hint,
		Err:        fmt.Errorf("claude api error: %w", err),
	}
}

// classifyOpenAI converts a go-openai error into a *content.ProviderError.
// quotaCodes are the vendor error codes that mean the account is exhausted.
func classifyOpenAI(name string, quotaCodes []string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := retry.KindFromStatus(apiErr.HTTPStatusCode)
		code := fmt.Sprint(apiErr.Code)
		for _, q := range quotaCodes {
			if code == q || apiErr.Type == q {
				kind = retry.KindQuota
			}
		}
		return &content.ProviderError{Provider: name, Kind: kind, Err: fmt.Errorf("%s api error: %w", name, err)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &content.ProviderError{
			Provider: name,
			Kind:     retry.KindFromStatus(reqErr.HTTPStatusCode),
			Err:      fmt.Errorf("%s api error: %w", name, err),
		}
	}

	return &content.ProviderError{Provider: name, Kind: retry.KindOf(err), Err: fmt.Errorf("%s api error: %w", name, err)}
}

// parseRetryAfter reads retry-after-ms or retry-after (seconds or HTTP date).
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := h.Get("Retry-After-Ms"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func containsAny(s string, markers []string) bool {
	s = strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
