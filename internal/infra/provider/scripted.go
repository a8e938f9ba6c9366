package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"content-agent/internal/resilience/retry"
	"content-agent/internal/usecase/content"
)

const scriptErrorPrefix = "error:"

// Step is one scripted response.
type Step struct {
	Output string
	Err    error
}

// Scripted replays a fixed sequence of responses. The last step repeats once
// the script is used up. It is safe for concurrent use.
type Scripted struct {
	name  string
	steps []Step

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewScripted creates a scripted provider. With no steps it echoes an empty
// JSON array, which the recovery pipeline turns into synthesized items.
func NewScripted(name string, steps ...Step) *Scripted {
	if len(steps) == 0 {
		steps = []Step{{Output: "[]"}}
	}
	return &Scripted{name: name, steps: steps}
}

// NewScriptedFromConfig builds the steps from cfg.Script.
func NewScriptedFromConfig(cfg Config) (*Scripted, error) {
	steps := make([]Step, 0, len(cfg.Script))
	for i, entry := range cfg.Script {
		if !strings.HasPrefix(entry, scriptErrorPrefix) {
			steps = append(steps, Step{Output: entry})
			continue
		}
		label := strings.TrimSpace(strings.TrimPrefix(entry, scriptErrorPrefix))
		if status, err := strconv.Atoi(label); err == nil {
			// error:<status> replays an HTTP failure classified by its status code.
			httpErr := &retry.HTTPError{StatusCode: status, Message: http.StatusText(status)}
			steps = append(steps, Step{Err: &content.ProviderError{
				Provider: cfg.Name,
				Kind:     retry.KindOf(httpErr),
				Err:      httpErr,
			}})
			continue
		}
		kind, err := ParseKind(label)
		if err != nil {
			return nil, fmt.Errorf("provider %s: script entry %d: %w", cfg.Name, i, err)
		}
		steps = append(steps, Step{Err: &content.ProviderError{
			Provider: cfg.Name,
			Kind:     kind,
			Err:      errors.New("scripted failure"),
		}})
	}
	return NewScripted(cfg.Name, steps...), nil
}

// Name returns the provider name.
func (s *Scripted) Name() string {
	return s.name
}

// Invoke returns the next scripted step.
func (s *Scripted) Invoke(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &content.ProviderError{Provider: s.name, Kind: retry.KindOf(err), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.steps[i].Output, s.steps[i].Err
}

// Calls returns how many times Invoke was called.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Prompts returns the prompts received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// ParseKind parses an error kind label such as "rate_limit" or "quota".
func ParseKind(label string) (retry.Kind, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, k := range []retry.Kind{retry.KindUnknown, retry.KindNetwork, retry.KindRateLimit, retry.KindQuota, retry.KindAuth} {
		if k.String() == label {
			return k, nil
		}
	}
	return retry.KindUnknown, fmt.Errorf("unknown error kind %q", label)
}
