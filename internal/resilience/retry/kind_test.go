package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain error", err: errors.New("boom"), want: KindUnknown},
		{name: "classified", err: &kindError{kind: KindQuota}, want: KindQuota},
		{name: "wrapped classified", err: fmt.Errorf("call: %w", &kindError{kind: KindAuth}), want: KindAuth},
		{name: "deadline", err: context.DeadlineExceeded, want: KindNetwork},
		{name: "wrapped deadline", err: fmt.Errorf("invoke: %w", context.DeadlineExceeded), want: KindNetwork},
		{name: "canceled", err: context.Canceled, want: KindUnknown},
		{name: "net timeout", err: timeoutError{}, want: KindNetwork},
		{name: "connection refused", err: syscall.ECONNREFUSED, want: KindNetwork},
		{name: "connection reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: KindNetwork},
		{name: "op error", err: &net.OpError{Op: "dial", Err: errors.New("no route")}, want: KindNetwork},
		{name: "http 429", err: &HTTPError{StatusCode: 429}, want: KindRateLimit},
		{name: "http 404", err: &HTTPError{StatusCode: 404}, want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{200, KindUnknown},
		{400, KindUnknown},
		{401, KindAuth},
		{402, KindQuota},
		{403, KindAuth},
		{404, KindUnknown},
		{408, KindNetwork},
		{429, KindRateLimit},
		{500, KindNetwork},
		{502, KindNetwork},
		{503, KindNetwork},
		{529, KindNetwork},
		{600, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, KindFromStatus(tt.code))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "network", KindNetwork.String())
	assert.Equal(t, "rate_limit", KindRateLimit.String())
	assert.Equal(t, "quota", KindQuota.String())
	assert.Equal(t, "auth", KindAuth.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{StatusCode: 503, Message: "Service Unavailable"}
	assert.Equal(t, "HTTP 503: Service Unavailable", err.Error())
	assert.Equal(t, KindNetwork, err.ErrorKind())
}
