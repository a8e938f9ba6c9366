package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-agent/internal/observability/logging"
	"content-agent/internal/observability/metrics"
)

func TestMulti(t *testing.T) {
	first, second := NewRecorder(), NewRecorder()
	sink := Multi(first, nil, second)

	sink.Emit(context.Background(), Event{Type: TypeFallback, Provider: "claude", Next: "openai"})

	assert.Equal(t, []Type{TypeFallback}, first.Types())
	assert.Equal(t, []Type{TypeFallback}, second.Types())
}

func TestMulti_Degenerate(t *testing.T) {
	assert.Equal(t, Nop(), Multi())
	assert.Equal(t, Nop(), Multi(nil, nil))

	only := NewRecorder()
	assert.Same(t, only, Multi(only))
}

func TestSinkFunc(t *testing.T) {
	var got Event
	sink := SinkFunc(func(_ context.Context, e Event) { got = e })

	sink.Emit(context.Background(), Event{Type: TypeProviderSucceeded, Provider: "deepseek"})

	assert.Equal(t, "deepseek", got.Provider)
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Emit(context.Background(), Event{Type: TypeAdmissionWait})
		}()
	}
	wg.Wait()
	rec.Emit(context.Background(), Event{Type: TypeRecoveryStage})

	assert.Len(t, rec.Events(), 21)
	assert.Len(t, rec.OfType(TypeAdmissionWait), 20)
	assert.Len(t, rec.OfType(TypeRecoveryStage), 1)
	assert.Empty(t, rec.OfType(TypeFallback))
}

func TestLogSink_Emit(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		wantLevel string
		wantMsg   string
		wantAttrs map[string]interface{}
	}{
		{
			name:      "admission wait",
			event:     Event{Type: TypeAdmissionWait, Provider: "claude", Wait: 2 * time.Second},
			wantLevel: "INFO",
			wantMsg:   "rate limiter admitted request",
			wantAttrs: map[string]interface{}{"provider": "claude", "wait": float64(2 * time.Second)},
		},
		{
			name:      "immediate admission is debug",
			event:     Event{Type: TypeAdmissionWait, Provider: "claude"},
			wantLevel: "DEBUG",
			wantMsg:   "rate limiter admitted request",
		},
		{
			name:      "retry attempt",
			event:     Event{Type: TypeRetryAttempt, Provider: "openai", Attempt: 2, Kind: "rate_limit", Wait: time.Second},
			wantLevel: "WARN",
			wantMsg:   "retrying provider call",
			wantAttrs: map[string]interface{}{"attempt": float64(2), "error_kind": "rate_limit"},
		},
		{
			name:      "fallback",
			event:     Event{Type: TypeFallback, Provider: "claude", Next: "deepseek"},
			wantLevel: "WARN",
			wantMsg:   "falling back to next provider",
			wantAttrs: map[string]interface{}{"next_provider": "deepseek"},
		},
		{
			name:      "exhausted",
			event:     Event{Type: TypeProvidersExhausted, Failures: 3, Err: errors.New("all providers exhausted")},
			wantLevel: "ERROR",
			wantMsg:   "all providers exhausted",
			wantAttrs: map[string]interface{}{"failures": float64(3), "error": "all providers exhausted"},
		},
		{
			name:      "degraded recovery",
			event:     Event{Type: TypeRecoveryStage, Stage: "synthesized", Items: 5, Degraded: true},
			wantLevel: "WARN",
			wantMsg:   "recovery stage reached",
			wantAttrs: map[string]interface{}{"stage": "synthesized", "items": float64(5), "degraded": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			sink := NewLogSink(logger)
			ctx := logging.WithInvocationID(context.Background(), "inv-1")

			// Act
			sink.Emit(ctx, tt.event)

			// Assert
			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["msg"])
			assert.Equal(t, string(tt.event.Type), entry["event"])
			assert.Equal(t, "inv-1", entry["invocation_id"])
			for k, v := range tt.wantAttrs {
				assert.Equal(t, v, entry[k], "attribute %s", k)
			}
		})
	}
}

func TestLogSink_ContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := logging.WithInvocationID(logging.WithLogger(context.Background(), logger), "inv-ctx")

	NewLogSink(nil).Emit(ctx, Event{Type: TypeProviderSucceeded, Provider: "zai"})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "inv-ctx"))
	assert.Contains(t, out, `"provider":"zai"`)
}

func TestLogSink_RedactsErrors(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{
			name:  "provider failed",
			event: Event{Type: TypeProviderFailed, Provider: "openai", Attempt: 1, Kind: "auth"},
		},
		{
			name:  "retry attempt",
			event: Event{Type: TypeRetryAttempt, Provider: "openai", Attempt: 1, Kind: "network"},
		},
		{
			name:  "providers exhausted",
			event: Event{Type: TypeProvidersExhausted, Failures: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			tt.event.Err = errors.New("401: Incorrect API key provided: sk-abcdefghijklmnopqrstuvwx")

			NewLogSink(logger).Emit(context.Background(), tt.event)

			out := buf.String()
			assert.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwx")
			assert.Contains(t, out, `"error":"401: Incorrect API key provided: sk-****"`)
		})
	}
}

func TestMetricsSink_Emit(t *testing.T) {
	sink := NewMetricsSink()
	ctx := context.Background()

	retriesBefore := testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues("events-test", "network"))
	failuresBefore := testutil.ToFloat64(metrics.ProviderFailuresTotal.WithLabelValues("events-test", "auth"))
	stageBefore := testutil.ToFloat64(metrics.RecoveryStageTotal.WithLabelValues("partial_extraction"))

	sink.Emit(ctx, Event{Type: TypeRetryAttempt, Provider: "events-test", Kind: "network"})
	sink.Emit(ctx, Event{Type: TypeProviderFailed, Provider: "events-test", Kind: "auth"})
	sink.Emit(ctx, Event{Type: TypeRecoveryStage, Stage: "partial_extraction", Items: 1, Degraded: true})
	sink.Emit(ctx, Event{Type: TypeAdmissionWait, Provider: "events-test"})

	assert.Equal(t, retriesBefore+1, testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues("events-test", "network")))
	assert.Equal(t, failuresBefore+1, testutil.ToFloat64(metrics.ProviderFailuresTotal.WithLabelValues("events-test", "auth")))
	assert.Equal(t, stageBefore+1, testutil.ToFloat64(metrics.RecoveryStageTotal.WithLabelValues("partial_extraction")))
}
