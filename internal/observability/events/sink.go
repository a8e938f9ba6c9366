// Package events defines the structured event stream emitted at each stage
// transition of a content plan invocation, and sinks that consume it.
package events

import (
	"context"
	"sync"
	"time"
)

// Type identifies a stage transition.
type Type string

const (
	// TypeAdmissionWait is emitted after the rate limiter admitted a request.
	TypeAdmissionWait Type = "admission_wait"
	// TypeRetryAttempt is emitted before each backoff sleep of the retry executor.
	TypeRetryAttempt Type = "retry_attempt"
	// TypeProviderFailed is emitted when the chain gives up on a provider.
	TypeProviderFailed Type = "provider_failed"
	// TypeFallback is emitted when the chain moves on to the next provider.
	TypeFallback Type = "fallback"
	// TypeProviderSucceeded is emitted when a provider returned output.
	TypeProviderSucceeded Type = "provider_succeeded"
	// TypeProvidersExhausted is emitted when every provider failed.
	TypeProvidersExhausted Type = "providers_exhausted"
	// TypeRecoveryStage is emitted once the recovery pipeline settled on a stage.
	TypeRecoveryStage Type = "recovery_stage"
)

// Event is one structured observability record. Only the fields relevant to
// the Type are set.
type Event struct {
	Type Type

	// Provider is the provider the event is about.
	Provider string
	// Next is the provider tried after a fallback.
	Next string

	// Attempt is the 1-based attempt number (retry_attempt) or the number of
	// attempts consumed (provider_failed).
	Attempt int
	// Kind is the error kind label of the failure, e.g. "rate_limit".
	Kind string
	// Wait is the admission wait or the retry backoff delay.
	Wait time.Duration

	// Stage is the recovery stage label.
	Stage string
	// Items is the number of content items in the recovery result.
	Items    int
	Degraded bool

	// Failures is the number of providers that failed (providers_exhausted).
	Failures int

	Err error
}

// Sink accepts structured events. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, e Event) {
	f(ctx, e)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}

// Nop returns a sink that discards every event.
func Nop() Sink {
	return nopSink{}
}

type multiSink []Sink

func (m multiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// Multi fans events out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return Nop()
	case 1:
		return out[0]
	default:
		return out
	}
}

// Recorder is a sink that keeps every event in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit stores e.
func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in emission order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
