package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits requests per key under a trailing sliding window.
//
// Admission is reservation based: each caller computes the earliest instant at
// which it may proceed, records that instant while holding the key's lock and
// then sleeps outside the lock. Reservations are handed out in arrival order,
// so waiters are served FIFO and none can starve while Max is positive.
//
// Invariant: for every key, no half-open interval (t-Window, t] contains more
// than Max admissions.
type Limiter struct {
	mu           sync.RWMutex
	windows      map[string]*window
	clock        Clock
	metrics      Metrics
	defaultLimit Limit
	sleep        SleepFunc
}

// New creates a Limiter. A zero Config yields a limiter that admits
// unconfigured keys immediately and uses the system clock.
func New(cfg Config) *Limiter {
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewNoOpMetrics()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = ContextSleep
	}
	return &Limiter{
		windows:      make(map[string]*window),
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		defaultLimit: cfg.DefaultLimit,
		sleep:        cfg.Sleep,
	}
}

// Configure sets the limit for key. Admissions already recorded under the
// previous limit keep counting against the new one.
func (l *Limiter) Configure(key string, limit Limit) error {
	if err := limit.Validate(); err != nil {
		return fmt.Errorf("ratelimit: configure %s: %w", key, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.windows[key]; ok {
		w.mu.Lock()
		w.setLimit(limit)
		w.mu.Unlock()
		return nil
	}
	l.windows[key] = newWindow(limit)
	return nil
}

// Limit returns the effective limit for key.
func (l *Limiter) Limit(key string) Limit {
	w := l.window(key)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.limit
}

// Reserve books the earliest admission slot for key and returns it without
// waiting. Callers that do not end up issuing the request must Cancel the
// reservation.
func (l *Limiter) Reserve(key string) *Reservation {
	w := l.window(key)
	now := l.clock.Now()

	w.mu.Lock()
	at, spaced := w.reserve(now)
	queued := w.queued(now)
	w.mu.Unlock()

	l.metrics.SetQueued(key, queued)

	return &Reservation{
		At:     at,
		Delay:  at.Sub(now),
		key:    key,
		window: w,
		spaced: spaced,
		clock:  l.clock,
	}
}

// Admit blocks until a request for key may be issued and returns the time
// spent waiting. It fails only when ctx is done before the slot opens, in
// which case the slot is released for later callers.
func (l *Limiter) Admit(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r := l.Reserve(key)
	if r.Delay > 0 {
		if err := l.sleep(ctx, r.Delay); err != nil {
			r.Cancel()
			l.metrics.RecordCancelled(key)
			return 0, fmt.Errorf("ratelimit: waiting for %s: %w", key, err)
		}
	}

	l.metrics.RecordAdmission(key, r.Delay)
	return r.Delay, nil
}

// Count returns the number of admissions for key inside the trailing window
// ending now. Reservations scheduled in the future are not included.
func (l *Limiter) Count(key string) int {
	w := l.window(key)
	now := l.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.limit.Window)
	count := 0
	for _, s := range w.stamps {
		if s.After(cutoff) && !s.After(now) {
			count++
		}
	}
	return count
}

func (l *Limiter) window(key string) *window {
	l.mu.RLock()
	w, ok := l.windows[key]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.windows[key]; ok {
		return w
	}
	w = newWindow(l.defaultLimit)
	l.windows[key] = w
	return w
}

// Reservation is a booked admission slot.
type Reservation struct {
	// At is the instant the request may be issued.
	At time.Time

	// Delay is the wait from the moment of reservation until At.
	Delay time.Duration

	key      string
	window   *window
	spaced   *rate.Reservation
	clock    Clock
	canceled bool
}

// Cancel releases the slot so later reservations are not held back by it.
// Cancel is a no-op when called more than once.
func (r *Reservation) Cancel() {
	if r.window == nil {
		return
	}
	w := r.window
	w.mu.Lock()
	defer w.mu.Unlock()
	if r.canceled {
		return
	}
	r.canceled = true
	w.release(r.At)
	if r.spaced != nil {
		r.spaced.CancelAt(r.clock.Now())
	}
}

// window is the per-key state. stamps is sorted ascending and may hold
// instants in the future for callers still waiting on their reservation.
type window struct {
	mu     sync.Mutex
	limit  Limit
	stamps []time.Time
	spacer *rate.Limiter
}

func newWindow(limit Limit) *window {
	w := &window{}
	w.setLimit(limit)
	return w
}

func (w *window) setLimit(limit Limit) {
	w.limit = limit.withDefaults()
	w.spacer = nil
	if limit.MinInterval > 0 {
		w.spacer = rate.NewLimiter(rate.Every(limit.MinInterval), 1)
	}
}

func (w *window) reserve(now time.Time) (time.Time, *rate.Reservation) {
	if w.limit.Unlimited() {
		return now, nil
	}

	at := now
	if w.limit.Max > 0 {
		w.evict(now)
		n := len(w.stamps)
		if n >= w.limit.Max {
			if free := w.stamps[n-w.limit.Max].Add(w.limit.Window); free.After(at) {
				at = free
			}
		}
		// Never jump the queue of callers already waiting.
		if n > 0 && w.stamps[n-1].After(at) {
			at = w.stamps[n-1]
		}
	}

	var spaced *rate.Reservation
	if w.spacer != nil {
		spaced = w.spacer.ReserveN(at, 1)
		at = at.Add(spaced.DelayFrom(at))
	}

	if w.limit.Max > 0 {
		w.stamps = append(w.stamps, at)
	}
	return at, spaced
}

// evict drops stamps that cannot fall inside any window ending at or after now.
func (w *window) evict(now time.Time) {
	cutoff := now.Add(-w.limit.Window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func (w *window) release(at time.Time) {
	for i := len(w.stamps) - 1; i >= 0; i-- {
		if w.stamps[i].Equal(at) {
			w.stamps = append(w.stamps[:i], w.stamps[i+1:]...)
			return
		}
	}
}

func (w *window) queued(now time.Time) int {
	count := 0
	for i := len(w.stamps) - 1; i >= 0 && w.stamps[i].After(now); i-- {
		count++
	}
	return count
}
