package ratelimit

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockClock implements Clock interface for testing
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// advancingSleep returns a SleepFunc that moves the mock clock instead of sleeping.
func advancingSleep(clock *MockClock) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.Advance(d)
		return nil
	}
}

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// assertWindowInvariant checks that no interval (t-window, t] holds more than max stamps.
func assertWindowInvariant(t *testing.T, stamps []time.Time, max int, window time.Duration) {
	t.Helper()
	sorted := append([]time.Time(nil), stamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for i, end := range sorted {
		start := end.Add(-window)
		count := 0
		for j := i; j >= 0 && sorted[j].After(start); j-- {
			count++
		}
		// Equal stamps after i belong to the same window end.
		for j := i + 1; j < len(sorted) && sorted[j].Equal(end); j++ {
			count++
		}
		require.LessOrEqualf(t, count, max, "window ending %v holds %d admissions", end, count)
	}
}

func TestLimiter_AdmitWaitsForOldestStamp(t *testing.T) {
	// Arrange
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock, Sleep: advancingSleep(clock)})
	require.NoError(t, limiter.Configure("claude", Limit{Max: 2, Window: time.Minute}))

	// Act
	var waits []time.Duration
	for i := 0; i < 5; i++ {
		wait, err := limiter.Admit(context.Background(), "claude")
		require.NoError(t, err)
		waits = append(waits, wait)
	}

	// Assert
	assert.Equal(t, []time.Duration{0, 0, time.Minute, 0, time.Minute}, waits)
	assert.Equal(t, epoch.Add(2*time.Minute), clock.Now())
}

func TestLimiter_WaitMatchesOldestTimestamp(t *testing.T) {
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock, Sleep: advancingSleep(clock)})
	require.NoError(t, limiter.Configure("openai", Limit{Max: 1, Window: 60 * time.Second}))

	_, err := limiter.Admit(context.Background(), "openai")
	require.NoError(t, err)

	clock.Advance(45 * time.Second)

	wait, err := limiter.Admit(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, wait)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock, Sleep: advancingSleep(clock)})
	require.NoError(t, limiter.Configure("a", Limit{Max: 1, Window: time.Hour}))
	require.NoError(t, limiter.Configure("b", Limit{Max: 1, Window: time.Hour}))

	first := limiter.Reserve("a")
	other := limiter.Reserve("b")
	second := limiter.Reserve("a")

	assert.Zero(t, first.Delay)
	assert.Zero(t, other.Delay)
	assert.Equal(t, time.Hour, second.Delay)
}

func TestLimiter_UnconfiguredKeyUsesDefault(t *testing.T) {
	clock := NewMockClock(epoch)

	t.Run("zero default admits immediately", func(t *testing.T) {
		limiter := New(Config{Clock: clock})
		for i := 0; i < 100; i++ {
			assert.Zero(t, limiter.Reserve("scripted").Delay)
		}
	})

	t.Run("explicit default applies", func(t *testing.T) {
		limiter := New(Config{Clock: clock, DefaultLimit: Limit{Max: 1}})
		limiter.Reserve("scripted")
		assert.Equal(t, DefaultWindow, limiter.Reserve("scripted").Delay)
		assert.Equal(t, DefaultWindow, limiter.Limit("scripted").Window)
	})
}

func TestLimiter_ReservationsAreFIFO(t *testing.T) {
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock})
	require.NoError(t, limiter.Configure("p", Limit{Max: 2, Window: time.Minute}))

	var ats []time.Time
	for i := 0; i < 7; i++ {
		ats = append(ats, limiter.Reserve("p").At)
	}

	for i := 1; i < len(ats); i++ {
		assert.False(t, ats[i].Before(ats[i-1]), "reservation %d scheduled before %d", i, i-1)
	}
	assert.Equal(t, epoch.Add(3*time.Minute), ats[6])
	assertWindowInvariant(t, ats, 2, time.Minute)
}

func TestLimiter_WindowInvariantUnderRandomArrivals(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- deterministic test input
		clock := NewMockClock(epoch)
		limiter := New(Config{Clock: clock})
		max := 1 + rng.Intn(5)
		window := time.Duration(1+rng.Intn(30)) * time.Second
		require.NoError(t, limiter.Configure("p", Limit{Max: max, Window: window}))

		var ats []time.Time
		for i := 0; i < 200; i++ {
			clock.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)
			r := limiter.Reserve("p")
			if rng.Intn(10) == 0 {
				r.Cancel()
				continue
			}
			ats = append(ats, r.At)
		}

		assertWindowInvariant(t, ats, max, window)
	}
}

func TestLimiter_ConcurrentReserve(t *testing.T) {
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock})
	require.NoError(t, limiter.Configure("p", Limit{Max: 3, Window: 10 * time.Second}))

	const callers = 50
	var (
		mu  sync.Mutex
		ats []time.Time
		wg  sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := limiter.Reserve("p")
			mu.Lock()
			ats = append(ats, r.At)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ats, callers)
	assertWindowInvariant(t, ats, 3, 10*time.Second)

	// 50 callers at 3 per window need 16 further windows.
	latest := ats[0]
	for _, at := range ats {
		if at.After(latest) {
			latest = at
		}
	}
	assert.Equal(t, epoch.Add(16*10*time.Second), latest)
}

func TestLimiter_AdmitCancelled(t *testing.T) {
	t.Run("already cancelled context does not reserve", func(t *testing.T) {
		clock := NewMockClock(epoch)
		limiter := New(Config{Clock: clock})
		require.NoError(t, limiter.Configure("p", Limit{Max: 1, Window: time.Hour}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := limiter.Admit(ctx, "p")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, limiter.Reserve("p").Delay)
	})

	t.Run("cancel while waiting releases the slot", func(t *testing.T) {
		clock := NewMockClock(epoch)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		limiter := New(Config{
			Clock: clock,
			Sleep: func(ctx context.Context, d time.Duration) error {
				cancel()
				<-ctx.Done()
				return ctx.Err()
			},
		})
		require.NoError(t, limiter.Configure("p", Limit{Max: 1, Window: time.Hour}))

		_, err := limiter.Admit(context.Background(), "p")
		require.NoError(t, err)

		_, err = limiter.Admit(ctx, "p")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))

		// The abandoned slot at +1h is free again.
		assert.Equal(t, time.Hour, limiter.Reserve("p").Delay)
		assert.Equal(t, 1, limiter.Count("p"))
	})
}

func TestReservation_CancelIsIdempotent(t *testing.T) {
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock})
	require.NoError(t, limiter.Configure("p", Limit{Max: 1, Window: time.Minute}))

	limiter.Reserve("p")
	second := limiter.Reserve("p")
	third := limiter.Reserve("p")
	require.Equal(t, 2*time.Minute, third.Delay)

	second.Cancel()
	second.Cancel()

	// third still holds its slot, so the next one queues behind it.
	assert.Equal(t, 3*time.Minute, limiter.Reserve("p").Delay)
}

func TestLimiter_MinInterval(t *testing.T) {
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock, Sleep: advancingSleep(clock)})
	require.NoError(t, limiter.Configure("gemini", Limit{MinInterval: 2 * time.Second}))

	first, err := limiter.Admit(context.Background(), "gemini")
	require.NoError(t, err)
	second, err := limiter.Admit(context.Background(), "gemini")
	require.NoError(t, err)

	assert.Zero(t, first)
	assert.Equal(t, 2*time.Second, second)
}

func TestLimiter_ConfigureKeepsHistory(t *testing.T) {
	clock := NewMockClock(epoch)
	limiter := New(Config{Clock: clock})
	require.NoError(t, limiter.Configure("p", Limit{Max: 5, Window: time.Minute}))

	limiter.Reserve("p")
	limiter.Reserve("p")
	require.NoError(t, limiter.Configure("p", Limit{Max: 2, Window: time.Minute}))

	assert.Equal(t, 2, limiter.Count("p"))
	assert.Equal(t, time.Minute, limiter.Reserve("p").Delay)
}

func TestLimit_Validate(t *testing.T) {
	tests := []struct {
		name    string
		limit   Limit
		wantErr bool
	}{
		{name: "zero value", limit: Limit{}},
		{name: "typical", limit: Limit{Max: 50, Window: time.Minute}},
		{name: "negative window", limit: Limit{Max: 1, Window: -time.Second}, wantErr: true},
		{name: "negative spacing", limit: Limit{MinInterval: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.limit.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, New(Config{}).Configure("p", tt.limit))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLimiter_RealClock(t *testing.T) {
	limiter := New(Config{})
	require.NoError(t, limiter.Configure("p", Limit{Max: 1, Window: 50 * time.Millisecond}))

	start := time.Now()
	_, err := limiter.Admit(context.Background(), "p")
	require.NoError(t, err)
	_, err = limiter.Admit(context.Background(), "p")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestContextSleep(t *testing.T) {
	assert.NoError(t, ContextSleep(context.Background(), time.Millisecond))
	assert.NoError(t, ContextSleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ContextSleep(ctx, time.Hour), context.Canceled)
}
