package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// ConfigMetrics tracks configuration loads of one component. Metric names are
// prefixed with the component name:
//   - {component}_config_load_timestamp
//   - {component}_config_validation_errors_total{field}
//   - {component}_config_fallbacks_total{field}
//   - {component}_config_fallback_active
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge
}

// NewConfigMetrics creates the metrics for component on the default registry.
// Calling it twice with the same component returns collectors backed by the
// already registered ones.
func NewConfigMetrics(component string) *ConfigMetrics {
	return NewConfigMetricsWith(prometheus.DefaultRegisterer, component)
}

// NewConfigMetricsWith registers the metrics on reg.
func NewConfigMetricsWith(reg prometheus.Registerer, component string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: RegisterOrReuse(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", component),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", component),
		})),
		ValidationErrorsTotal: RegisterOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", component),
			Help: fmt.Sprintf("Total number of %s configuration validation errors", component),
		}, []string{"field"})),
		FallbacksTotal: RegisterOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", component),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", component),
		}, []string{"field"})),
		FallbackActive: RegisterOrReuse(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", component),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", component),
		})),
	}
}

// RegisterOrReuse registers c on reg. If an equal collector is already
// registered, that one is returned instead. Other registration errors panic.
func RegisterOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordLoadTimestamp sets the load timestamp to now.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError counts a rejected value for field.
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback counts a default applied for field.
func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive sets the fallback gauge to 1 or 0.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}

// Tracker logs and counts the fallbacks of one configuration load.
// Metrics may be nil.
type Tracker struct {
	logger    *slog.Logger
	metrics   *ConfigMetrics
	fallbacks []string
}

// NewTracker creates a Tracker. A nil logger means slog.Default().
func NewTracker(logger *slog.Logger, metrics *ConfigMetrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger, metrics: metrics}
}

// Track returns r.Value, logging and counting the fallback if one was applied.
func Track[T any](t *Tracker, field string, r Result[T]) T {
	if r.FallbackApplied {
		t.fallbacks = append(t.fallbacks, field)
		t.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", r.Warning))
		if t.metrics != nil {
			t.metrics.RecordValidationError(field)
			t.metrics.RecordFallback(field)
		}
	}
	return r.Value
}

// Fallbacks returns the fields that fell back so far, in load order.
func (t *Tracker) Fallbacks() []string {
	return append([]string(nil), t.fallbacks...)
}

// Finish publishes the fallback gauge and the load timestamp.
func (t *Tracker) Finish() {
	if t.metrics == nil {
		return
	}
	t.metrics.SetFallbackActive(len(t.fallbacks) > 0)
	t.metrics.RecordLoadTimestamp()
}
