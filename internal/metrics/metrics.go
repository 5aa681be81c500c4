// Package metrics feeds Prometheus from the engine's hooks.
package metrics

import (
	"context"
	"time"

	"github.com/ardelane/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported by a running bot.
type Metrics struct {
	dispatches   *prometheus.CounterVec
	dispatchTime *prometheus.HistogramVec
	jumps        *prometheus.CounterVec
	lockWait     prometheus.Histogram
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_dispatches_total",
				Help: "Total number of dispatch cycles, by platform and outcome",
			},
			[]string{"platform", "result"},
		),
		dispatchTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "parley_dispatch_duration_seconds",
				Help: "Duration of full dispatch cycles, lock wait included",
			},
			[]string{"platform"},
		),
		jumps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_internal_jumps_total",
				Help: "Total number of internal state jumps, by destination",
			},
			[]string{"to"},
		),
		lockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "parley_register_lock_wait_seconds",
				Help: "Time spent waiting for a conversation's register lock",
			},
		),
	}
	reg.MustRegister(m.dispatches, m.dispatchTime, m.jumps, m.lockWait)
	return m
}

// Hooks returns engine hooks that record into the collectors.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			m.dispatches.WithLabelValues(e.Platform, string(e.Result)).Inc()
			m.dispatchTime.WithLabelValues(e.Platform).Observe(e.Duration.Seconds())
		},
		OnJump: func(ctx context.Context, e *domain.JumpEvent) {
			m.jumps.WithLabelValues(e.To).Inc()
		},
		OnLockWait: m.LockWait(),
	}
}

// LockWait returns the register store's wait hook.
func (m *Metrics) LockWait() func(ctx context.Context, conversation string, wait time.Duration) {
	return func(ctx context.Context, conversation string, wait time.Duration) {
		m.lockWait.Observe(wait.Seconds())
	}
}
