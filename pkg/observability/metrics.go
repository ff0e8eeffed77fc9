package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the engine lifecycle hooks.
type Metrics struct {
	Units          prometheus.Counter
	Passes         *prometheus.CounterVec
	Effects        *prometheus.CounterVec
	Yields         prometheus.Counter
	HostOps        prometheus.Counter
	CommitDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered by another Metrics on the same registry are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Units: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_units_total",
			Help: "Total number of units of work performed",
		}),
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_passes_total",
			Help: "Total number of passes by outcome",
		}, []string{"outcome"}),
		Effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_effects_total",
			Help: "Total number of committed effects by kind",
		}, []string{"effect"}),
		Yields: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_yields_total",
			Help: "Total number of times a pass yielded its time slice",
		}),
		HostOps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_host_ops_total",
			Help: "Total number of host primitive calls issued by commits",
		}),
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbor_commit_duration_seconds",
			Help:    "Duration of commit phases",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.Units, err = register(reg, m.Units); err != nil {
		return nil, err
	}
	if m.Passes, err = register(reg, m.Passes); err != nil {
		return nil, err
	}
	if m.Effects, err = register(reg, m.Effects); err != nil {
		return nil, err
	}
	if m.Yields, err = register(reg, m.Yields); err != nil {
		return nil, err
	}
	if m.HostOps, err = register(reg, m.HostOps); err != nil {
		return nil, err
	}
	if m.CommitDuration, err = register(reg, m.CommitDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register metric: %w", err)
	}
	return c, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnUnit: func(ctx context.Context, e *domain.UnitEvent) {
			m.Units.Inc()
		},
		OnYield: func(ctx context.Context, e *domain.PassEvent) {
			m.Yields.Inc()
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			m.Passes.WithLabelValues("committed").Inc()
			m.Effects.WithLabelValues(domain.EffectPlace.String()).Add(float64(e.Placed))
			m.Effects.WithLabelValues(domain.EffectUpdate.String()).Add(float64(e.Updated))
			m.Effects.WithLabelValues(domain.EffectDelete.String()).Add(float64(e.Deleted))
			m.HostOps.Add(float64(e.HostOps))
			m.CommitDuration.Observe(e.Duration.Seconds())
		},
		OnAbort: func(ctx context.Context, e *domain.AbortEvent) {
			m.Passes.WithLabelValues("aborted").Inc()
		},
	}
}
