// Package observability binds Prometheus collectors to the engine's
// lifecycle hooks: mutation and rejection counters and a commit duration
// histogram, labeled by operation and error kind.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/espalier/pkg/domain"
)

// Metrics holds the engine collectors.
type Metrics struct {
	mutations      *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	commitDuration prometheus.Histogram
	commitWarnings prometheus.Counter
}

// NewMetrics creates and registers the collectors on the given
// registerer (pass prometheus.DefaultRegisterer for the global one).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "mutations_total",
			Help:      "Successful builder mutations by operation.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "rejections_total",
			Help:      "Rolled-back builder mutations by error kind.",
		}, []string{"op", "kind"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "espalier",
			Name:      "commit_duration_seconds",
			Help:      "Duration of slice commit validation.",
			Buckets:   prometheus.DefBuckets,
		}),
		commitWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "commit_warnings_total",
			Help:      "Sequencing warnings surfaced by slice commits.",
		}),
	}
	reg.MustRegister(m.mutations, m.rejections, m.commitDuration, m.commitWarnings)
	return m
}

// Hooks returns lifecycle hooks wired to the collectors, ready to pass
// to the builder or the engine facade.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMutation: func(e *domain.MutationEvent) {
			m.mutations.WithLabelValues(e.Op).Inc()
		},
		OnReject: func(e *domain.RejectEvent) {
			m.rejections.WithLabelValues(e.Op, string(e.Kind)).Inc()
		},
		OnCommit: func(e *domain.CommitEvent) {
			m.commitDuration.Observe(e.Duration.Seconds())
			m.commitWarnings.Add(float64(e.Warnings))
		},
	}
}
