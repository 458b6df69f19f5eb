// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instrumentation for the query
// pipeline. A nil *Pipeline is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage status labels.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// Pipeline holds the collectors for one orchestrator.
type Pipeline struct {
	stageDuration *prometheus.HistogramVec
	papers        *prometheus.HistogramVec
	fetchShrinks  prometheus.Counter
}

// NewPipeline registers the pipeline collectors with reg. Use
// prometheus.DefaultRegisterer in the binary and a fresh registry in tests.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "icite_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
		}, []string{"stage", "status"}),

		papers: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "icite_pipeline_papers",
			Help:    "Number of papers produced by each pipeline stage",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 500},
		}, []string{"stage"}),

		fetchShrinks: f.NewCounter(prometheus.CounterOpts{
			Name: "icite_pipeline_fetch_shrinks_total",
			Help: "Times the full-text fetch list was shortened after a failure",
		}),
	}
}

// ObserveStage records how long stage took and how it ended.
func (p *Pipeline) ObserveStage(stage, status string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// ObservePapers records the number of papers a stage produced.
func (p *Pipeline) ObservePapers(stage string, n int) {
	if p == nil {
		return
	}
	p.papers.WithLabelValues(stage).Observe(float64(n))
}

// IncFetchShrink counts one degradation step of the full-text fetch.
func (p *Pipeline) IncFetchShrink() {
	if p == nil {
		return
	}
	p.fetchShrinks.Inc()
}
