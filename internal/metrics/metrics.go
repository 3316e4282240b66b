// Package metrics holds the Prometheus collectors of the pipeline. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	extractions      *prometheus.CounterVec
	strategyAttempts *prometheus.CounterVec
	chunkSummaries   *prometheus.CounterVec
	generatorCalls   *prometheus.CounterVec
	reductions       *prometheus.CounterVec
	duration         *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsum_extractions_total",
				Help: "Extraction runs by winning source and result",
			},
			[]string{"source", "result"},
		),
		strategyAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsum_extraction_attempts_total",
				Help: "Extraction strategy attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		chunkSummaries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsum_chunk_summaries_total",
				Help: "Per-chunk summaries by status",
			},
			[]string{"status"},
		),
		generatorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsum_generator_calls_total",
				Help: "Text generation calls by phase and result",
			},
			[]string{"phase", "result"},
		),
		reductions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsum_reductions_total",
				Help: "Reduction steps by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsum_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 300.0},
			},
			[]string{"stage"},
		),
	}
	if reg != nil {
		reg.MustRegister(r.extractions, r.strategyAttempts, r.chunkSummaries, r.generatorCalls, r.reductions, r.duration)
	}
	return r
}

func (r *Recorder) Extraction(source string, ok bool) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(source, result(ok)).Inc()
}

// StrategyAttempt records one strategy run; outcome is accepted, rejected or error.
func (r *Recorder) StrategyAttempt(strategy, outcome string) {
	if r == nil {
		return
	}
	r.strategyAttempts.WithLabelValues(strategy, outcome).Inc()
}

func (r *Recorder) ChunkSummary(ok bool) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	r.chunkSummaries.WithLabelValues(status).Inc()
}

func (r *Recorder) GeneratorCall(phase string, ok bool) {
	if r == nil {
		return
	}
	r.generatorCalls.WithLabelValues(phase, result(ok)).Inc()
}

// Reduction records the reduction outcome: consolidated, fallback or skipped.
func (r *Recorder) Reduction(outcome string) {
	if r == nil {
		return
	}
	r.reductions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveStage(stage string, started time.Time) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
