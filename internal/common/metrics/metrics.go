package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_step_transitions_total",
			Help: "Wizard step transitions by outcome",
		},
		[]string{"from", "to", "outcome"},
	)

	SubmissionPhases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submission_phase_total",
			Help: "Submission pipeline phase results",
		},
		[]string{"phase", "outcome"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_submission_duration_seconds",
			Help:    "End-to-end submission pipeline duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	CatalogFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_catalog_fallback_total",
			Help: "Catalog lookups answered from the bundled static table",
		},
		[]string{"lookup"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)
