package runstate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockAcquired counts successfully acquired run locks.
	LockAcquired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parldok_run_lock_acquired_total",
			Help: "Total number of acquired run locks",
		},
	)

	// LockContended counts lock attempts that found a run in progress.
	LockContended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parldok_run_lock_contended_total",
			Help: "Total number of run lock attempts rejected because a run was in progress",
		},
	)

	// ReportsSaved counts stored run reports.
	ReportsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parldok_run_reports_saved_total",
			Help: "Total number of stored run reports",
		},
	)

	// Errors tracks Redis operation errors
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parldok_runstate_errors_total",
			Help: "Total number of run state operation errors",
		},
		[]string{"operation"}, // "save", "load", "lock", "unlock"
	)
)
