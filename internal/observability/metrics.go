package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	actionsConfirmed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breaktime_tracker",
		Subsystem: "engine",
		Name:      "actions_confirmed_total",
		Help:      "Break actions accepted and recorded, by category and action.",
	}, []string{"category", "action"})

	actionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breaktime_tracker",
		Subsystem: "engine",
		Name:      "actions_rejected_total",
		Help:      "Break actions rejected by session validation, by reason.",
	}, []string{"reason"})

	persistenceFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "breaktime_tracker",
		Subsystem: "engine",
		Name:      "persistence_failures_total",
		Help:      "Accepted actions whose record append failed.",
	})

	sheetSyncFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "breaktime_tracker",
		Subsystem: "sync",
		Name:      "sheet_sync_failures_total",
		Help:      "Records that could not be mirrored to Excel Online.",
	})

	sheetSyncDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "breaktime_tracker",
		Subsystem: "sync",
		Name:      "sheet_sync_dropped_total",
		Help:      "Records dropped because the sync queue was full.",
	})
)

func init() {
	prometheus.MustRegister(
		actionsConfirmed,
		actionsRejected,
		persistenceFailures,
		sheetSyncFailures,
		sheetSyncDropped,
	)
}

// RecordActionConfirmed counts an accepted OUT or BACK action.
func RecordActionConfirmed(category, action string) {
	actionsConfirmed.WithLabelValues(category, action).Inc()
}

// RecordActionRejected counts a validation rejection.
func RecordActionRejected(reason string) {
	actionsRejected.WithLabelValues(reason).Inc()
}

// RecordPersistenceFailure counts a failed record append.
func RecordPersistenceFailure() {
	persistenceFailures.Inc()
}

// RecordSheetSyncFailure counts a failed Excel Online mirror attempt.
func RecordSheetSyncFailure() {
	sheetSyncFailures.Inc()
}

// RecordSheetSyncDropped counts a record dropped from the sync queue.
func RecordSheetSyncDropped() {
	sheetSyncDropped.Inc()
}
