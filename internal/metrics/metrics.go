// ABOUTME: Prometheus collectors for grants, revocations, the shadow store and alerts
// ABOUTME: Registered on the default registry via promauto

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Grants counts /give outcomes by result ("granted", "unauthorized", ...).
	Grants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffbot_grants_total",
			Help: "Temporary role grant attempts by result",
		},
		[]string{"kind", "result"},
	)

	// Revocations counts fired expiry timers by outcome.
	Revocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffbot_revocations_total",
			Help: "Expired grants by outcome (removed, already_removed, failed)",
		},
		[]string{"kind", "outcome"},
	)

	PendingGrants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "staffbot_pending_grants",
			Help: "Grants waiting for their expiry timer",
		},
	)

	MessagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staffbot_messages_stored_total",
			Help: "Messages written to the shadow store",
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffbot_store_errors_total",
			Help: "Shadow store failures by operation",
		},
		[]string{"op"},
	)

	MessagesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staffbot_messages_purged_total",
			Help: "Shadow store rows removed by the retention sweeper",
		},
	)

	// DeletionAlerts counts operator alerts by the data they were built from.
	DeletionAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffbot_deletion_alerts_total",
			Help: "Deletion alerts by source (stored, fallback)",
		},
		[]string{"source"},
	)

	NotifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffbot_notify_failures_total",
			Help: "Best-effort notifications that could not be delivered",
		},
		[]string{"sink"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "staffbot_command_duration_seconds",
			Help:    "Slash command handling time",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"command"},
	)
)
