package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classification outcomes
const (
	OutcomeAccepted    = "accepted"
	OutcomeRejected    = "rejected"
	OutcomeBlacklisted = "blacklisted"
)

// Notification statuses
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

var (
	MessagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "g2sms_messages_fetched_total",
			Help: "Total number of messages fetched from the mail source",
		},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "g2sms_classifications_total",
			Help: "Total number of classification decisions by outcome",
		},
		[]string{"outcome"},
	)

	CriteriaMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "g2sms_criteria_matched_total",
			Help: "Total number of whitelist criteria matched by accepted messages",
		},
		[]string{"criterion"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "g2sms_notifications_total",
			Help: "Total number of notifications by status",
		},
		[]string{"status"},
	)

	EmptyExtractions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "g2sms_empty_extractions_total",
			Help: "Total number of messages with no extractable text",
		},
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "g2sms_pass_duration_seconds",
			Help:    "Duration of a full sync pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
