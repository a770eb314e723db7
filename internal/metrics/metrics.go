package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ingest result labels.
const (
	ResultAccepted     = "accepted"
	ResultDuplicate    = "duplicate"
	ResultRejected     = "rejected"
	ResultMalformed    = "malformed"
	ResultStorageError = "storage_error"
)

// Dispatch outcome labels.
const (
	OutcomeDelivered = "delivered"
	OutcomeExhausted = "exhausted"
	OutcomePermanent = "permanent"
	OutcomeQueueFull = "queue_full"
)

// Metrics holds the pipeline's prometheus collectors. One instance is
// shared by the ingestion service and the dispatch worker.
type Metrics struct {
	EventsReceived   *prometheus.CounterVec
	DispatchOutcomes *prometheus.CounterVec
	DispatchAttempts prometheus.Counter
	QueueDepth       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pragent",
			Name:      "webhook_events_received_total",
			Help:      "Inbound webhook deliveries by ingest result.",
		}, []string{"result"}),
		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pragent",
			Name:      "dispatch_outcomes_total",
			Help:      "Terminal notification dispatch outcomes.",
		}, []string{"outcome"}),
		DispatchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pragent",
			Name:      "dispatch_attempts_total",
			Help:      "Individual delivery attempts against the notification endpoint.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pragent",
			Name:      "dispatch_queue_depth",
			Help:      "Jobs waiting in the dispatch queue.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.EventsReceived, m.DispatchOutcomes, m.DispatchAttempts, m.QueueDepth)
	}
	return m
}
