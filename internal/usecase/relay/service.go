package relay

import (
	"pragent/internal/bootstrap/config"
	"pragent/internal/metrics"
	"pragent/internal/ports"
)

// DispatchQueue is the async, fire-and-forget path used by ingestion.
// The synchronous ports.Dispatcher stays reserved for manual sends.
type DispatchQueue interface {
	Enqueue(deliveryID string, message ports.NotificationMessage) error
}

// Service orchestrates the pipeline: verify, normalize, persist, dispatch.
type Service struct {
	store      ports.EventStore
	uow        ports.UnitOfWork
	verifier   ports.Verifier
	formatter  ports.Formatter
	dispatcher ports.Dispatcher
	queue      DispatchQueue
	publisher  ports.Publisher
	metrics    *metrics.Metrics

	onDuplicate string
	channel     string
}

func NewService(
	store ports.EventStore,
	uow ports.UnitOfWork,
	verifier ports.Verifier,
	formatter ports.Formatter,
	dispatcher ports.Dispatcher,
	queue DispatchQueue,
	publisher ports.Publisher,
	m *metrics.Metrics,
	cfg config.Config,
) *Service {
	return &Service{
		store:       store,
		uow:         uow,
		verifier:    verifier,
		formatter:   formatter,
		dispatcher:  dispatcher,
		queue:       queue,
		publisher:   publisher,
		metrics:     m,
		onDuplicate: cfg.Dispatch.OnDuplicate,
		channel:     cfg.Slack.Channel,
	}
}

func (s *Service) countIngest(result string) {
	if s.metrics != nil {
		s.metrics.EventsReceived.WithLabelValues(result).Inc()
	}
}
