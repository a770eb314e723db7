package ports

import (
	"context"
	"errors"
)

// WebhookEvent is the canonical persisted unit: one normalized GitHub
// webhook delivery. Timestamps are UTC strings with a fixed-width
// fractional second so string order matches time order.
type WebhookEvent struct {
	EventID      uint64
	DeliveryID   string
	EventType    string
	Repository   string
	Action       string
	Status       string
	Sender       string
	WorkflowName string
	RunURL       string
	RunNumber    int64
	Branch       string
	PayloadJSON  string
	Verified     bool
	ReceivedAt   string
}

// EventFilter narrows a Query. Zero values mean "no filter"; Limit <= 0
// falls back to the store default.
type EventFilter struct {
	EventType  string
	Repository string
	Since      string
	Limit      int
}

type StoreResult struct {
	Inserted bool
}

// DispatchOutcome is the terminal result of notification dispatch for one
// delivery, recorded against the originating event.
type DispatchOutcome struct {
	DeliveryID string
	Delivered  bool
	Attempts   int
	LastError  string
	FinishedAt string
}

var ErrOutcomeNotFound = errors.New("dispatch outcome not found")

type EventStore interface {
	// Upsert persists an event idempotently on DeliveryID. A duplicate
	// delivery reports Inserted=false and leaves the stored row untouched.
	Upsert(ctx context.Context, event WebhookEvent) (StoreResult, error)

	// Query returns events newest first.
	Query(ctx context.Context, filter EventFilter) ([]WebhookEvent, error)

	RecordDispatchOutcome(ctx context.Context, outcome DispatchOutcome) error
	GetDispatchOutcome(ctx context.Context, deliveryID string) (DispatchOutcome, error)

	Health(ctx context.Context) error
}
