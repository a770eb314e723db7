package ports

import "context"

// Publisher fans persisted events and terminal dispatch outcomes out to
// external observers. Implementations must be safe to call from multiple
// goroutines; publishing is best-effort and never blocks ingestion.
type Publisher interface {
	PublishEvent(ctx context.Context, event WebhookEvent) error
	PublishOutcome(ctx context.Context, outcome DispatchOutcome) error
	Close()
}
