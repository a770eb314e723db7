package ports

import "context"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// NotificationMessage is ephemeral: derived from a stored event (or typed
// manually), never persisted.
type NotificationMessage struct {
	ChannelTarget string
	Title         string
	Body          string
	Severity      Severity
}

type DispatchResult struct {
	Delivered bool
	Attempts  int
}

// Formatter renders a stored event into a channel-specific message.
// Implementations are pure and must not fail on missing payload fields.
type Formatter interface {
	Format(event WebhookEvent) NotificationMessage
}

// Dispatcher delivers a message to the configured outbound endpoint,
// retrying transient failures up to a fixed ceiling.
type Dispatcher interface {
	Dispatch(ctx context.Context, message NotificationMessage) (DispatchResult, error)
}

// Sender performs a single delivery attempt. Errors may implement
// RetryableError to steer the dispatcher's retry decision.
type Sender interface {
	Send(ctx context.Context, message NotificationMessage) error
}

type RetryableError interface {
	error
	Retryable() bool
}
