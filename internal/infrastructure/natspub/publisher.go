package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"pragent/internal/bootstrap/config"
	"pragent/internal/errs"
	"pragent/internal/ports"
)

// Publisher emits persisted events and terminal dispatch outcomes on NATS
// subjects (<prefix>.events, <prefix>.dispatch) for external observers.
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// New connects to NATS when a URL is configured; otherwise it returns a
// no-op publisher so callers never branch on configuration.
func New(cfg config.NATSConfig) (ports.Publisher, error) {
	if cfg.URL == "" {
		return Noop{}, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "pragent"
	}
	return &Publisher{conn: conn, subjectPrefix: prefix}, nil
}

func (p *Publisher) PublishEvent(ctx context.Context, event ports.WebhookEvent) error {
	return p.publish(ctx, p.subjectPrefix+".events", event)
}

func (p *Publisher) PublishOutcome(ctx context.Context, outcome ports.DispatchOutcome) error {
	return p.publish(ctx, p.subjectPrefix+".dispatch", outcome)
}

func (p *Publisher) publish(ctx context.Context, subject string, payload any) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, "marshal nats payload")
	}
	if err := p.conn.Publish(subject, raw); err != nil {
		return errs.Wrapf(err, "publish to %s", subject)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	// Drain flushes buffered messages before closing.
	_ = p.conn.Drain()
}

// Noop is the publisher used when NATS is not configured.
type Noop struct{}

func (Noop) PublishEvent(context.Context, ports.WebhookEvent) error      { return nil }
func (Noop) PublishOutcome(context.Context, ports.DispatchOutcome) error { return nil }
func (Noop) Close()                                                      {}
