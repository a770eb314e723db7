package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"pragent/internal/bootstrap/config"
	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/metrics"
	"pragent/internal/ports"
)

// RetryDispatcher delivers one message through the sender, retrying
// transient failures with capped, jittered exponential backoff up to the
// attempt ceiling. Non-retryable failures stop immediately.
type RetryDispatcher struct {
	sender      ports.Sender
	metrics     *metrics.Metrics
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	// sleep is swapped out by tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryDispatcher(sender ports.Sender, m *metrics.Metrics, cfg config.DispatchConfig) *RetryDispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	maxDelay := cfg.MaxDelay
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}

	return &RetryDispatcher{
		sender:      sender,
		metrics:     m,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		sleep:       sleepCtx,
	}
}

func (d *RetryDispatcher) Dispatch(ctx context.Context, message ports.NotificationMessage) (ports.DispatchResult, error) {
	if ctx == nil {
		return ports.DispatchResult{}, errors.New("context is required")
	}

	delays := &backoff.Backoff{
		Min:    d.baseDelay,
		Max:    d.maxDelay,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return ports.DispatchResult{Attempts: attempt - 1}, err
		}

		if d.metrics != nil {
			d.metrics.DispatchAttempts.Inc()
		}

		lastErr = d.sender.Send(ctx, message)
		if lastErr == nil {
			return ports.DispatchResult{Delivered: true, Attempts: attempt}, nil
		}

		if !isRetryable(lastErr) {
			return ports.DispatchResult{Attempts: attempt}, lastErr
		}
		if attempt == d.maxAttempts {
			break
		}

		if err := d.sleep(ctx, delays.Duration()); err != nil {
			return ports.DispatchResult{Attempts: attempt}, err
		}
	}

	return ports.DispatchResult{Attempts: d.maxAttempts},
		fmt.Errorf("%w after %d attempts: %v", domainrelay.ErrDispatchExhausted, d.maxAttempts, lastErr)
}

// isRetryable defers to the sender's classification; unclassified errors
// default to retryable so flaky transports are not given up on early.
func isRetryable(err error) bool {
	var retryable ports.RetryableError
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
