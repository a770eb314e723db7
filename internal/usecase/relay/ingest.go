package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pragent/internal/bootstrap/config"
	"pragent/internal/bootstrap/logging"
	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/errs"
	"pragent/internal/metrics"
	"pragent/internal/ports"
)

type IngestInput struct {
	DeliveryID string
	EventType  string
	Signature  string
	Body       []byte
}

type IngestResult struct {
	DeliveryID string
	EventType  string
	Repository string
	Inserted   bool
	Duplicate  bool
	Verified   bool
	Enqueued   bool
}

// Ingest runs the pipeline for one inbound delivery: verify signature,
// normalize, persist idempotently, then hand the notification to the
// background queue. Persistence strictly happens-before dispatch; the
// dispatch outcome never affects the result returned here.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (IngestResult, error) {
	if ctx == nil {
		return IngestResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return IngestResult{}, errs.Wrap(err, "check context")
	}
	if s.store == nil {
		return IngestResult{}, errors.New("event store is required")
	}
	if s.verifier == nil {
		return IngestResult{}, errors.New("verifier is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "relay.ingest"),
		slog.String("event_type", input.EventType),
		slog.String("delivery_id", input.DeliveryID),
	)

	verification := s.verifier.Verify(input.Body, input.Signature)
	if !verification.Valid {
		s.countIngest(metrics.ResultRejected)
		logging.Warn(logCtx, "webhook signature rejected", slog.String("reason", verification.Reason))
		return IngestResult{}, errs.Wrap(domainrelay.ErrVerificationFailed, verification.Reason)
	}
	if verification.Skipped {
		// Audit trail: unverified mode must never look like a verified
		// request downstream.
		logging.Warn(logCtx, "webhook accepted without signature verification",
			slog.String("reason", verification.Reason))
	}

	normalized, err := domainrelay.Normalize(input.EventType, input.Body)
	if err != nil {
		s.countIngest(metrics.ResultMalformed)
		logging.Warn(logCtx, "webhook payload rejected", slog.Any("err", errs.Loggable(err)))
		return IngestResult{}, err
	}

	deliveryID := strings.TrimSpace(input.DeliveryID)
	if deliveryID == "" {
		// No delivery header: fall back to a content hash so identical
		// replays still dedup.
		deliveryID = derivedDeliveryID(input.Body)
	}

	event := ports.WebhookEvent{
		DeliveryID:   deliveryID,
		EventType:    normalized.EventType,
		Repository:   normalized.Repository,
		Action:       normalized.Action,
		Status:       normalized.Status,
		Sender:       normalized.Sender,
		WorkflowName: normalized.WorkflowName,
		RunURL:       normalized.RunURL,
		RunNumber:    normalized.RunNumber,
		Branch:       normalized.Branch,
		PayloadJSON:  string(input.Body),
		Verified:     !verification.Skipped,
		ReceivedAt:   domainrelay.FormatTime(time.Now()),
	}

	stored, err := s.store.Upsert(ctx, event)
	if err != nil {
		s.countIngest(metrics.ResultStorageError)
		logging.Error(logCtx, "persist webhook event failed", slog.Any("err", errs.Loggable(err)))
		return IngestResult{}, err
	}

	result := IngestResult{
		DeliveryID: deliveryID,
		EventType:  event.EventType,
		Repository: event.Repository,
		Inserted:   stored.Inserted,
		Duplicate:  !stored.Inserted,
		Verified:   event.Verified,
	}

	if stored.Inserted {
		s.countIngest(metrics.ResultAccepted)
		if s.publisher != nil {
			if pubErr := s.publisher.PublishEvent(ctx, event); pubErr != nil {
				logging.Warn(logCtx, "publish event failed", slog.Any("err", errs.Loggable(pubErr)))
			}
		}
	} else {
		s.countIngest(metrics.ResultDuplicate)
		logging.Info(logCtx, "duplicate delivery ignored")
	}

	if s.shouldDispatch(stored.Inserted) {
		result.Enqueued = s.enqueueNotification(logCtx, event)
	}

	logging.Info(logCtx, "webhook event processed",
		slog.String("repository", event.Repository),
		slog.String("status", event.Status),
		slog.Bool("inserted", stored.Inserted),
		slog.Bool("enqueued", result.Enqueued),
	)
	return result, nil
}

// shouldDispatch applies the explicit duplicate policy: fresh inserts
// always notify; replays only under the resend policy.
func (s *Service) shouldDispatch(inserted bool) bool {
	if s.queue == nil || s.formatter == nil {
		return false
	}
	if inserted {
		return true
	}
	return s.onDuplicate == config.OnDuplicateResend
}

func (s *Service) enqueueNotification(ctx context.Context, event ports.WebhookEvent) bool {
	message := s.formatter.Format(event)

	if err := s.queue.Enqueue(event.DeliveryID, message); err != nil {
		logging.Error(ctx, "enqueue notification failed", slog.Any("err", errs.Loggable(err)))

		if s.store != nil {
			outcome := ports.DispatchOutcome{
				DeliveryID: event.DeliveryID,
				LastError:  err.Error(),
				FinishedAt: domainrelay.FormatTime(time.Now()),
			}
			if recErr := s.store.RecordDispatchOutcome(ctx, outcome); recErr != nil {
				logging.Warn(ctx, "record dispatch outcome failed", slog.Any("err", errs.Loggable(recErr)))
			}
		}
		return false
	}
	return true
}

func derivedDeliveryID(body []byte) string {
	sum := sha256.Sum256(body)
	return "derived:" + hex.EncodeToString(sum[:])
}
