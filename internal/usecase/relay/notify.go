package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pragent/internal/bootstrap/logging"
	"pragent/internal/errs"
	"pragent/internal/ports"
)

// SendNotification delivers an ad-hoc message synchronously through the
// retrying dispatcher. Unlike ingestion this blocks until delivery succeeds
// or the dispatcher gives up; callers get the real outcome.
func (s *Service) SendNotification(ctx context.Context, text string, severity ports.Severity) (ports.DispatchResult, error) {
	if ctx == nil {
		return ports.DispatchResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.DispatchResult{}, errs.Wrap(err, "check context")
	}
	if s.dispatcher == nil {
		return ports.DispatchResult{}, errors.New("dispatcher is required")
	}
	if strings.TrimSpace(text) == "" {
		return ports.DispatchResult{}, errors.New("message text is required")
	}
	if severity == "" {
		severity = ports.SeverityInfo
	}

	message := ports.NotificationMessage{
		ChannelTarget: s.channel,
		Title:         "Manual Notification",
		Body:          text,
		Severity:      severity,
	}

	result, err := s.dispatcher.Dispatch(ctx, message)
	if err != nil {
		logging.Error(ctx, "manual notification failed",
			slog.Int("attempts", result.Attempts),
			slog.Any("err", errs.Loggable(err)),
		)
		return result, err
	}

	logging.Info(ctx, "manual notification delivered", slog.Int("attempts", result.Attempts))
	return result, nil
}
