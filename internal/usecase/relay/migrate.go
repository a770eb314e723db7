package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"pragent/internal/bootstrap/logging"
	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/errs"
	"pragent/internal/ports"
)

// legacyRecord is one entry of the archive format produced by the previous
// event logger: a flat JSON array of partially-filled records.
type legacyRecord struct {
	DeliveryID string `json:"delivery_id"`
	Timestamp  string `json:"timestamp"`
	EventType  string `json:"event_type"`
	Action     string `json:"action"`
	Repository string `json:"repository"`
	Sender     string `json:"sender"`

	WorkflowRun *legacyRun `json:"workflow_run"`
	CheckRun    *legacyRun `json:"check_run"`
}

type legacyRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
	RunNumber  int64  `json:"run_number"`
	HeadBranch string `json:"head_branch"`
}

// ImportStats summarizes one migration run.
type ImportStats struct {
	Total    int
	Planned  int
	Inserted int
	Skipped  int
	Failed   int
	DryRun   bool
}

// ImportArchive migrates a legacy JSON archive into the event store. The
// dry-run path parses and counts without ever opening a write path; a real
// run wraps the whole batch in a transaction so a partial import never
// survives. Records already present (by delivery id) count as skipped.
func (s *Service) ImportArchive(ctx context.Context, path string, dryRun bool) (ImportStats, error) {
	if ctx == nil {
		return ImportStats{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ImportStats{}, errs.Wrap(err, "check context")
	}
	if strings.TrimSpace(path) == "" {
		return ImportStats{}, errors.New("archive path is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "relay.migrate"),
		slog.String("path", path),
		slog.Bool("dry_run", dryRun),
	)

	raw, err := os.ReadFile(path)
	if err != nil {
		return ImportStats{}, errs.Wrap(err, "read archive")
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return ImportStats{}, errs.Wrapf(err, "parse archive %s: expected a JSON array", path)
	}

	stats := ImportStats{Total: len(records), DryRun: dryRun}

	events := make([]ports.WebhookEvent, 0, len(records))
	for i, rec := range records {
		event, convErr := legacyToEvent(rec)
		if convErr != nil {
			stats.Failed++
			logging.Warn(logCtx, "skipping unreadable legacy record",
				slog.Int("index", i), slog.Any("err", errs.Loggable(convErr)))
			continue
		}
		stats.Planned++
		events = append(events, event)
	}

	if dryRun {
		logging.Info(logCtx, "dry run complete",
			slog.Int("total", stats.Total),
			slog.Int("planned", stats.Planned),
			slog.Int("failed", stats.Failed),
		)
		return stats, nil
	}

	if s.store == nil {
		return stats, errors.New("event store is required")
	}
	if s.uow == nil {
		return stats, errors.New("unit of work is required")
	}

	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for _, event := range events {
			stored, upErr := s.store.Upsert(txCtx, event)
			if upErr != nil {
				return upErr
			}
			if stored.Inserted {
				stats.Inserted++
			} else {
				stats.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		stats.Inserted = 0
		stats.Skipped = 0
		return stats, errs.Wrap(err, "import archive")
	}

	logging.Info(logCtx, "archive imported",
		slog.Int("total", stats.Total),
		slog.Int("inserted", stats.Inserted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

func legacyToEvent(raw json.RawMessage) (ports.WebhookEvent, error) {
	var rec legacyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ports.WebhookEvent{}, errs.Wrap(err, "decode legacy record")
	}
	if rec.EventType == "" && rec.Repository == "" {
		return ports.WebhookEvent{}, errors.New("legacy record carries no event_type or repository")
	}

	event := ports.WebhookEvent{
		DeliveryID:  strings.TrimSpace(rec.DeliveryID),
		EventType:   legacyEventType(rec),
		Repository:  rec.Repository,
		Action:      rec.Action,
		Sender:      rec.Sender,
		PayloadJSON: string(raw),
		Verified:    false,
		ReceivedAt:  legacyTimestamp(rec.Timestamp),
	}

	if run := pickRun(rec); run != nil {
		event.Status = legacyStatus(run)
		event.WorkflowName = run.Name
		event.RunURL = run.HTMLURL
		event.RunNumber = run.RunNumber
		event.Branch = run.HeadBranch
	}

	if event.DeliveryID == "" {
		event.DeliveryID = legacyDeliveryID(raw)
	}
	return event, nil
}

func legacyEventType(rec legacyRecord) string {
	switch {
	case rec.WorkflowRun != nil:
		return domainrelay.EventTypeWorkflowRun
	case rec.CheckRun != nil:
		return domainrelay.EventTypeCheckRun
	case rec.EventType == domainrelay.EventTypeWorkflowRun, rec.EventType == domainrelay.EventTypeCheckRun:
		return rec.EventType
	default:
		return domainrelay.EventTypeOther
	}
}

func pickRun(rec legacyRecord) *legacyRun {
	if rec.WorkflowRun != nil {
		return rec.WorkflowRun
	}
	return rec.CheckRun
}

func legacyStatus(run *legacyRun) string {
	if run.Conclusion != "" {
		return run.Conclusion
	}
	return run.Status
}

// legacyTimestamp normalizes archive timestamps to the fixed-width
// storage format; unparsable or missing values fall back to the import
// time so ordering stays sane.
func legacyTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, value); err == nil {
				return domainrelay.FormatTime(ts)
			}
		}
	}
	return domainrelay.FormatTime(time.Now())
}

// legacyDeliveryID derives a stable id from record content so the same
// archive can be imported twice without duplicating rows.
func legacyDeliveryID(raw json.RawMessage) string {
	sum := sha256.Sum256(raw)
	return "legacy:" + hex.EncodeToString(sum[:])
}
