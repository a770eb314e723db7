package relay

import (
	"context"
	"errors"

	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/errs"
	"pragent/internal/ports"
)

const workflowScanLimit = 500

// ListRecentEvents returns stored events newest first, optionally narrowed
// by type and repository. Read-only; this is the surface the tool layer
// consumes.
func (s *Service) ListRecentEvents(ctx context.Context, filter ports.EventFilter) ([]ports.WebhookEvent, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.store == nil {
		return nil, errors.New("event store is required")
	}

	return s.store.Query(ctx, filter)
}

// WorkflowStatusItem is the latest known state of one workflow.
type WorkflowStatusItem struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	RunNumber  int64  `json:"run_number,omitempty"`
	Repository string `json:"repository,omitempty"`
	UpdatedAt  string `json:"updated_at"`
	RunURL     string `json:"html_url,omitempty"`
}

// WorkflowStatus folds stored workflow_run events into one entry per
// workflow, keeping the most recent. An empty workflowName returns all.
func (s *Service) WorkflowStatus(ctx context.Context, workflowName string) ([]WorkflowStatusItem, error) {
	events, err := s.ListRecentEvents(ctx, ports.EventFilter{
		EventType: domainrelay.EventTypeWorkflowRun,
		Limit:     workflowScanLimit,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(events))
	items := make([]WorkflowStatusItem, 0, len(events))
	// Events arrive newest first, so the first occurrence per workflow
	// is the latest.
	for _, event := range events {
		name := event.WorkflowName
		if name == "" {
			continue
		}
		if workflowName != "" && name != workflowName {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		items = append(items, WorkflowStatusItem{
			Name:       name,
			Status:     event.Status,
			RunNumber:  event.RunNumber,
			Repository: event.Repository,
			UpdatedAt:  event.ReceivedAt,
			RunURL:     event.RunURL,
		})
	}
	return items, nil
}

// DispatchOutcome reports the terminal delivery result for a delivery id.
func (s *Service) DispatchOutcome(ctx context.Context, deliveryID string) (ports.DispatchOutcome, error) {
	if ctx == nil {
		return ports.DispatchOutcome{}, errors.New("context is required")
	}
	if s.store == nil {
		return ports.DispatchOutcome{}, errors.New("event store is required")
	}
	return s.store.GetDispatchOutcome(ctx, deliveryID)
}

// Health reports whether the underlying store is reachable.
func (s *Service) Health(ctx context.Context) error {
	if s.store == nil {
		return errors.New("event store is required")
	}
	return s.store.Health(ctx)
}
