package relay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"pragent/internal/bootstrap/config"
	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/infrastructure/githubhook"
	"pragent/internal/infrastructure/persistence/sqlite/model"
	"pragent/internal/infrastructure/persistence/sqlite/repository"
	"pragent/internal/infrastructure/persistence/sqlite/uow"
	"pragent/internal/ports"
)

const testSecret = "local-dev-secret"

const failedRunPayload = `{
	"action": "completed",
	"workflow_run": {
		"name": "CI",
		"status": "completed",
		"conclusion": "failure",
		"html_url": "https://github.com/acme/widgets/actions/runs/42",
		"run_number": 42,
		"head_branch": "main"
	},
	"repository": {"full_name": "acme/widgets"},
	"sender": {"login": "octocat"}
}`

type stubQueue struct {
	enqueued []ports.NotificationMessage
	err      error
}

func (q *stubQueue) Enqueue(_ string, message ports.NotificationMessage) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, message)
	return nil
}

func newTestService(t *testing.T, secret string, onDuplicate string, queue DispatchQueue) *Service {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "relay.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.WebhookEvent{}, &model.DispatchOutcome{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Config{}
	cfg.Dispatch.OnDuplicate = onDuplicate
	cfg.Slack.Channel = "#ci"

	return NewService(
		repository.NewEventRepository(db, 5*time.Second),
		uow.NewUnitOfWork(db),
		githubhook.NewVerifier(secret),
		NewSlackFormatter("#ci"),
		nil,
		queue,
		nil,
		nil,
		cfg,
	)
}

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestIngestStoresAndEnqueues(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{}
	svc := newTestService(t, testSecret, config.OnDuplicateSuppress, queue)
	body := []byte(failedRunPayload)

	result, err := svc.Ingest(context.Background(), IngestInput{
		DeliveryID: "delivery-1",
		EventType:  "workflow_run",
		Signature:  signPayload(testSecret, body),
		Body:       body,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if !result.Inserted || result.Duplicate {
		t.Fatalf("result = %+v, want fresh insert", result)
	}
	if !result.Verified {
		t.Fatal("verified = false, want true")
	}
	if !result.Enqueued {
		t.Fatal("enqueued = false, want true")
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued = %d messages, want 1", len(queue.enqueued))
	}
	if queue.enqueued[0].Severity != ports.SeverityError {
		t.Fatalf("severity = %q, want error for a failed run", queue.enqueued[0].Severity)
	}

	events, err := svc.ListRecentEvents(context.Background(), ports.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(events))
	}
	if events[0].Status != "failure" || events[0].Repository != "acme/widgets" {
		t.Fatalf("stored event = %+v, want normalized failure for acme/widgets", events[0])
	}
}

func TestIngestDuplicateSuppressesDispatch(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{}
	svc := newTestService(t, testSecret, config.OnDuplicateSuppress, queue)
	body := []byte(failedRunPayload)
	input := IngestInput{
		DeliveryID: "delivery-1",
		EventType:  "workflow_run",
		Signature:  signPayload(testSecret, body),
		Body:       body,
	}

	if _, err := svc.Ingest(context.Background(), input); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	result, err := svc.Ingest(context.Background(), input)
	if err != nil {
		t.Fatalf("replay ingest: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("duplicate = false, want true on replay")
	}
	if result.Enqueued {
		t.Fatal("enqueued = true, want replay suppressed")
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued = %d messages, want 1", len(queue.enqueued))
	}

	events, err := svc.ListRecentEvents(context.Background(), ports.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("stored events = %d, want exactly 1 after replay", len(events))
	}
}

func TestIngestDuplicateResendPolicy(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{}
	svc := newTestService(t, testSecret, config.OnDuplicateResend, queue)
	body := []byte(failedRunPayload)
	input := IngestInput{
		DeliveryID: "delivery-1",
		EventType:  "workflow_run",
		Signature:  signPayload(testSecret, body),
		Body:       body,
	}

	if _, err := svc.Ingest(context.Background(), input); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	result, err := svc.Ingest(context.Background(), input)
	if err != nil {
		t.Fatalf("replay ingest: %v", err)
	}

	if !result.Duplicate || !result.Enqueued {
		t.Fatalf("result = %+v, want duplicate re-dispatched under resend policy", result)
	}
	if len(queue.enqueued) != 2 {
		t.Fatalf("enqueued = %d messages, want 2", len(queue.enqueued))
	}
}

func TestIngestRejectsInvalidSignature(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{}
	svc := newTestService(t, testSecret, config.OnDuplicateSuppress, queue)
	body := []byte(failedRunPayload)

	_, err := svc.Ingest(context.Background(), IngestInput{
		DeliveryID: "delivery-1",
		EventType:  "workflow_run",
		Signature:  signPayload("wrong-secret", body),
		Body:       body,
	})
	if !errors.Is(err, domainrelay.ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}

	// Nothing persisted, nothing dispatched.
	events, listErr := svc.ListRecentEvents(context.Background(), ports.EventFilter{})
	if listErr != nil {
		t.Fatalf("list events: %v", listErr)
	}
	if len(events) != 0 {
		t.Fatalf("stored events = %d, want 0", len(events))
	}
	if len(queue.enqueued) != 0 {
		t.Fatalf("enqueued = %d messages, want 0", len(queue.enqueued))
	}
}

func TestIngestRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testSecret, config.OnDuplicateSuppress, &stubQueue{})
	body := []byte(`{not json`)

	_, err := svc.Ingest(context.Background(), IngestInput{
		DeliveryID: "delivery-1",
		EventType:  "workflow_run",
		Signature:  signPayload(testSecret, body),
		Body:       body,
	})
	if !errors.Is(err, domainrelay.ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestIngestWithoutSecretStoresUnverified(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "", config.OnDuplicateSuppress, &stubQueue{})
	body := []byte(failedRunPayload)

	result, err := svc.Ingest(context.Background(), IngestInput{
		DeliveryID: "delivery-1",
		EventType:  "workflow_run",
		Body:       body,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Verified {
		t.Fatal("verified = true, want false without a configured secret")
	}

	events, err := svc.ListRecentEvents(context.Background(), ports.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].Verified {
		t.Fatalf("events = %+v, want one unverified row", events)
	}
}

func TestIngestDerivesDeliveryIDFromBody(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testSecret, config.OnDuplicateSuppress, &stubQueue{})
	body := []byte(failedRunPayload)
	input := IngestInput{
		EventType: "workflow_run",
		Signature: signPayload(testSecret, body),
		Body:      body,
	}

	first, err := svc.Ingest(context.Background(), input)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.DeliveryID == "" {
		t.Fatal("delivery_id is empty, want derived id")
	}

	// Same body without a header must still dedup against itself.
	second, err := svc.Ingest(context.Background(), input)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("duplicate = false, want replay detected via derived id")
	}
	if second.DeliveryID != first.DeliveryID {
		t.Fatalf("delivery ids differ: %q vs %q", first.DeliveryID, second.DeliveryID)
	}
}

func TestIngestQueueFullRecordsOutcome(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{err: domainrelay.ErrQueueFull}
	svc := newTestService(t, testSecret, config.OnDuplicateSuppress, queue)
	body := []byte(failedRunPayload)

	result, err := svc.Ingest(context.Background(), IngestInput{
		DeliveryID: "delivery-1",
		EventType:  "workflow_run",
		Signature:  signPayload(testSecret, body),
		Body:       body,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// Storage succeeded; the saturated queue must not fail the request.
	if !result.Inserted {
		t.Fatal("inserted = false, want true")
	}
	if result.Enqueued {
		t.Fatal("enqueued = true, want false when the queue is full")
	}

	outcome, err := svc.DispatchOutcome(context.Background(), "delivery-1")
	if err != nil {
		t.Fatalf("get outcome: %v", err)
	}
	if outcome.Delivered || outcome.LastError == "" {
		t.Fatalf("outcome = %+v, want undelivered with queue-full error", outcome)
	}
}
