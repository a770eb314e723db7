package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pragent/internal/bootstrap/config"
	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/ports"
)

type stubDispatcher struct {
	mu       sync.Mutex
	messages []ports.NotificationMessage
	block    chan struct{}
	err      error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, message ports.NotificationMessage) (ports.DispatchResult, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return ports.DispatchResult{}, ctx.Err()
		}
	}

	d.mu.Lock()
	d.messages = append(d.messages, message)
	d.mu.Unlock()

	if d.err != nil {
		return ports.DispatchResult{Attempts: 1}, d.err
	}
	return ports.DispatchResult{Delivered: true, Attempts: 1}, nil
}

func (d *stubDispatcher) dispatched() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

type stubOutcomeStore struct {
	mu       sync.Mutex
	outcomes map[string]ports.DispatchOutcome
}

func newStubOutcomeStore() *stubOutcomeStore {
	return &stubOutcomeStore{outcomes: make(map[string]ports.DispatchOutcome)}
}

func (s *stubOutcomeStore) Upsert(context.Context, ports.WebhookEvent) (ports.StoreResult, error) {
	return ports.StoreResult{}, errors.New("not implemented")
}

func (s *stubOutcomeStore) Query(context.Context, ports.EventFilter) ([]ports.WebhookEvent, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOutcomeStore) RecordDispatchOutcome(_ context.Context, outcome ports.DispatchOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[outcome.DeliveryID] = outcome
	return nil
}

func (s *stubOutcomeStore) GetDispatchOutcome(_ context.Context, deliveryID string) (ports.DispatchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[deliveryID]
	if !ok {
		return ports.DispatchOutcome{}, ports.ErrOutcomeNotFound
	}
	return outcome, nil
}

func (s *stubOutcomeStore) Health(context.Context) error { return nil }

func TestWorkerProcessesAndRecordsOutcome(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{}
	store := newStubOutcomeStore()
	worker := NewWorker(dispatcher, store, nil, nil, config.DispatchConfig{
		QueueSize:  8,
		Workers:    2,
		DrainGrace: 2 * time.Second,
	})

	worker.Start(context.Background())

	if err := worker.Enqueue("delivery-1", ports.NotificationMessage{Body: "hi"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := worker.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := dispatcher.dispatched(); got != 1 {
		t.Fatalf("dispatched = %d, want 1", got)
	}

	outcome, err := store.GetDispatchOutcome(context.Background(), "delivery-1")
	if err != nil {
		t.Fatalf("get outcome: %v", err)
	}
	if !outcome.Delivered || outcome.Attempts != 1 {
		t.Fatalf("outcome = %+v, want delivered on attempt 1", outcome)
	}
	if outcome.FinishedAt == "" {
		t.Fatal("finished_at is empty")
	}
}

func TestWorkerRecordsExhaustedOutcome(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{err: domainrelay.ErrDispatchExhausted}
	store := newStubOutcomeStore()
	worker := NewWorker(dispatcher, store, nil, nil, config.DispatchConfig{
		QueueSize:  8,
		Workers:    1,
		DrainGrace: 2 * time.Second,
	})

	worker.Start(context.Background())
	if err := worker.Enqueue("delivery-1", ports.NotificationMessage{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := worker.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	outcome, err := store.GetDispatchOutcome(context.Background(), "delivery-1")
	if err != nil {
		t.Fatalf("get outcome: %v", err)
	}
	if outcome.Delivered {
		t.Fatal("delivered = true, want false")
	}
	if outcome.LastError == "" {
		t.Fatal("last_error is empty, want exhaustion recorded")
	}
}

func TestWorkerRejectsWhenQueueFull(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{block: make(chan struct{})}
	worker := NewWorker(dispatcher, newStubOutcomeStore(), nil, nil, config.DispatchConfig{
		QueueSize:  1,
		Workers:    1,
		DrainGrace: time.Second,
	})

	// Not started: nothing drains the queue, so the second enqueue must
	// bounce instead of blocking the caller.
	if err := worker.Enqueue("delivery-1", ports.NotificationMessage{}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}

	err := worker.Enqueue("delivery-2", ports.NotificationMessage{})
	if !errors.Is(err, domainrelay.ErrQueueFull) {
		t.Fatalf("second enqueue err = %v, want ErrQueueFull", err)
	}

	close(dispatcher.block)
	worker.Start(context.Background())
	if err := worker.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestWorkerDrainsPendingJobsOnClose(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{}
	worker := NewWorker(dispatcher, newStubOutcomeStore(), nil, nil, config.DispatchConfig{
		QueueSize:  16,
		Workers:    2,
		DrainGrace: 5 * time.Second,
	})

	worker.Start(context.Background())
	for i := 0; i < 10; i++ {
		if err := worker.Enqueue("delivery", ports.NotificationMessage{}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	if err := worker.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := dispatcher.dispatched(); got != 10 {
		t.Fatalf("dispatched = %d, want all 10 drained before close returned", got)
	}
}
