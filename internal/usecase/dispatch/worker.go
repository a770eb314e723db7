package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pragent/internal/bootstrap/config"
	"pragent/internal/bootstrap/logging"
	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/errs"
	"pragent/internal/metrics"
	"pragent/internal/ports"
)

type job struct {
	id         string
	deliveryID string
	message    ports.NotificationMessage
}

// Worker decouples notification dispatch from the ingestion response path:
// a bounded queue feeding a fixed pool of goroutines. Terminal outcomes are
// recorded in the store, counted, and published; exhaustion is never
// re-queued.
type Worker struct {
	dispatcher ports.Dispatcher
	store      ports.EventStore
	publisher  ports.Publisher
	metrics    *metrics.Metrics

	workers    int
	drainGrace time.Duration

	jobs      chan job
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
}

func NewWorker(dispatcher ports.Dispatcher, store ports.EventStore, publisher ports.Publisher, m *metrics.Metrics, cfg config.DispatchConfig) *Worker {
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 256
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	drainGrace := cfg.DrainGrace
	if drainGrace <= 0 {
		drainGrace = 10 * time.Second
	}

	return &Worker{
		dispatcher: dispatcher,
		store:      store,
		publisher:  publisher,
		metrics:    m,
		workers:    workers,
		drainGrace: drainGrace,
		jobs:       make(chan job, queueSize),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		w.cancel = cancel

		for i := 0; i < w.workers; i++ {
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				w.run(runCtx)
			}()
		}
	})
}

// Enqueue hands a message to the background pool without blocking the
// caller. A saturated queue is a terminal failure for this message.
func (w *Worker) Enqueue(deliveryID string, message ports.NotificationMessage) error {
	j := job{
		id:         uuid.NewString(),
		deliveryID: deliveryID,
		message:    message,
	}

	select {
	case w.jobs <- j:
		if w.metrics != nil {
			w.metrics.QueueDepth.Set(float64(len(w.jobs)))
		}
		return nil
	default:
		if w.metrics != nil {
			w.metrics.DispatchOutcomes.WithLabelValues(metrics.OutcomeQueueFull).Inc()
		}
		return domainrelay.ErrQueueFull
	}
}

// Close stops intake and drains in-flight jobs within the grace period;
// whatever is still running afterwards is cancelled.
func (w *Worker) Close(ctx context.Context) error {
	var drained bool
	w.closeOnce.Do(func() {
		close(w.jobs)

		done := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(done)
		}()

		grace := time.NewTimer(w.drainGrace)
		defer grace.Stop()

		select {
		case <-done:
			drained = true
		case <-grace.C:
		case <-ctx.Done():
		}

		if w.cancel != nil {
			w.cancel()
		}
		if !drained {
			<-done
		}
		drained = true
	})

	if !drained {
		return errors.New("worker already closed")
	}
	return nil
}

func (w *Worker) run(ctx context.Context) {
	for j := range w.jobs {
		if w.metrics != nil {
			w.metrics.QueueDepth.Set(float64(len(w.jobs)))
		}
		w.process(ctx, j)
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "dispatch.worker"),
		slog.String("job_id", j.id),
		slog.String("delivery_id", j.deliveryID),
	)

	result, err := w.dispatcher.Dispatch(ctx, j.message)

	outcome := ports.DispatchOutcome{
		DeliveryID: j.deliveryID,
		Delivered:  result.Delivered,
		Attempts:   result.Attempts,
		FinishedAt: domainrelay.FormatTime(time.Now()),
	}

	switch {
	case err == nil:
		if w.metrics != nil {
			w.metrics.DispatchOutcomes.WithLabelValues(metrics.OutcomeDelivered).Inc()
		}
		logging.Info(logCtx, "notification delivered", slog.Int("attempts", result.Attempts))
	case errors.Is(err, domainrelay.ErrDispatchExhausted):
		outcome.LastError = err.Error()
		if w.metrics != nil {
			w.metrics.DispatchOutcomes.WithLabelValues(metrics.OutcomeExhausted).Inc()
		}
		logging.Error(logCtx, "notification dispatch exhausted",
			slog.Int("attempts", result.Attempts),
			slog.Any("err", errs.Loggable(err)),
		)
	default:
		outcome.LastError = err.Error()
		if w.metrics != nil {
			w.metrics.DispatchOutcomes.WithLabelValues(metrics.OutcomePermanent).Inc()
		}
		logging.Error(logCtx, "notification dispatch failed permanently",
			slog.Int("attempts", result.Attempts),
			slog.Any("err", errs.Loggable(err)),
		)
	}

	// Bookkeeping must survive shutdown cancellation; it gets its own
	// bounded context so records are never cut off mid-write.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if w.store != nil {
		if recErr := w.store.RecordDispatchOutcome(recordCtx, outcome); recErr != nil {
			logging.Warn(logCtx, "record dispatch outcome failed", slog.Any("err", errs.Loggable(recErr)))
		}
	}
	if w.publisher != nil {
		if pubErr := w.publisher.PublishOutcome(recordCtx, outcome); pubErr != nil {
			logging.Warn(logCtx, "publish dispatch outcome failed", slog.Any("err", errs.Loggable(pubErr)))
		}
	}
}
