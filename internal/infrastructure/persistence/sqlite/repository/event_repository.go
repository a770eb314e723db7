package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/infrastructure/persistence/sqlite/model"
	"pragent/internal/ports"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// EventRepository implements ports.EventStore on sqlite via gorm. Every
// operation is bounded by opTimeout; failures surface as
// domainrelay.ErrStorageUnavailable instead of hanging the caller.
type EventRepository struct {
	db        *gorm.DB
	opTimeout time.Duration
}

func NewEventRepository(db *gorm.DB, opTimeout time.Duration) *EventRepository {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &EventRepository{db: db, opTimeout: opTimeout}
}

func (r *EventRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *EventRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *EventRepository) Upsert(ctx context.Context, event ports.WebhookEvent) (ports.StoreResult, error) {
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.dbFromContext(opCtx)
	if err != nil {
		return ports.StoreResult{}, err
	}

	row := model.WebhookEvent{
		DeliveryID:   event.DeliveryID,
		EventType:    event.EventType,
		Repository:   event.Repository,
		Action:       event.Action,
		Status:       event.Status,
		Sender:       event.Sender,
		WorkflowName: event.WorkflowName,
		RunURL:       event.RunURL,
		RunNumber:    event.RunNumber,
		Branch:       event.Branch,
		PayloadJSON:  event.PayloadJSON,
		Verified:     event.Verified,
		ReceivedAt:   event.ReceivedAt,
	}

	// The unique index on delivery_id serializes concurrent duplicate
	// deliveries; no read-then-write race is possible.
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "delivery_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return ports.StoreResult{}, storageErr(result.Error, "insert webhook event")
	}
	return ports.StoreResult{Inserted: result.RowsAffected > 0}, nil
}

func (r *EventRepository) Query(ctx context.Context, filter ports.EventFilter) ([]ports.WebhookEvent, error) {
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.dbFromContext(opCtx)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	query := db.Model(&model.WebhookEvent{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Repository != "" {
		query = query.Where("repository = ?", filter.Repository)
	}
	if filter.Since != "" {
		query = query.Where("received_at > ?", filter.Since)
	}

	var rows []model.WebhookEvent
	if err := query.
		Order("received_at desc").
		Order("event_id desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storageErr(err, "query webhook events")
	}

	items := make([]ports.WebhookEvent, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEvent(row))
	}
	return items, nil
}

func (r *EventRepository) RecordDispatchOutcome(ctx context.Context, outcome ports.DispatchOutcome) error {
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.dbFromContext(opCtx)
	if err != nil {
		return err
	}

	row := model.DispatchOutcome{
		DeliveryID: outcome.DeliveryID,
		Delivered:  outcome.Delivered,
		Attempts:   outcome.Attempts,
		LastError:  outcome.LastError,
		FinishedAt: outcome.FinishedAt,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "delivery_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return storageErr(err, "record dispatch outcome")
	}
	return nil
}

func (r *EventRepository) GetDispatchOutcome(ctx context.Context, deliveryID string) (ports.DispatchOutcome, error) {
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.dbFromContext(opCtx)
	if err != nil {
		return ports.DispatchOutcome{}, err
	}

	var row model.DispatchOutcome
	if err := db.Where("delivery_id = ?", deliveryID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.DispatchOutcome{}, ports.ErrOutcomeNotFound
		}
		return ports.DispatchOutcome{}, storageErr(err, "query dispatch outcome")
	}
	return ports.DispatchOutcome{
		DeliveryID: row.DeliveryID,
		Delivered:  row.Delivered,
		Attempts:   row.Attempts,
		LastError:  row.LastError,
		FinishedAt: row.FinishedAt,
	}, nil
}

func (r *EventRepository) Health(ctx context.Context) error {
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	sqlDB, err := r.db.DB()
	if err != nil {
		return storageErr(err, "get sql db")
	}
	if err := sqlDB.PingContext(opCtx); err != nil {
		return storageErr(err, "ping database")
	}
	return nil
}

func mapEvent(row model.WebhookEvent) ports.WebhookEvent {
	return ports.WebhookEvent{
		EventID:      row.EventID,
		DeliveryID:   row.DeliveryID,
		EventType:    row.EventType,
		Repository:   row.Repository,
		Action:       row.Action,
		Status:       row.Status,
		Sender:       row.Sender,
		WorkflowName: row.WorkflowName,
		RunURL:       row.RunURL,
		RunNumber:    row.RunNumber,
		Branch:       row.Branch,
		PayloadJSON:  row.PayloadJSON,
		Verified:     row.Verified,
		ReceivedAt:   row.ReceivedAt,
	}
}

func storageErr(err error, msg string) error {
	return fmt.Errorf("%s: %w: %v", msg, domainrelay.ErrStorageUnavailable, err)
}
