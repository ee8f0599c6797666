package repository

import (
	"context"
	"time"

	"wompi-billing-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// UpsertProcessing inserts a processing row for the key or, if one exists
	// in any status, reopens it: attempt_count+1, payload/meta refreshed,
	// last_error cleared. A single conflict-guarded statement so concurrent
	// deliveries of the same key cannot race a read-then-write sequence.
	UpsertProcessing(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, idempotencyKey string) error
	MarkFailed(ctx context.Context, idempotencyKey, errorMessage string) error
	GetByKey(ctx context.Context, idempotencyKey string) (*model.WebhookEvent, error)
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) UpsertProcessing(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	event.Status = model.WebhookStatusProcessing
	event.AttemptCount = 1
	event.LastError = nil

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "idempotency_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":        model.WebhookStatusProcessing,
			"attempt_count": gorm.Expr("webhook_events.attempt_count + 1"),
			"payload":       event.Payload,
			"signature":     event.Signature,
			"event_type":    event.EventType,
			"wompi_id":      event.WompiID,
			"reference":     event.Reference,
			"last_error":    nil,
			"updated_at":    time.Now(),
		}),
	}).Create(event).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the stored attempt count after a conflict.
	var stored model.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", event.IdempotencyKey).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *webhookEventRepositoryImpl) MarkProcessed(ctx context.Context, idempotencyKey string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("idempotency_key = ?", idempotencyKey).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusProcessed,
			"processed_at": &now,
		}).Error
}

func (r *webhookEventRepositoryImpl) MarkFailed(ctx context.Context, idempotencyKey, errorMessage string) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("idempotency_key = ?", idempotencyKey).
		Updates(map[string]interface{}{
			"status":     model.WebhookStatusFailed,
			"last_error": errorMessage,
		}).Error
}

func (r *webhookEventRepositoryImpl) GetByKey(ctx context.Context, idempotencyKey string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		First(&event).Error
	if err != nil {
		return nil, err
	}

	return &event, nil
}
