package repository

import (
	"context"
	"time"

	"wompi-billing-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	// FindOrCreate resolves the single subscription for a workspace. Under
	// concurrent creation the unique index on workspace_id makes one insert
	// win; the loser reads the winner's row, which is success, not an error.
	FindOrCreate(ctx context.Context, tx *gorm.DB, sub *model.Subscription) (*model.Subscription, error)
	GetByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) (*model.Subscription, error)
	Activate(ctx context.Context, tx *gorm.DB, subscriptionID, planID string, periodStart, periodEnd time.Time) error
	SetPaymentSource(ctx context.Context, tx *gorm.DB, subscriptionID, paymentSourceID string) error
	MarkPastDue(ctx context.Context, tx *gorm.DB, subscriptionID string) error
	Cancel(ctx context.Context, subscriptionID string, atPeriodEnd bool) error
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{db: db}
}

func (r *subscriptionRepoImpl) FindOrCreate(ctx context.Context, tx *gorm.DB, sub *model.Subscription) (*model.Subscription, error) {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}},
		DoNothing: true,
	}).Create(sub).Error
	if err != nil {
		return nil, err
	}

	var stored model.Subscription
	if err := tx.WithContext(ctx).
		Where("workspace_id = ?", sub.WorkspaceID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *subscriptionRepoImpl) GetByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := tx.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) Activate(ctx context.Context, tx *gorm.DB, subscriptionID, planID string, periodStart, periodEnd time.Time) error {
	return tx.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"status":               model.SubscriptionStatusActive,
			"plan_id":              planID,
			"current_period_start": periodStart,
			"current_period_end":   periodEnd,
			"canceled_at":          nil,
			"updated_at":           time.Now(),
		}).Error
}

func (r *subscriptionRepoImpl) SetPaymentSource(ctx context.Context, tx *gorm.DB, subscriptionID, paymentSourceID string) error {
	return tx.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("payment_source_id", paymentSourceID).
		Error
}

func (r *subscriptionRepoImpl) MarkPastDue(ctx context.Context, tx *gorm.DB, subscriptionID string) error {
	return tx.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ? AND status IN ?", subscriptionID,
			[]string{model.SubscriptionStatusActive, model.SubscriptionStatusTrialing, model.SubscriptionStatusPastDue}).
		Update("status", model.SubscriptionStatusPastDue).
		Error
}

func (r *subscriptionRepoImpl) Cancel(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	updates := map[string]interface{}{
		"cancel_at_period_end": atPeriodEnd,
		"updated_at":           time.Now(),
	}
	if !atPeriodEnd {
		now := time.Now()
		updates["status"] = model.SubscriptionStatusCanceled
		updates["canceled_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(updates).Error
}
