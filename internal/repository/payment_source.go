package repository

import (
	"context"
	"errors"

	"wompi-billing-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentSourceRepository interface {
	// CreateIfAbsent inserts by gateway id, returning the stored row either way.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, source *model.PaymentSource) (*model.PaymentSource, error)
	GetByID(ctx context.Context, id string) (*model.PaymentSource, error)
	GetByWompiID(ctx context.Context, wompiID string) (*model.PaymentSource, error)
	GetDefaultByWorkspace(ctx context.Context, workspaceID string) (*model.PaymentSource, error)
	HasAnyForWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) (bool, error)
}

type paymentSourceRepoImpl struct {
	db *gorm.DB
}

func NewPaymentSourceRepository(db *gorm.DB) PaymentSourceRepository {
	return &paymentSourceRepoImpl{db: db}
}

func (r *paymentSourceRepoImpl) CreateIfAbsent(ctx context.Context, tx *gorm.DB, source *model.PaymentSource) (*model.PaymentSource, error) {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wompi_id"}},
		DoNothing: true,
	}).Create(source).Error
	if err != nil {
		return nil, err
	}

	var stored model.PaymentSource
	if err := tx.WithContext(ctx).
		Where("wompi_id = ?", source.WompiID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *paymentSourceRepoImpl) GetByID(ctx context.Context, id string) (*model.PaymentSource, error) {
	var source model.PaymentSource
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&source).Error
	if err != nil {
		return nil, err
	}

	return &source, nil
}

func (r *paymentSourceRepoImpl) GetByWompiID(ctx context.Context, wompiID string) (*model.PaymentSource, error) {
	var source model.PaymentSource
	err := r.db.WithContext(ctx).
		Where("wompi_id = ?", wompiID).
		First(&source).Error
	if err != nil {
		return nil, err
	}

	return &source, nil
}

func (r *paymentSourceRepoImpl) GetDefaultByWorkspace(ctx context.Context, workspaceID string) (*model.PaymentSource, error) {
	var source model.PaymentSource
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("is_default DESC, created_at ASC").
		First(&source).Error
	if err != nil {
		return nil, err
	}

	return &source, nil
}

func (r *paymentSourceRepoImpl) HasAnyForWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.PaymentSource{}).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	return count > 0, nil
}
