package repository

import (
	"context"

	"wompi-billing-service/internal/model"

	"gorm.io/gorm"
)

type PlanRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, planID string) (*model.Plan, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*model.Plan, error)
}

type planRepoImpl struct{}

func NewPlanRepository() PlanRepository {
	return &planRepoImpl{}
}

func (r *planRepoImpl) GetByID(ctx context.Context, tx *gorm.DB, planID string) (*model.Plan, error) {
	var plan model.Plan
	err := tx.WithContext(ctx).
		Where("id = ?", planID).
		First(&plan).Error
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepoImpl) ListActive(ctx context.Context, tx *gorm.DB) ([]*model.Plan, error) {
	var plans []*model.Plan
	err := tx.WithContext(ctx).
		Where("is_active = ?", true).
		Order("amount_in_cents ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}

	return plans, nil
}
