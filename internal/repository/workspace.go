package repository

import (
	"context"

	"wompi-billing-service/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkspaceRepository interface {
	// FindOrCreateByCustomerEmail resolves a workspace for an out-of-band
	// payer. Concurrent creation for the same email collapses onto one row
	// via the unique index.
	FindOrCreateByCustomerEmail(ctx context.Context, tx *gorm.DB, customerEmail string) (*model.Workspace, error)
	GetByID(ctx context.Context, workspaceID string) (*model.Workspace, error)
}

type workspaceRepoImpl struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepoImpl{db: db}
}

func (r *workspaceRepoImpl) FindOrCreateByCustomerEmail(ctx context.Context, tx *gorm.DB, customerEmail string) (*model.Workspace, error) {
	workspace := &model.Workspace{
		ID:            uuid.NewString(),
		CustomerEmail: customerEmail,
		Name:          customerEmail,
	}

	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_email"}},
		DoNothing: true,
	}).Create(workspace).Error
	if err != nil {
		return nil, err
	}

	var stored model.Workspace
	if err := tx.WithContext(ctx).
		Where("customer_email = ?", customerEmail).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *workspaceRepoImpl) GetByID(ctx context.Context, workspaceID string) (*model.Workspace, error) {
	var workspace model.Workspace
	err := r.db.WithContext(ctx).
		Where("id = ?", workspaceID).
		First(&workspace).Error
	if err != nil {
		return nil, err
	}

	return &workspace, nil
}
