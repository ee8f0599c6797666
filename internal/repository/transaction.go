package repository

import (
	"context"

	"wompi-billing-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	// CreateIfAbsent inserts the transaction unless one with the same gateway
	// id already exists. A retried insert for the same wompi_id is not an
	// error; it reports created=false.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, transaction *model.Transaction) (bool, error)
	GetByWompiID(ctx context.Context, wompiID string) (*model.Transaction, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*model.Transaction, error)
}

type transactionRepoImpl struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepoImpl{db: db}
}

func (r *transactionRepoImpl) CreateIfAbsent(ctx context.Context, tx *gorm.DB, transaction *model.Transaction) (bool, error) {
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wompi_id"}},
		DoNothing: true,
	}).Create(transaction)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *transactionRepoImpl) GetByWompiID(ctx context.Context, wompiID string) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.WithContext(ctx).
		Where("wompi_id = ?", wompiID).
		First(&transaction).Error
	if err != nil {
		return nil, err
	}

	return &transaction, nil
}

func (r *transactionRepoImpl) ListByInvoice(ctx context.Context, invoiceID string) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
