package repository

import (
	"context"
	"time"

	"wompi-billing-service/internal/model"

	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, invoice *model.Invoice) error
	GetByID(ctx context.Context, invoiceID string) (*model.Invoice, error)
	GetByReference(ctx context.Context, tx *gorm.DB, reference string) (*model.Invoice, error)
	// MarkPaid transitions an invoice to paid. The status guard in the WHERE
	// clause makes paid terminal: a second call, or a stale event racing in,
	// matches zero rows.
	MarkPaid(ctx context.Context, tx *gorm.DB, invoiceID, wompiTransactionID, subscriptionID string, periodStart, periodEnd time.Time) error
	// MarkFailed records a failed attempt unless the invoice is already paid.
	MarkFailed(ctx context.Context, tx *gorm.DB, invoiceID string, nextRetryAt *time.Time) error
	// RecordRetryAttempt points the invoice at the new gateway transaction.
	RecordRetryAttempt(ctx context.Context, tx *gorm.DB, invoiceID, wompiTransactionID string) error
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Invoice, error)
}

type invoiceRepoImpl struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepoImpl{db: db}
}

func (r *invoiceRepoImpl) Create(ctx context.Context, tx *gorm.DB, invoice *model.Invoice) error {
	return tx.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepoImpl) GetByID(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).
		Where("id = ?", invoiceID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

func (r *invoiceRepoImpl) GetByReference(ctx context.Context, tx *gorm.DB, reference string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := tx.WithContext(ctx).
		Where("reference = ?", reference).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

func (r *invoiceRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, invoiceID, wompiTransactionID, subscriptionID string, periodStart, periodEnd time.Time) error {
	now := time.Now()
	return tx.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ? AND status <> ?", invoiceID, model.InvoiceStatusPaid).
		Updates(map[string]interface{}{
			"status":               model.InvoiceStatusPaid,
			"paid_at":              &now,
			"wompi_transaction_id": wompiTransactionID,
			"subscription_id":      subscriptionID,
			"period_start":         periodStart,
			"period_end":           periodEnd,
			"next_retry_at":        nil,
			"updated_at":           now,
		}).Error
}

func (r *invoiceRepoImpl) MarkFailed(ctx context.Context, tx *gorm.DB, invoiceID string, nextRetryAt *time.Time) error {
	return tx.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ? AND status <> ?", invoiceID, model.InvoiceStatusPaid).
		Updates(map[string]interface{}{
			"status":        model.InvoiceStatusFailed,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"next_retry_at": nextRetryAt,
			"updated_at":    time.Now(),
		}).Error
}

func (r *invoiceRepoImpl) RecordRetryAttempt(ctx context.Context, tx *gorm.DB, invoiceID, wompiTransactionID string) error {
	return tx.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(map[string]interface{}{
			"wompi_transaction_id": wompiTransactionID,
			"attempt_count":        gorm.Expr("attempt_count + 1"),
			"updated_at":           time.Now(),
		}).Error
}

func (r *invoiceRepoImpl) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Invoice, error) {
	var invoices []*model.Invoice
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	return invoices, nil
}
