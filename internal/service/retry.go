package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wompi-billing-service/internal/client"
	"wompi-billing-service/internal/dto"
	"wompi-billing-service/internal/model"
	"wompi-billing-service/internal/repository"
	"wompi-billing-service/internal/wompi"

	"gorm.io/gorm"
)

type RetryService interface {
	// Retry initiates a fresh payment attempt for a failed invoice. The
	// final outcome is decided by a later webhook, not by this call.
	Retry(ctx context.Context, workspaceID, invoiceID string) (*dto.RetryResponse, error)
}

type retryServiceImpl struct {
	db                *gorm.DB
	wompiClient       client.WompiClient
	invoiceRepo       repository.InvoiceRepository
	transactionRepo   repository.TransactionRepository
	subscriptionRepo  repository.SubscriptionRepository
	paymentSourceRepo repository.PaymentSourceRepository
	currency          string
	redirectURL       string
	maxAttempts       int
}

func NewRetryService(
	db *gorm.DB,
	wompiClient client.WompiClient,
	invoiceRepo repository.InvoiceRepository,
	transactionRepo repository.TransactionRepository,
	subscriptionRepo repository.SubscriptionRepository,
	paymentSourceRepo repository.PaymentSourceRepository,
	currency, redirectURL string,
	maxAttempts int,
) RetryService {
	return &retryServiceImpl{
		db:                db,
		wompiClient:       wompiClient,
		invoiceRepo:       invoiceRepo,
		transactionRepo:   transactionRepo,
		subscriptionRepo:  subscriptionRepo,
		paymentSourceRepo: paymentSourceRepo,
		currency:          currency,
		redirectURL:       redirectURL,
		maxAttempts:       maxAttempts,
	}
}

func (s *retryServiceImpl) Retry(ctx context.Context, workspaceID, invoiceID string) (*dto.RetryResponse, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if invoice.WorkspaceID != workspaceID {
		return nil, gorm.ErrRecordNotFound
	}

	if invoice.Status != model.InvoiceStatusFailed {
		return nil, ErrInvoiceNotRetryable
	}
	if invoice.AttemptCount >= s.maxAttempts {
		return nil, ErrRetryExhausted
	}

	source, err := s.resolvePaymentSource(ctx, invoice.WorkspaceID)
	if err != nil {
		return nil, err
	}

	// A reference is never reused between attempts; the gateway must be able
	// to tell them apart.
	reference := wompi.NewRetryReference(invoice.ID, invoice.AttemptCount+1)

	txReq := &client.CreateTransactionRequest{
		AmountInCents:   invoice.AmountInCents,
		Currency:        s.currency,
		CustomerEmail:   source.CustomerEmail,
		PaymentMethod:   client.PaymentMethod{Type: source.Type, Installments: 1},
		PaymentSourceID: source.WompiID,
		Reference:       reference,
		RedirectURL:     s.redirectURL,
		Recurrent:       source.Type == "CARD",
	}

	// No local writes until the gateway confirms; a timeout here leaves no
	// partial state behind.
	wompiTx, err := s.wompiClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, fmt.Errorf("wompi create transaction: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raw, _ := json.Marshal(wompiTx)
		if _, err := s.transactionRepo.CreateIfAbsent(ctx, tx, &model.Transaction{
			WompiID:           wompiTx.ID,
			InvoiceID:         invoice.ID,
			WorkspaceID:       invoice.WorkspaceID,
			AmountInCents:     invoice.AmountInCents,
			Currency:          s.currency,
			Status:            wompiTx.Status,
			PaymentMethodType: source.Type,
			Reference:         wompiTx.Reference,
			StatusMessage:     wompiTx.StatusMessage,
			RawPayload:        string(raw),
		}); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		return s.invoiceRepo.RecordRetryAttempt(ctx, tx, invoice.ID, wompiTx.ID)
	})
	if err != nil {
		return nil, err
	}

	return &dto.RetryResponse{
		InvoiceID:          invoice.ID,
		WompiTransactionID: wompiTx.ID,
		Reference:          wompiTx.Reference,
		Status:             wompiTx.Status,
		AttemptCount:       invoice.AttemptCount + 1,
	}, nil
}

// resolvePaymentSource prefers the source pinned on the subscription and
// falls back to the workspace's default one, so a retry still works when the
// subscription predates payment-source capture.
func (s *retryServiceImpl) resolvePaymentSource(ctx context.Context, workspaceID string) (*model.PaymentSource, error) {
	sub, err := s.subscriptionRepo.GetByWorkspace(ctx, s.db, workspaceID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	if err == nil && sub.PaymentSourceID != nil {
		source, err := s.paymentSourceRepo.GetByID(ctx, *sub.PaymentSourceID)
		if err == nil {
			return source, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get payment source: %w", err)
		}
	}

	source, err := s.paymentSourceRepo.GetDefaultByWorkspace(ctx, workspaceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPaymentSource
	}
	if err != nil {
		return nil, fmt.Errorf("get default payment source: %w", err)
	}
	return source, nil
}
