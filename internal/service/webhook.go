package service

import (
	"context"
	"errors"
	"fmt"

	"wompi-billing-service/internal/client"
	"wompi-billing-service/internal/dto"
	"wompi-billing-service/internal/model"
	"wompi-billing-service/internal/repository"
	"wompi-billing-service/internal/wompi"

	"gorm.io/gorm"
)

type WebhookService interface {
	// HandleWebhook processes one inbound delivery: authenticate, derive the
	// idempotency key, bookkeep the attempt, apply effects, record the
	// outcome. Deliveries may arrive duplicated, concurrent and out of
	// order; the repositories' unique constraints plus the reconciler's
	// idempotency make the result order-independent.
	HandleWebhook(ctx context.Context, body []byte, signature string) error

	// CheckTransaction resolves a gateway transaction's current status,
	// consumed by the frontend after a Web Checkout redirect. A locally
	// recorded final transaction answers directly; otherwise the gateway is
	// polled and a final result is reconciled right away instead of waiting
	// for the webhook delivery.
	CheckTransaction(ctx context.Context, wompiID string) (*dto.TransactionStatusResponse, error)
}

type webhookServiceImpl struct {
	webhookSecret   string
	eventRepo       repository.WebhookEventRepository
	transactionRepo repository.TransactionRepository
	wompiClient     client.WompiClient
	reconciler      *Reconciler
}

func NewWebhookService(
	webhookSecret string,
	eventRepo repository.WebhookEventRepository,
	transactionRepo repository.TransactionRepository,
	wompiClient client.WompiClient,
	reconciler *Reconciler,
) WebhookService {
	return &webhookServiceImpl{
		webhookSecret:   webhookSecret,
		eventRepo:       eventRepo,
		transactionRepo: transactionRepo,
		wompiClient:     wompiClient,
		reconciler:      reconciler,
	}
}

func (s *webhookServiceImpl) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	// Reject before any persistence: an unauthenticated payload must leave
	// no trace.
	if !wompi.VerifySignature(body, signature, s.webhookSecret) {
		return ErrInvalidSignature
	}

	ev, err := wompi.DecodeEvent(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	key := wompi.DeriveIdempotencyKey(ev)
	if key == "" {
		// Without an identity there is no safe way to deduplicate.
		return fmt.Errorf("%w: cannot derive idempotency key", ErrMalformedEvent)
	}

	event := &model.WebhookEvent{
		IdempotencyKey: key,
		Payload:        string(body),
		Signature:      signature,
		EventType:      ev.Event,
	}
	if tx := ev.Data.Transaction; tx != nil {
		event.WompiID = tx.ID
		event.Reference = tx.Reference
	}

	if _, err := s.eventRepo.UpsertProcessing(ctx, event); err != nil {
		return fmt.Errorf("upsert webhook event: %w", err)
	}

	if err := s.process(ctx, ev); err != nil {
		if markErr := s.eventRepo.MarkFailed(ctx, key, err.Error()); markErr != nil {
			return fmt.Errorf("mark webhook event failed: %v (cause: %w)", markErr, err)
		}
		return err
	}

	if err := s.eventRepo.MarkProcessed(ctx, key); err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}

	return nil
}

func (s *webhookServiceImpl) CheckTransaction(ctx context.Context, wompiID string) (*dto.TransactionStatusResponse, error) {
	row, err := s.transactionRepo.GetByWompiID(ctx, wompiID)
	if err == nil {
		if status, perr := model.ParseTransactionStatus(row.Status); perr == nil && status.IsFinal() {
			return &dto.TransactionStatusResponse{
				WompiID:   row.WompiID,
				Reference: row.Reference,
				Status:    row.Status,
				Final:     true,
			}, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	wompiTx, err := s.wompiClient.GetTransaction(ctx, wompiID)
	if err != nil {
		return nil, fmt.Errorf("wompi get transaction: %w", err)
	}

	status, err := model.ParseTransactionStatus(wompiTx.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if status.IsFinal() {
		if err := s.reconciler.Reconcile(ctx, wompiTx, status); err != nil {
			return nil, err
		}
	}

	return &dto.TransactionStatusResponse{
		WompiID:   wompiTx.ID,
		Reference: wompiTx.Reference,
		Status:    wompiTx.Status,
		Final:     status.IsFinal(),
	}, nil
}

func (s *webhookServiceImpl) process(ctx context.Context, ev *model.WompiEvent) error {
	// Only transaction updates carry billing effects; everything else is
	// acknowledged so the gateway stops redelivering.
	if ev.Event != "transaction.updated" || ev.Data.Transaction == nil {
		return nil
	}

	wompiTx := ev.Data.Transaction
	status, err := model.ParseTransactionStatus(wompiTx.Status)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	// Non-final statuses settle later; wait for the follow-up delivery.
	if !status.IsFinal() {
		return nil
	}

	return s.reconciler.Reconcile(ctx, wompiTx, status)
}
