package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"wompi-billing-service/internal/client"
	"wompi-billing-service/internal/model"
	"wompi-billing-service/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconciler materializes invoice, subscription and transaction state from a
// verified gateway event. Every method is safe to re-invoke for an event that
// was already applied: the paid short-circuit, the unique constraints behind
// the find-or-create and insert-or-ignore writes, and the status-guarded
// invoice updates make replayed and out-of-order deliveries converge on the
// same final state.
type Reconciler struct {
	db                *gorm.DB
	wompiClient       client.WompiClient
	invoiceRepo       repository.InvoiceRepository
	transactionRepo   repository.TransactionRepository
	subscriptionRepo  repository.SubscriptionRepository
	paymentSourceRepo repository.PaymentSourceRepository
	workspaceRepo     repository.WorkspaceRepository
	planRepo          repository.PlanRepository
	notifier          NotificationService
	currency          string
}

func NewReconciler(
	db *gorm.DB,
	wompiClient client.WompiClient,
	invoiceRepo repository.InvoiceRepository,
	transactionRepo repository.TransactionRepository,
	subscriptionRepo repository.SubscriptionRepository,
	paymentSourceRepo repository.PaymentSourceRepository,
	workspaceRepo repository.WorkspaceRepository,
	planRepo repository.PlanRepository,
	notifier NotificationService,
	currency string,
) *Reconciler {
	return &Reconciler{
		db:                db,
		wompiClient:       wompiClient,
		invoiceRepo:       invoiceRepo,
		transactionRepo:   transactionRepo,
		subscriptionRepo:  subscriptionRepo,
		paymentSourceRepo: paymentSourceRepo,
		workspaceRepo:     workspaceRepo,
		planRepo:          planRepo,
		notifier:          notifier,
		currency:          currency,
	}
}

// Reconcile applies a final-status transaction to billing state. All writes
// happen inside one database transaction; any error aborts the whole
// operation with no partial state.
func (r *Reconciler) Reconcile(ctx context.Context, wompiTx *model.WompiTransaction, status model.TransactionStatus) error {
	if status.IsApproved() {
		return r.applyApproved(ctx, wompiTx)
	}
	return r.applyFailed(ctx, wompiTx)
}

func (r *Reconciler) applyApproved(ctx context.Context, wompiTx *model.WompiTransaction) error {
	var paidInvoice *model.Invoice

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := r.invoiceRepo.GetByReference(ctx, tx, wompiTx.Reference)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Out-of-band payment (first-time checkout without a local
			// invoice): resolve the payer to a workspace and build one.
			invoice, err = r.createOutOfBandInvoice(ctx, tx, wompiTx)
			if err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("get invoice by reference: %w", err)
		}

		// Primary duplicate-delivery guard: a paid invoice is terminal.
		if invoice.Status == model.InvoiceStatusPaid {
			return nil
		}

		plan, err := r.planRepo.GetByID(ctx, tx, invoice.PlanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrUnknownPlan, invoice.PlanID)
			}
			return fmt.Errorf("get plan: %w", err)
		}

		now := time.Now()
		periodStart := now
		periodEnd := addBillingInterval(now, plan.BillingInterval)

		sub, err := r.subscriptionRepo.FindOrCreate(ctx, tx, &model.Subscription{
			ID:                 uuid.NewString(),
			WorkspaceID:        invoice.WorkspaceID,
			PlanID:             invoice.PlanID,
			Status:             model.SubscriptionStatusActive,
			CurrentPeriodStart: periodStart,
			CurrentPeriodEnd:   periodEnd,
		})
		if err != nil {
			return fmt.Errorf("find or create subscription: %w", err)
		}

		if err := r.subscriptionRepo.Activate(ctx, tx, sub.ID, invoice.PlanID, periodStart, periodEnd); err != nil {
			return fmt.Errorf("activate subscription: %w", err)
		}

		if err := r.invoiceRepo.MarkPaid(ctx, tx, invoice.ID, wompiTx.ID, sub.ID, periodStart, periodEnd); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}

		if _, err := r.transactionRepo.CreateIfAbsent(ctx, tx, r.buildTransactionRow(invoice, wompiTx)); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		invoice.Status = model.InvoiceStatusPaid
		invoice.SubscriptionID = &sub.ID
		paidInvoice = invoice
		return nil
	})
	if err != nil {
		return err
	}

	if paidInvoice == nil {
		// Already paid before this delivery; nothing was written.
		return nil
	}

	// Post-commit side effects. Both are best-effort: a gateway hiccup while
	// fetching payment source details must not undo a paid invoice.
	if wompiTx.PaymentSourceID != "" {
		if err := r.capturePaymentSource(ctx, paidInvoice, wompiTx); err != nil {
			log.Printf("capture payment source %s: %v", wompiTx.PaymentSourceID, err)
		}
	}

	invoice := paidInvoice
	notifyAsync(func() {
		r.notifier.NotifyPaymentSucceeded(context.Background(), invoice)
	})

	return nil
}

func (r *Reconciler) applyFailed(ctx context.Context, wompiTx *model.WompiTransaction) error {
	var failedInvoice *model.Invoice

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := r.invoiceRepo.GetByReference(ctx, tx, wompiTx.Reference)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to fail; a decline for a reference we never issued.
			return nil
		}
		if err != nil {
			return fmt.Errorf("get invoice by reference: %w", err)
		}

		if _, err := r.transactionRepo.CreateIfAbsent(ctx, tx, r.buildTransactionRow(invoice, wompiTx)); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		// A stale decline after a durably applied approval must not regress
		// the invoice: the repository guard skips paid rows.
		if invoice.Status == model.InvoiceStatusPaid {
			return nil
		}

		nextRetry := nextRetryAt(invoice.AttemptCount + 1)
		if err := r.invoiceRepo.MarkFailed(ctx, tx, invoice.ID, &nextRetry); err != nil {
			return fmt.Errorf("mark invoice failed: %w", err)
		}

		if invoice.SubscriptionID != nil {
			if err := r.subscriptionRepo.MarkPastDue(ctx, tx, *invoice.SubscriptionID); err != nil {
				return fmt.Errorf("mark subscription past due: %w", err)
			}
		}

		invoice.AttemptCount++
		failedInvoice = invoice
		return nil
	})
	if err != nil {
		return err
	}

	if failedInvoice != nil {
		invoice := failedInvoice
		notifyAsync(func() {
			r.notifier.NotifyPaymentFailed(context.Background(), invoice, invoice.AttemptCount)
		})
	}

	return nil
}

func (r *Reconciler) createOutOfBandInvoice(ctx context.Context, tx *gorm.DB, wompiTx *model.WompiTransaction) (*model.Invoice, error) {
	if wompiTx.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: out-of-band transaction without customer email", ErrMalformedEvent)
	}

	workspace, err := r.workspaceRepo.FindOrCreateByCustomerEmail(ctx, tx, wompiTx.CustomerEmail)
	if err != nil {
		return nil, fmt.Errorf("find or create workspace: %w", err)
	}

	plan, err := r.resolvePlanByAmount(ctx, tx, wompiTx.AmountInCents)
	if err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		ID:            uuid.NewString(),
		Reference:     wompiTx.Reference,
		WorkspaceID:   workspace.ID,
		PlanID:        plan.ID,
		AmountInCents: wompiTx.AmountInCents,
		Currency:      r.currency,
		Status:        model.InvoiceStatusPending,
	}
	if err := r.invoiceRepo.Create(ctx, tx, invoice); err != nil {
		return nil, fmt.Errorf("create out-of-band invoice: %w", err)
	}

	return invoice, nil
}

// resolvePlanByAmount maps an out-of-band charge onto a plan by its price.
// Checkout references always carry a local invoice, so this only runs for
// payments initiated directly at the gateway.
func (r *Reconciler) resolvePlanByAmount(ctx context.Context, tx *gorm.DB, amountInCents int64) (*model.Plan, error) {
	plans, err := r.planRepo.ListActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	for _, plan := range plans {
		if plan.AmountInCents == amountInCents {
			return plan, nil
		}
	}
	return nil, fmt.Errorf("%w: no plan priced at %d", ErrUnknownPlan, amountInCents)
}

func (r *Reconciler) capturePaymentSource(ctx context.Context, invoice *model.Invoice, wompiTx *model.WompiTransaction) error {
	// Renewal payments reuse an already-captured source; skip the gateway
	// round trip when the row exists.
	if _, err := r.paymentSourceRepo.GetByWompiID(ctx, wompiTx.PaymentSourceID); err == nil {
		return nil
	}

	wompiSource, err := r.wompiClient.GetPaymentSource(ctx, wompiTx.PaymentSourceID)
	if err != nil {
		return err
	}

	var expiresAt *time.Time
	if wompiSource.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, wompiSource.ExpiresAt); err == nil {
			expiresAt = &t
		}
	}

	var storedID string
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hasExisting, err := r.paymentSourceRepo.HasAnyForWorkspace(ctx, tx, invoice.WorkspaceID)
		if err != nil {
			return err
		}

		stored, err := r.paymentSourceRepo.CreateIfAbsent(ctx, tx, &model.PaymentSource{
			ID:            uuid.NewString(),
			WompiID:       wompiSource.ID,
			WorkspaceID:   invoice.WorkspaceID,
			Type:          wompiSource.Type,
			Status:        wompiSource.Status,
			CustomerEmail: wompiSource.CustomerEmail,
			LastFour:      wompiSource.LastFour,
			ExpiresAt:     expiresAt,
			IsDefault:     !hasExisting,
		})
		if err != nil {
			return err
		}
		storedID = stored.ID

		if invoice.SubscriptionID != nil {
			return r.subscriptionRepo.SetPaymentSource(ctx, tx, *invoice.SubscriptionID, storedID)
		}
		sub, err := r.subscriptionRepo.GetByWorkspace(ctx, tx, invoice.WorkspaceID)
		if err != nil {
			return err
		}
		return r.subscriptionRepo.SetPaymentSource(ctx, tx, sub.ID, storedID)
	})
	return err
}

func (r *Reconciler) buildTransactionRow(invoice *model.Invoice, wompiTx *model.WompiTransaction) *model.Transaction {
	raw, _ := json.Marshal(wompiTx)
	currency := wompiTx.Currency
	if currency == "" {
		currency = r.currency
	}
	return &model.Transaction{
		WompiID:           wompiTx.ID,
		InvoiceID:         invoice.ID,
		WorkspaceID:       invoice.WorkspaceID,
		AmountInCents:     wompiTx.AmountInCents,
		Currency:          currency,
		Status:            wompiTx.Status,
		PaymentMethodType: wompiTx.PaymentMethodType,
		Reference:         wompiTx.Reference,
		StatusMessage:     wompiTx.StatusMessage,
		RawPayload:        string(raw),
	}
}

func addBillingInterval(t time.Time, interval string) time.Time {
	if interval == "year" {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// nextRetryAt follows the dunning schedule: +2, +5 and +9 days for the first
// three attempts, +12 afterwards. Consumed by an external scheduler.
func nextRetryAt(attemptCount int) time.Time {
	retryDays := []int{2, 5, 9}
	days := 12
	if attemptCount >= 1 && attemptCount <= len(retryDays) {
		days = retryDays[attemptCount-1]
	}
	return time.Now().AddDate(0, 0, days)
}
