package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"wompi-billing-service/internal/config"
	"wompi-billing-service/internal/dto"
	"wompi-billing-service/internal/model"
	"wompi-billing-service/internal/repository"
	"wompi-billing-service/internal/wompi"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const checkoutExpirationMinutes = 15

type BillingService interface {
	// Checkout creates a pending invoice for the workspace and plan and
	// returns the gateway Web Checkout parameters. The invoice's reference
	// is what later webhook deliveries are matched against.
	Checkout(ctx context.Context, workspaceID, planID string) (*dto.CheckoutResponse, error)
	// CancelSubscription stops renewal for the workspace's subscription. With
	// atPeriodEnd the subscription stays usable until the paid period runs
	// out; otherwise it is canceled immediately.
	CancelSubscription(ctx context.Context, workspaceID string, atPeriodEnd bool) error
	ListInvoices(ctx context.Context, workspaceID string) ([]*dto.InvoiceResponse, error)
	// ListInvoiceTransactions returns the payment attempts recorded for one
	// of the workspace's invoices, newest last.
	ListInvoiceTransactions(ctx context.Context, workspaceID, invoiceID string) ([]*dto.TransactionResponse, error)
	ListPlans(ctx context.Context) ([]*dto.PlanResponse, error)
}

type billingServiceImpl struct {
	db               *gorm.DB
	invoiceRepo      repository.InvoiceRepository
	transactionRepo  repository.TransactionRepository
	planRepo         repository.PlanRepository
	workspaceRepo    repository.WorkspaceRepository
	subscriptionRepo repository.SubscriptionRepository
	wompiCfg         *config.Wompi
	currency         string
	baseURL          string
}

func NewBillingService(
	db *gorm.DB,
	invoiceRepo repository.InvoiceRepository,
	transactionRepo repository.TransactionRepository,
	planRepo repository.PlanRepository,
	workspaceRepo repository.WorkspaceRepository,
	subscriptionRepo repository.SubscriptionRepository,
	wompiCfg *config.Wompi,
	currency, baseURL string,
) BillingService {
	return &billingServiceImpl{
		db:               db,
		invoiceRepo:      invoiceRepo,
		transactionRepo:  transactionRepo,
		planRepo:         planRepo,
		workspaceRepo:    workspaceRepo,
		subscriptionRepo: subscriptionRepo,
		wompiCfg:         wompiCfg,
		currency:         currency,
		baseURL:          baseURL,
	}
}

func (s *billingServiceImpl) Checkout(ctx context.Context, workspaceID, planID string) (*dto.CheckoutResponse, error) {
	plan, err := s.planRepo.GetByID(ctx, s.db, planID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}

	reference := wompi.NewInvoiceReference()
	invoice := &model.Invoice{
		ID:            uuid.NewString(),
		Reference:     reference,
		WorkspaceID:   workspace.ID,
		PlanID:        plan.ID,
		AmountInCents: plan.AmountInCents,
		Currency:      s.currency,
		Status:        model.InvoiceStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.invoiceRepo.Create(ctx, tx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	expiration := time.Now().Add(checkoutExpirationMinutes * time.Minute).UTC().Format(time.RFC3339)
	redirectURL := s.wompiCfg.RedirectURL
	if redirectURL == "" {
		redirectURL = s.baseURL + "/billing/success"
	}

	params := map[string]string{
		"public-key":          s.wompiCfg.PublicKey,
		"currency":            s.currency,
		"amount-in-cents":     strconv.FormatInt(plan.AmountInCents, 10),
		"reference":           reference,
		"signature:integrity": wompi.IntegritySignature(reference, plan.AmountInCents, s.currency, expiration, s.wompiCfg.IntegritySecret),
		"redirect-url":        redirectURL,
		"customer-data:email": workspace.CustomerEmail,
		"expiration-time":     expiration,
	}

	return &dto.CheckoutResponse{
		InvoiceID:      invoice.ID,
		Reference:      reference,
		AmountInCents:  plan.AmountInCents,
		Currency:       s.currency,
		CheckoutParams: params,
	}, nil
}

func (s *billingServiceImpl) CancelSubscription(ctx context.Context, workspaceID string, atPeriodEnd bool) error {
	sub, err := s.subscriptionRepo.GetByWorkspace(ctx, s.db, workspaceID)
	if err != nil {
		return err
	}

	if err := s.subscriptionRepo.Cancel(ctx, sub.ID, atPeriodEnd); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

func (s *billingServiceImpl) ListInvoices(ctx context.Context, workspaceID string) ([]*dto.InvoiceResponse, error) {
	invoices, err := s.invoiceRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	out := make([]*dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp := &dto.InvoiceResponse{
			ID:            inv.ID,
			Reference:     inv.Reference,
			Status:        inv.Status,
			AmountInCents: inv.AmountInCents,
			Currency:      inv.Currency,
			AttemptCount:  inv.AttemptCount,
			CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
		}
		if inv.PaidAt != nil {
			paidAt := inv.PaidAt.Format(time.RFC3339)
			resp.PaidAt = &paidAt
		}
		out[i] = resp
	}
	return out, nil
}

func (s *billingServiceImpl) ListInvoiceTransactions(ctx context.Context, workspaceID, invoiceID string) ([]*dto.TransactionResponse, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	// A foreign invoice is indistinguishable from a missing one.
	if invoice.WorkspaceID != workspaceID {
		return nil, gorm.ErrRecordNotFound
	}

	transactions, err := s.transactionRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]*dto.TransactionResponse, len(transactions))
	for i, tx := range transactions {
		out[i] = &dto.TransactionResponse{
			WompiID:           tx.WompiID,
			AmountInCents:     tx.AmountInCents,
			Currency:          tx.Currency,
			Status:            tx.Status,
			PaymentMethodType: tx.PaymentMethodType,
			Reference:         tx.Reference,
			CreatedAt:         tx.CreatedAt.Format(time.RFC3339),
		}
	}
	return out, nil
}

func (s *billingServiceImpl) ListPlans(ctx context.Context) ([]*dto.PlanResponse, error) {
	plans, err := s.planRepo.ListActive(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	out := make([]*dto.PlanResponse, len(plans))
	for i, plan := range plans {
		out[i] = &dto.PlanResponse{
			ID:              plan.ID,
			Name:            plan.Name,
			AmountInCents:   plan.AmountInCents,
			Currency:        plan.Currency,
			BillingInterval: plan.BillingInterval,
			QueryLimit:      plan.QueryLimit,
		}
	}
	return out, nil
}
