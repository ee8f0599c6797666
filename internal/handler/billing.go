package handler

import (
	"errors"
	"net/http"

	"wompi-billing-service/internal/dto"
	"wompi-billing-service/internal/middleware"
	"wompi-billing-service/internal/service"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type BillingHandler struct {
	billingService service.BillingService
	retryService   service.RetryService
	accessService  service.AccessService
}

func NewBillingHandler(billingService service.BillingService, retryService service.RetryService, accessService service.AccessService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		retryService:   retryService,
		accessService:  accessService,
	}
}

func (h *BillingHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.PlanID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "plan_id is required")
	}

	resp, err := h.billingService.Checkout(ctx, middleware.WorkspaceID(c), req.PlanID)
	if errors.Is(err, service.ErrUnknownPlan) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown plan")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) CancelSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	err := h.billingService.CancelSubscription(ctx, middleware.WorkspaceID(c), req.AtPeriodEnd)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no subscription for workspace")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"canceled": true, "at_period_end": req.AtPeriodEnd})
}

func (h *BillingHandler) RetryInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID := c.Param("invoice_id")
	if invoiceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing invoice id")
	}

	resp, err := h.retryService.Retry(ctx, middleware.WorkspaceID(c), invoiceID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	case errors.Is(err, service.ErrInvoiceNotRetryable):
		return echo.NewHTTPError(http.StatusBadRequest, "invoice is not in failed status")
	case errors.Is(err, service.ErrNoPaymentSource):
		return echo.NewHTTPError(http.StatusBadRequest, "no payment source available")
	case errors.Is(err, service.ErrRetryExhausted):
		return echo.NewHTTPError(http.StatusConflict, "maximum retry attempts reached")
	default:
		return err
	}
}

func (h *BillingHandler) CheckAccess(c echo.Context) error {
	ctx := c.Request().Context()

	status, err := h.accessService.CheckWorkspaceAccess(ctx, middleware.WorkspaceID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, status)
}

func (h *BillingHandler) ListInvoices(c echo.Context) error {
	ctx := c.Request().Context()

	invoices, err := h.billingService.ListInvoices(ctx, middleware.WorkspaceID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, invoices)
}

func (h *BillingHandler) ListInvoiceTransactions(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID := c.Param("invoice_id")
	if invoiceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing invoice id")
	}

	transactions, err := h.billingService.ListInvoiceTransactions(ctx, middleware.WorkspaceID(c), invoiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transactions)
}

func (h *BillingHandler) ListPlans(c echo.Context) error {
	ctx := c.Request().Context()

	plans, err := h.billingService.ListPlans(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, plans)
}
