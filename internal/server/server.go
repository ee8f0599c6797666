package server

import (
	"context"

	"wompi-billing-service/internal/handler"
	"wompi-billing-service/internal/middleware"
	"wompi-billing-service/internal/service"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo           *echo.Echo
	webhookHandler *handler.WebhookHandler
	billingHandler *handler.BillingHandler
	jwtSecret      string
}

func NewServer(
	webhookService service.WebhookService,
	billingService service.BillingService,
	retryService service.RetryService,
	accessService service.AccessService,
	jwtSecret string,
) *Server {
	e := echo.New()

	e.Use(echomw.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:           e,
		webhookHandler: handler.NewWebhookHandler(webhookService),
		billingHandler: handler.NewBillingHandler(billingService, retryService, accessService),
		jwtSecret:      jwtSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- billing --------
	billing := api.Group("/billing")
	billing.GET("/plans", s.billingHandler.ListPlans)

	// Webhook is authenticated by its signature, not a bearer token.
	billing.POST("/webhook", s.webhookHandler.HandleWompiWebhook)

	authed := billing.Group("", middleware.AuthMiddleware(s.jwtSecret))
	authed.POST("/checkout", s.billingHandler.Checkout)
	authed.POST("/cancel", s.billingHandler.CancelSubscription)
	authed.POST("/retry/:invoice_id", s.billingHandler.RetryInvoice)
	authed.GET("/access", s.billingHandler.CheckAccess)
	authed.GET("/invoices", s.billingHandler.ListInvoices)
	authed.GET("/invoices/:invoice_id/transactions", s.billingHandler.ListInvoiceTransactions)
	authed.GET("/transactions/:wompi_id", s.webhookHandler.CheckTransaction)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
