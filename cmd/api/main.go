package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wompi-billing-service/internal/client"
	"wompi-billing-service/internal/config"
	"wompi-billing-service/internal/repository"
	"wompi-billing-service/internal/server"
	"wompi-billing-service/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitMysqlClient(cfg.DatabaseURL)
	wompiClient := client.NewWompiClient(&cfg.Wompi)

	invoiceRepo := repository.NewInvoiceRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	paymentSourceRepo := repository.NewPaymentSourceRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	planRepo := repository.NewPlanRepository()
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	notifier := service.NewLogNotifier()

	reconciler := service.NewReconciler(
		db, wompiClient,
		invoiceRepo, transactionRepo, subscriptionRepo,
		paymentSourceRepo, workspaceRepo, planRepo,
		notifier, cfg.Billing.Currency,
	)

	webhookService := service.NewWebhookService(cfg.Wompi.WebhookSecret, webhookEventRepo, transactionRepo, wompiClient, reconciler)
	billingService := service.NewBillingService(db, invoiceRepo, transactionRepo, planRepo, workspaceRepo, subscriptionRepo, &cfg.Wompi, cfg.Billing.Currency, cfg.BaseURL)
	retryService := service.NewRetryService(
		db, wompiClient,
		invoiceRepo, transactionRepo, subscriptionRepo, paymentSourceRepo,
		cfg.Billing.Currency, cfg.Wompi.RedirectURL, cfg.Billing.MaxRetryAttempts,
	)
	accessService := service.NewAccessService(db, subscriptionRepo, planRepo, cfg.Billing.GraceDays)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(webhookService, billingService, retryService, accessService, cfg.Auth.JWTSecret)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
