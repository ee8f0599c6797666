package service

import (
	"context"
	"errors"
	"testing"

	"wompi-billing-service/internal/client"
	"wompi-billing-service/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	// A single connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)

	if err := client.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	return db
}

// fakeWompiClient lets tests script gateway responses and capture requests.
type fakeWompiClient struct {
	createTransactionFn func(ctx context.Context, req *client.CreateTransactionRequest) (*model.WompiTransaction, error)
	getTransactionFn    func(ctx context.Context, transactionID string) (*model.WompiTransaction, error)
	getPaymentSourceFn  func(ctx context.Context, paymentSourceID string) (*model.WompiPaymentSource, error)

	createRequests []*client.CreateTransactionRequest
}

func (f *fakeWompiClient) CreateTransaction(ctx context.Context, req *client.CreateTransactionRequest) (*model.WompiTransaction, error) {
	f.createRequests = append(f.createRequests, req)
	if f.createTransactionFn != nil {
		return f.createTransactionFn(ctx, req)
	}
	return nil, errors.New("createTransactionFn not set")
}

func (f *fakeWompiClient) GetTransaction(ctx context.Context, transactionID string) (*model.WompiTransaction, error) {
	if f.getTransactionFn != nil {
		return f.getTransactionFn(ctx, transactionID)
	}
	return nil, errors.New("getTransactionFn not set")
}

func (f *fakeWompiClient) GetPaymentSource(ctx context.Context, paymentSourceID string) (*model.WompiPaymentSource, error) {
	if f.getPaymentSourceFn != nil {
		return f.getPaymentSourceFn(ctx, paymentSourceID)
	}
	return nil, errors.New("getPaymentSourceFn not set")
}
