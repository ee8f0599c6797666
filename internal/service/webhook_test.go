package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"wompi-billing-service/internal/model"
	"wompi-billing-service/internal/repository"
	"wompi-billing-service/internal/wompi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookTestSecret = "test-events-secret"

func newTestWebhookService(t *testing.T) (WebhookService, *gorm.DB) {
	svc, _, db := newTestWebhookServiceWithClient(t, nil)
	return svc, db
}

func newTestWebhookServiceWithClient(t *testing.T, fake *fakeWompiClient) (WebhookService, *fakeWompiClient, *gorm.DB) {
	t.Helper()

	if fake == nil {
		fake = &fakeWompiClient{}
	}
	r, db := newTestReconciler(t, fake)
	svc := NewWebhookService(webhookTestSecret, repository.NewWebhookEventRepository(db), repository.NewTransactionRepository(db), fake, r)
	return svc, fake, db
}

func signedEvent(eventType, wompiID, reference, status string, amount int64) ([]byte, string) {
	body := []byte(fmt.Sprintf(
		`{"event":%q,"data":{"transaction":{"id":%q,"reference":%q,"status":%q,"amount_in_cents":%d,"currency":"COP","customer_email":"owner@example.com","payment_method_type":"CARD"}}}`,
		eventType, wompiID, reference, status, amount,
	))
	return body, wompi.ComputeSignature(body, webhookTestSecret)
}

func TestHandleWebhookApprovedEndToEnd(t *testing.T) {
	svc, db := newTestWebhookService(t)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	invoice := seedPendingInvoice(t, db, plan, ws, "INV-200")

	body, sig := signedEvent("transaction.updated", "tx_200", "INV-200", "APPROVED", plan.AmountInCents)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))

	var event model.WebhookEvent
	require.NoError(t, db.First(&event, "idempotency_key = ?", "transaction.updated:tx_200:INV-200:APPROVED").Error)
	assert.Equal(t, model.WebhookStatusProcessed, event.Status)
	assert.Equal(t, 1, event.AttemptCount)
	assert.NotNil(t, event.ProcessedAt)
	assert.Nil(t, event.LastError)

	var got model.Invoice
	require.NoError(t, db.First(&got, "id = ?", invoice.ID).Error)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	svc, db := newTestWebhookService(t)

	body, _ := signedEvent("transaction.updated", "tx_201", "INV-201", "APPROVED", 100)
	err := svc.HandleWebhook(context.Background(), body, wompi.ComputeSignature(body, "wrong-secret"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// A rejected delivery must leave no trace in the event store.
	var count int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestHandleWebhookRejectsMalformedPayload(t *testing.T) {
	svc, db := newTestWebhookService(t)

	tests := []struct {
		name string
		body []byte
	}{
		{"invalid json", []byte(`{"event":`)},
		{"unknown status", []byte(`{"event":"transaction.updated","data":{"transaction":{"id":"tx_1","reference":"INV-1","status":"MAYBE"}}}`)},
		{"no identity", []byte(`{"data":{"transaction":{}}}`)},
	}
	for _, tt := range tests {
		sig := wompi.ComputeSignature(tt.body, webhookTestSecret)
		err := svc.HandleWebhook(context.Background(), tt.body, sig)
		assert.ErrorIs(t, err, ErrMalformedEvent, tt.name)
	}

	var count int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestHandleWebhookReplayBumpsAttemptCount(t *testing.T) {
	svc, db := newTestWebhookService(t)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	seedPendingInvoice(t, db, plan, ws, "INV-202")

	body, sig := signedEvent("transaction.updated", "tx_202", "INV-202", "APPROVED", plan.AmountInCents)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	}

	var events []model.WebhookEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].AttemptCount)
	assert.Equal(t, model.WebhookStatusProcessed, events[0].Status)

	// Replays re-run reconciliation but the paid invoice absorbs them.
	var txCount int64
	require.NoError(t, db.Model(&model.Transaction{}).Count(&txCount).Error)
	assert.EqualValues(t, 1, txCount)
}

func TestHandleWebhookFailedEventRecordsError(t *testing.T) {
	svc, db := newTestWebhookService(t)
	// No plan seeded: the out-of-band approval cannot resolve a plan and the
	// reconciler errors out.
	body, sig := signedEvent("transaction.updated", "tx_203", "WOMPI-direct-3", "APPROVED", 100)
	err := svc.HandleWebhook(context.Background(), body, sig)
	require.Error(t, err)

	var event model.WebhookEvent
	require.NoError(t, db.First(&event, "wompi_id = ?", "tx_203").Error)
	assert.Equal(t, model.WebhookStatusFailed, event.Status)
	require.NotNil(t, event.LastError)
	assert.NotEmpty(t, *event.LastError)
}

func TestHandleWebhookPendingStatusIsAcknowledged(t *testing.T) {
	svc, db := newTestWebhookService(t)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	invoice := seedPendingInvoice(t, db, plan, ws, "INV-204")

	body, sig := signedEvent("transaction.updated", "tx_204", "INV-204", "PENDING", plan.AmountInCents)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))

	var event model.WebhookEvent
	require.NoError(t, db.First(&event, "wompi_id = ?", "tx_204").Error)
	assert.Equal(t, model.WebhookStatusProcessed, event.Status)

	// No effects until a final status arrives.
	var got model.Invoice
	require.NoError(t, db.First(&got, "id = ?", invoice.ID).Error)
	assert.Equal(t, model.InvoiceStatusPending, got.Status)
}

func TestHandleWebhookIgnoresUnrelatedEventTypes(t *testing.T) {
	svc, db := newTestWebhookService(t)

	body, sig := signedEvent("nequi_token.updated", "tok_1", "", "APPROVED", 0)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))

	var event model.WebhookEvent
	require.NoError(t, db.First(&event, "event_type = ?", "nequi_token.updated").Error)
	assert.Equal(t, model.WebhookStatusProcessed, event.Status)

	var invCount int64
	require.NoError(t, db.Model(&model.Invoice{}).Count(&invCount).Error)
	assert.EqualValues(t, 0, invCount)
}

func TestHandleWebhookConcurrentDuplicateDelivery(t *testing.T) {
	svc, db := newTestWebhookService(t)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	invoice := seedPendingInvoice(t, db, plan, ws, "INV-206")

	body, sig := signedEvent("transaction.updated", "tx_206", "INV-206", "APPROVED", plan.AmountInCents)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.HandleWebhook(context.Background(), body, sig)
		}()
	}
	wg.Wait()
	close(errs)

	// Neither delivery may surface a duplicate-key violation.
	for err := range errs {
		assert.NoError(t, err)
	}

	var got model.Invoice
	require.NoError(t, db.First(&got, "id = ?", invoice.ID).Error)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)

	var subCount, txCount int64
	require.NoError(t, db.Model(&model.Subscription{}).Where("workspace_id = ?", ws.ID).Count(&subCount).Error)
	require.NoError(t, db.Model(&model.Transaction{}).Count(&txCount).Error)
	assert.EqualValues(t, 1, subCount)
	assert.EqualValues(t, 1, txCount)
}

func TestCheckTransactionAnswersFromLocalRow(t *testing.T) {
	svc, _, db := newTestWebhookServiceWithClient(t, nil)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	invoice := seedPendingInvoice(t, db, plan, ws, "INV-210")

	require.NoError(t, db.Create(&model.Transaction{
		WompiID:       "tx_210",
		InvoiceID:     invoice.ID,
		WorkspaceID:   ws.ID,
		AmountInCents: invoice.AmountInCents,
		Currency:      "COP",
		Status:        string(model.StatusApproved),
		Reference:     invoice.Reference,
	}).Error)

	// getTransactionFn is unset; a gateway call would error out, so success
	// proves the stored row answered.
	resp, err := svc.CheckTransaction(context.Background(), "tx_210")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusApproved), resp.Status)
	assert.True(t, resp.Final)
}

func TestCheckTransactionPollsGatewayAndReconciles(t *testing.T) {
	svc, fake, db := newTestWebhookServiceWithClient(t, nil)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	invoice := seedPendingInvoice(t, db, plan, ws, "INV-211")

	fake.getTransactionFn = func(ctx context.Context, transactionID string) (*model.WompiTransaction, error) {
		return &model.WompiTransaction{
			ID:            transactionID,
			AmountInCents: plan.AmountInCents,
			Currency:      "COP",
			Reference:     "INV-211",
			Status:        string(model.StatusApproved),
			CustomerEmail: ws.CustomerEmail,
		}, nil
	}

	resp, err := svc.CheckTransaction(context.Background(), "tx_211")
	require.NoError(t, err)
	assert.True(t, resp.Final)
	assert.Equal(t, string(model.StatusApproved), resp.Status)

	// The poll applied the approval without waiting for the webhook.
	var got model.Invoice
	require.NoError(t, db.First(&got, "id = ?", invoice.ID).Error)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)
}

func TestCheckTransactionNonFinalStatus(t *testing.T) {
	svc, fake, db := newTestWebhookServiceWithClient(t, nil)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	invoice := seedPendingInvoice(t, db, plan, ws, "INV-212")

	fake.getTransactionFn = func(ctx context.Context, transactionID string) (*model.WompiTransaction, error) {
		return &model.WompiTransaction{
			ID:        transactionID,
			Reference: "INV-212",
			Status:    string(model.StatusPending),
		}, nil
	}

	resp, err := svc.CheckTransaction(context.Background(), "tx_212")
	require.NoError(t, err)
	assert.False(t, resp.Final)

	var got model.Invoice
	require.NoError(t, db.First(&got, "id = ?", invoice.ID).Error)
	assert.Equal(t, model.InvoiceStatusPending, got.Status)
}

func TestHandleWebhookOutOfOrderDeliveries(t *testing.T) {
	svc, db := newTestWebhookService(t)
	plan := seedPlan(t, db)
	ws := seedWorkspace(t, db)
	invoice := seedPendingInvoice(t, db, plan, ws, "INV-205")

	// Approval lands first, then a stale decline for the same reference.
	approved, approvedSig := signedEvent("transaction.updated", "tx_205a", "INV-205", "APPROVED", plan.AmountInCents)
	declined, declinedSig := signedEvent("transaction.updated", "tx_205b", "INV-205", "DECLINED", plan.AmountInCents)

	require.NoError(t, svc.HandleWebhook(context.Background(), approved, approvedSig))
	require.NoError(t, svc.HandleWebhook(context.Background(), declined, declinedSig))

	var got model.Invoice
	require.NoError(t, db.First(&got, "id = ?", invoice.ID).Error)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)

	var eventCount int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&eventCount).Error)
	assert.EqualValues(t, 2, eventCount)
}
