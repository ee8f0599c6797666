package service

import (
	"context"
	"log"

	"wompi-billing-service/internal/model"
)

// NotificationService is a best-effort side channel. Implementations must not
// block reconciliation; callers dispatch through notifyAsync.
type NotificationService interface {
	NotifyPaymentSucceeded(ctx context.Context, invoice *model.Invoice)
	NotifyPaymentFailed(ctx context.Context, invoice *model.Invoice, attemptCount int)
}

type logNotifier struct{}

// NewLogNotifier returns a NotificationService that only logs. Email or chat
// delivery plugs in behind the same interface.
func NewLogNotifier() NotificationService {
	return &logNotifier{}
}

func (n *logNotifier) NotifyPaymentSucceeded(ctx context.Context, invoice *model.Invoice) {
	log.Printf("payment succeeded: invoice=%s workspace=%s amount=%d", invoice.ID, invoice.WorkspaceID, invoice.AmountInCents)
}

func (n *logNotifier) NotifyPaymentFailed(ctx context.Context, invoice *model.Invoice, attemptCount int) {
	log.Printf("payment failed: invoice=%s workspace=%s attempt=%d", invoice.ID, invoice.WorkspaceID, attemptCount)
}

// notifyAsync runs fn on its own goroutine and swallows panics so the
// notification path can never fail or delay the caller.
func notifyAsync(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notification panic recovered: %v", r)
			}
		}()
		fn()
	}()
}
