package service

import "errors"

// Webhook ingestion error classes. Handlers translate these into HTTP codes;
// everything else is treated as a retryable processing failure so the
// gateway redelivers.
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

var (
	ErrUnknownPlan         = errors.New("unknown or inactive plan")
	ErrInvoiceNotRetryable = errors.New("invoice is not in failed status")
	ErrNoPaymentSource     = errors.New("no payment source available")
	ErrRetryExhausted      = errors.New("maximum retry attempts reached")
)
