package model

import "fmt"

// TransactionStatus is the closed set of gateway transaction states. Anything
// outside this set is rejected at the boundary instead of being stored.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusDeclined TransactionStatus = "DECLINED"
	StatusVoided   TransactionStatus = "VOIDED"
	StatusError    TransactionStatus = "ERROR"
)

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch TransactionStatus(s) {
	case StatusPending, StatusApproved, StatusDeclined, StatusVoided, StatusError:
		return TransactionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
}

// IsFinal reports whether the gateway will not change this status again.
func (s TransactionStatus) IsFinal() bool {
	return s == StatusApproved || s == StatusDeclined || s == StatusVoided || s == StatusError
}

func (s TransactionStatus) IsApproved() bool {
	return s == StatusApproved
}

type WompiTransaction struct {
	ID                string `json:"id"`
	AmountInCents     int64  `json:"amount_in_cents"`
	Currency          string `json:"currency"`
	Reference         string `json:"reference"`
	Status            string `json:"status"`
	StatusMessage     string `json:"status_message"`
	PaymentMethodType string `json:"payment_method_type"`
	PaymentSourceID   string `json:"payment_source_id"`
	CustomerEmail     string `json:"customer_email"`
	FinalizedAt       string `json:"finalized_at"`
}

type WompiEventData struct {
	Transaction *WompiTransaction `json:"transaction"`
}

type WompiEvent struct {
	Event  string         `json:"event"`
	SentAt string         `json:"sent_at"`
	Data   WompiEventData `json:"data"`
}

type WompiPaymentSource struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	CustomerEmail string `json:"customer_email"`
	LastFour      string `json:"last_four"`
	ExpiresAt     string `json:"expires_at"`
}
