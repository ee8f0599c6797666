package dto

type CheckoutRequest struct {
	PlanID string `json:"plan_id"`
}

// CheckoutResponse carries everything the frontend needs to open the
// gateway's Web Checkout for the newly created invoice.
type CheckoutResponse struct {
	InvoiceID      string            `json:"invoice_id"`
	Reference      string            `json:"reference"`
	AmountInCents  int64             `json:"amount_in_cents"`
	Currency       string            `json:"currency"`
	CheckoutParams map[string]string `json:"checkout_params"`
}

type CancelSubscriptionRequest struct {
	// AtPeriodEnd keeps access until the paid period ends instead of
	// canceling immediately.
	AtPeriodEnd bool `json:"at_period_end"`
}

type RetryResponse struct {
	InvoiceID          string `json:"invoice_id"`
	WompiTransactionID string `json:"wompi_transaction_id"`
	Reference          string `json:"reference"`
	Status             string `json:"status"`
	AttemptCount       int    `json:"attempt_count"`
}

// TransactionStatusResponse answers the post-checkout status poll.
type TransactionStatusResponse struct {
	WompiID   string `json:"wompi_id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Final     bool   `json:"final"`
}

type TransactionResponse struct {
	WompiID           string `json:"wompi_id"`
	AmountInCents     int64  `json:"amount_in_cents"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	PaymentMethodType string `json:"payment_method_type,omitempty"`
	Reference         string `json:"reference"`
	CreatedAt         string `json:"created_at"`
}

type InvoiceResponse struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	Status        string  `json:"status"`
	AmountInCents int64   `json:"amount_in_cents"`
	Currency      string  `json:"currency"`
	AttemptCount  int     `json:"attempt_count"`
	PaidAt        *string `json:"paid_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type PlanResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AmountInCents   int64  `json:"amount_in_cents"`
	Currency        string `json:"currency"`
	BillingInterval string `json:"billing_interval"`
	QueryLimit      int    `json:"query_limit"`
}
