package model

import "time"

const (
	WebhookStatusProcessing = "processing"
	WebhookStatusProcessed  = "processed"
	WebhookStatusFailed     = "failed"
)

const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusFailed  = "failed"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// WebhookEvent tracks processing attempts per idempotency key. At most one
// row exists per key; redeliveries bump attempt_count instead of inserting.
type WebhookEvent struct {
	ID             uint   `gorm:"primaryKey"`
	IdempotencyKey string `gorm:"size:255;uniqueIndex;not null"`
	Status         string `gorm:"size:32;index;not null"` // processing, processed, failed
	AttemptCount   int    `gorm:"not null;default:1"`
	Payload        string `gorm:"type:text"`
	Signature      string `gorm:"size:128"`
	EventType      string `gorm:"size:64;index"`
	WompiID        string `gorm:"size:64;index"` // gateway transaction id
	Reference      string `gorm:"size:128;index"`
	LastError      *string
	ProcessedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Transaction struct {
	ID                uint   `gorm:"primaryKey"`
	WompiID           string `gorm:"size:64;uniqueIndex;not null"`
	InvoiceID         string `gorm:"size:36;index"`
	WorkspaceID       string `gorm:"size:36;index"`
	AmountInCents     int64  `gorm:"not null"`
	Currency          string `gorm:"size:8;not null"`
	Status            string `gorm:"size:32;index;not null"` // PENDING, APPROVED, DECLINED, VOIDED, ERROR
	PaymentMethodType string `gorm:"size:32"`
	Reference         string `gorm:"size:128;index"`
	StatusMessage     string `gorm:"size:255"`
	RawPayload        string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Invoice struct {
	ID                 string `gorm:"primaryKey;size:36"` // uuid
	Reference          string `gorm:"size:128;uniqueIndex;not null"`
	SubscriptionID     *string
	WorkspaceID        string `gorm:"size:36;index;not null"`
	PlanID             string `gorm:"size:64;not null"`
	AmountInCents      int64  `gorm:"not null"`
	Currency           string `gorm:"size:8;not null"`
	Status             string `gorm:"size:32;index;not null"` // pending, paid, failed
	PeriodStart        *time.Time
	PeriodEnd          *time.Time
	AttemptCount       int `gorm:"not null;default:0"`
	NextRetryAt        *time.Time
	WompiTransactionID *string `gorm:"size:64"`
	PaidAt             *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Subscription has a unique index on workspace_id: one subscription per
// workspace, enforced by the database rather than application locks.
type Subscription struct {
	ID                 string `gorm:"primaryKey;size:36"` // uuid
	WorkspaceID        string `gorm:"size:36;uniqueIndex;not null"`
	PlanID             string `gorm:"size:64;not null"`
	PaymentSourceID    *string
	Status             string `gorm:"size:32;index;not null"` // active, trialing, past_due, canceled
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool `gorm:"not null;default:false"`
	CanceledAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type PaymentSource struct {
	ID            string `gorm:"primaryKey;size:36"` // uuid
	WompiID       string `gorm:"size:64;uniqueIndex;not null"`
	WorkspaceID   string `gorm:"size:36;index;not null"`
	Type          string `gorm:"size:32"` // CARD, NEQUI, PSE
	Status        string `gorm:"size:32"`
	CustomerEmail string `gorm:"size:255"`
	LastFour      string `gorm:"size:4"`
	ExpiresAt     *time.Time
	IsDefault     bool `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Workspace struct {
	ID            string `gorm:"primaryKey;size:36"` // uuid
	CustomerEmail string `gorm:"size:255;uniqueIndex;not null"`
	Name          string `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Plan struct {
	ID              string `gorm:"primaryKey;size:64"`
	Name            string `gorm:"size:128;not null"`
	AmountInCents   int64  `gorm:"not null"`
	Currency        string `gorm:"size:8;not null"`
	BillingInterval string `gorm:"size:16;not null"` // month, year
	// No column defaults here: gorm skips zero-valued plain fields that
	// carry a default tag, so an explicit false or 0 would never reach
	// the database.
	QueryLimit int  `gorm:"not null"`
	IsActive   bool `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
