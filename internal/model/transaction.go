package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionOrigin distinguishes admin-recorded from processor-confirmed
// transactions.
type TransactionOrigin string

const (
	OriginManual    TransactionOrigin = "manual"
	OriginProcessor TransactionOrigin = "processor"
)

// TransactionStatus enumerates purchase attempt states. Processor-origin
// transactions only ever move pending→completed or pending→failed, exactly
// once per idempotency key. Manual transactions may be edited freely by an
// admin, including to refunded.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is one purchase attempt in the payment ledger.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	ProductID    uuid.UUID         `json:"product_id"`
	Origin       TransactionOrigin `json:"origin"`
	Status       TransactionStatus `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Category     AccessCategory    `json:"category"`
	DurationDays int               `json:"duration_days"`
	// ExternalRef is the processor checkout session / order id used by
	// webhook confirmations to locate the pending transaction.
	ExternalRef *string `json:"external_ref,omitempty"`
	// AccessExpiresAt records the grant expiry this transaction produced,
	// so a superseded grant can be recomputed after a refund.
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
	Method          *string    `json:"method,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateCheckoutRequest starts a processor checkout for a product.
type CreateCheckoutRequest struct {
	ProductCode string `json:"product_code" binding:"required,min=2,max=64"`
}

// CheckoutIntent is returned to the client to redirect into the processor.
type CheckoutIntent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	ExternalRef   string    `json:"external_ref"`
	RedirectURL   string    `json:"redirect_url"`
}

// ProcessorEvent is the webhook payload confirming or failing a checkout.
type ProcessorEvent struct {
	EventID     string `json:"event_id" binding:"required,min=4,max=128"`
	ExternalRef string `json:"external_ref" binding:"required,min=4,max=128"`
}

// RecordManualTransactionRequest is the admin payload for recording an
// off-platform payment.
type RecordManualTransactionRequest struct {
	UserID      uuid.UUID `json:"user_id" binding:"required"`
	ProductCode string    `json:"product_code" binding:"required,min=2,max=64"`
	Amount      int64     `json:"amount" binding:"required,min=0"`
	Currency    string    `json:"currency" binding:"required,len=3"`
	Method      string    `json:"method" binding:"required,min=2,max=64"`
	Notes       string    `json:"notes" binding:"omitempty,max=1024"`
}

// UpdateManualTransactionRequest edits a manual transaction. A status change
// to refunded cascades into the entitlement ledger.
type UpdateManualTransactionRequest struct {
	Amount   *int64  `json:"amount" binding:"omitempty,min=0"`
	Currency *string `json:"currency" binding:"omitempty,len=3"`
	Method   *string `json:"method" binding:"omitempty,min=2,max=64"`
	Notes    *string `json:"notes" binding:"omitempty,max=1024"`
	Status   *string `json:"status" binding:"omitempty,oneof=pending completed failed refunded"`
}
