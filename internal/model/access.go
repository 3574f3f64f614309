package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessCategory enumerates the two independently-entitled feature areas.
type AccessCategory string

const (
	AccessCategoryExam     AccessCategory = "exam"
	AccessCategoryTraining AccessCategory = "training"
)

// AccessProduct is a purchasable SKU. Rows are immutable once referenced by
// a transaction; "updating" a product inserts a new version under the same
// code and the latest version is the effective one.
type AccessProduct struct {
	ID           uuid.UUID      `json:"id"`
	Code         string         `json:"code"`
	Version      int            `json:"version"`
	Name         string         `json:"name"`
	Category     AccessCategory `json:"category"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
	DurationDays int            `json:"duration_days"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AccessGrant is one entitlement ledger row: at most one per (user, category).
// ExpiresAt is the single current expiry; LastTransactionID points at the
// completed transaction that produced it.
type AccessGrant struct {
	ID                uuid.UUID      `json:"id"`
	UserID            uuid.UUID      `json:"user_id"`
	Category          AccessCategory `json:"category"`
	ExpiresAt         time.Time      `json:"expires_at"`
	LastTransactionID uuid.UUID      `json:"last_transaction_id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// CategoryAccess describes one category's unexpired entitlement.
type CategoryAccess struct {
	ExpiresAt     time.Time `json:"expires_at"`
	DaysRemaining int       `json:"days_remaining"`
}

// AccessStatus is the per-user entitlement snapshot. Nil means no unexpired
// grant for that category.
type AccessStatus struct {
	ExamAccess     *CategoryAccess `json:"exam_access"`
	TrainingAccess *CategoryAccess `json:"training_access"`
}

// UpsertProductRequest is the admin payload for creating a product version.
type UpsertProductRequest struct {
	Code         string `json:"code" binding:"required,min=2,max=64"`
	Name         string `json:"name" binding:"required,min=2,max=255"`
	Category     string `json:"category" binding:"required,oneof=exam training"`
	Amount       int64  `json:"amount" binding:"required,min=0"`
	Currency     string `json:"currency" binding:"required,len=3"`
	DurationDays int    `json:"duration_days" binding:"required,min=1,max=3650"`
}
