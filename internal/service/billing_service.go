package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/model"
)

// ProductStore is the SKU persistence consumed by BillingService.
type ProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.AccessProduct, error)
	GetLatestByCode(ctx context.Context, code string) (*model.AccessProduct, error)
	UpsertByCode(ctx context.Context, p *model.AccessProduct) error
	ListLatest(ctx context.Context) ([]model.AccessProduct, error)
}

// TransactionStore is the payment ledger persistence consumed by BillingService.
type TransactionStore interface {
	Create(ctx context.Context, t *model.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Transaction, int64, error)
	ConfirmByExternalRef(ctx context.Context, externalRef, eventID string, to model.TransactionStatus, completedAt time.Time, grant func(ctx context.Context, tx pgx.Tx, t *model.Transaction) (time.Time, error)) (*model.Transaction, bool, error)
	SetAccessExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	UpdateManualFields(ctx context.Context, t *model.Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BillingUserStore resolves users referenced by manual transactions.
type BillingUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// EntitlementLedger is the slice of EntitlementService that billing cascades
// into.
type EntitlementLedger interface {
	GrantOrExtend(ctx context.Context, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error)
	GrantOrExtendTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error)
	RevokeIfCurrent(ctx context.Context, userID uuid.UUID, category model.AccessCategory, transactionID uuid.UUID) (bool, error)
}

// CheckoutProvider creates a processor checkout and returns the redirect
// target the client should be sent to.
type CheckoutProvider interface {
	CreateCheckout(t *model.Transaction, user *model.User, product *model.AccessProduct) (string, error)
}

// BillingService owns the payment transaction log and its cascades into the
// entitlement ledger.
type BillingService struct {
	transactions TransactionStore
	products     ProductStore
	users        BillingUserStore
	entitlements EntitlementLedger
	checkout     CheckoutProvider
	rdb          *redis.Client
	log          zerolog.Logger
	now          func() time.Time
}

// NewBillingService creates a new BillingService.
func NewBillingService(
	transactions TransactionStore,
	products ProductStore,
	users BillingUserStore,
	entitlements EntitlementLedger,
	checkout CheckoutProvider,
	rdb *redis.Client,
	log zerolog.Logger,
) *BillingService {
	return &BillingService{
		transactions: transactions,
		products:     products,
		users:        users,
		entitlements: entitlements,
		checkout:     checkout,
		rdb:          rdb,
		log:          log.With().Str("component", "billing_service").Logger(),
		now:          time.Now,
	}
}

// CreateCheckout creates a pending transaction for the product's current
// version and opens a processor checkout for it. The ledger is untouched
// until the processor confirms.
func (s *BillingService) CreateCheckout(ctx context.Context, user *model.User, productCode string) (*model.CheckoutIntent, error) {
	product, err := s.products.GetLatestByCode(ctx, productCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", productCode, ErrNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	externalRef := fmt.Sprintf("cr-%s", uuid.New().String())
	t := &model.Transaction{
		UserID:       user.ID,
		ProductID:    product.ID,
		Origin:       model.OriginProcessor,
		Status:       model.TransactionPending,
		Amount:       product.Amount,
		Currency:     product.Currency,
		Category:     product.Category,
		DurationDays: product.DurationDays,
		ExternalRef:  &externalRef,
	}
	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	redirectURL, err := s.checkout.CreateCheckout(t, user, product)
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	return &model.CheckoutIntent{
		TransactionID: t.ID,
		ExternalRef:   externalRef,
		RedirectURL:   redirectURL,
	}, nil
}

// CompleteByExternalRef applies a processor success webhook. Idempotent:
// replays of the same event id confirm without touching the ledger again.
// Returns whether this delivery actually applied the transition.
func (s *BillingService) CompleteByExternalRef(ctx context.Context, externalRef, eventID string) (bool, error) {
	// Fast-path dedup for hot retries; PostgreSQL stays the durable dedup.
	dedupKey := config.CacheKey.ProcessedEventKey(eventID)
	if s.rdb != nil {
		if seen, _ := s.rdb.Exists(ctx, dedupKey).Result(); seen > 0 {
			return false, nil
		}
	}

	// The grant joins the confirmation transaction: if it fails, the status
	// flip and the dedup record roll back with it, so a redelivery of the
	// same event retries the whole cascade instead of skipping the ledger.
	t, already, err := s.transactions.ConfirmByExternalRef(ctx, externalRef, eventID, model.TransactionCompleted, s.now(),
		func(ctx context.Context, tx pgx.Tx, t *model.Transaction) (time.Time, error) {
			return s.entitlements.GrantOrExtendTx(ctx, tx, t.UserID, t.Category, t.DurationDays, t.ID)
		})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("pending transaction for ref %q: %w", externalRef, ErrNotFound)
		}
		return false, fmt.Errorf("confirm transaction: %w", err)
	}
	if already {
		s.log.Info().Str("event_id", eventID).Str("external_ref", externalRef).Msg("Duplicate payment event ignored")
		s.markProcessed(ctx, dedupKey)
		return false, nil
	}

	s.markProcessed(ctx, dedupKey)

	s.log.Info().
		Str("transaction_id", t.ID.String()).
		Str("user_id", t.UserID.String()).
		Str("category", string(t.Category)).
		Msg("Payment completed, access granted")
	return true, nil
}

func (s *BillingService) markProcessed(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Set(ctx, key, 1, 24*time.Hour).Err()
}

// FailByExternalRef applies a processor failure webhook with the same
// idempotency discipline. The ledger is never touched.
func (s *BillingService) FailByExternalRef(ctx context.Context, externalRef, eventID string) (bool, error) {
	t, already, err := s.transactions.ConfirmByExternalRef(ctx, externalRef, eventID, model.TransactionFailed, s.now(), nil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("pending transaction for ref %q: %w", externalRef, ErrNotFound)
		}
		return false, fmt.Errorf("confirm transaction: %w", err)
	}
	if already {
		return false, nil
	}

	s.log.Info().Str("transaction_id", t.ID.String()).Msg("Payment failed")
	return true, nil
}

// RecordManual creates an immediately-completed manual transaction and
// grants the purchased access.
func (s *BillingService) RecordManual(ctx context.Context, req *model.RecordManualTransactionRequest) (*model.Transaction, error) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", req.UserID, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	product, err := s.products.GetLatestByCode(ctx, req.ProductCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", req.ProductCode, ErrNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	now := s.now()
	t := &model.Transaction{
		UserID:       user.ID,
		ProductID:    product.ID,
		Origin:       model.OriginManual,
		Status:       model.TransactionCompleted,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Category:     product.Category,
		DurationDays: product.DurationDays,
		Method:       &req.Method,
		CompletedAt:  &now,
	}
	if req.Notes != "" {
		t.Notes = &req.Notes
	}
	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	expiresAt, err := s.entitlements.GrantOrExtend(ctx, t.UserID, t.Category, t.DurationDays, t.ID)
	if err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	if err := s.transactions.SetAccessExpiresAt(ctx, t.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("record access expiry: %w", err)
	}
	t.AccessExpiresAt = &expiresAt

	return t, nil
}

// UpdateManual edits a manual transaction. Processor transactions are
// immutable from the admin surface. A transition to refunded cascades into
// the ledger; a transition to completed grants.
func (s *BillingService) UpdateManual(ctx context.Context, transactionID uuid.UUID, req *model.UpdateManualTransactionRequest) (*model.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if t.Origin != model.OriginManual {
		return nil, fmt.Errorf("only manual transactions are editable: %w", ErrInvalidState)
	}

	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if req.Currency != nil {
		t.Currency = *req.Currency
	}
	if req.Method != nil {
		t.Method = req.Method
	}
	if req.Notes != nil {
		t.Notes = req.Notes
	}

	prevStatus := t.Status
	if req.Status != nil {
		t.Status = model.TransactionStatus(*req.Status)
	}

	if err := s.transactions.UpdateManualFields(ctx, t); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	switch {
	case prevStatus != model.TransactionRefunded && t.Status == model.TransactionRefunded:
		if _, err := s.entitlements.RevokeIfCurrent(ctx, t.UserID, t.Category, t.ID); err != nil {
			return nil, fmt.Errorf("revoke access: %w", err)
		}
	case prevStatus != model.TransactionCompleted && t.Status == model.TransactionCompleted:
		expiresAt, err := s.entitlements.GrantOrExtend(ctx, t.UserID, t.Category, t.DurationDays, t.ID)
		if err != nil {
			return nil, fmt.Errorf("grant access: %w", err)
		}
		if err := s.transactions.SetAccessExpiresAt(ctx, t.ID, expiresAt); err != nil {
			return nil, fmt.Errorf("record access expiry: %w", err)
		}
		t.AccessExpiresAt = &expiresAt
	}

	return t, nil
}

// DeleteManual removes a manual transaction, revoking the grant it backs.
// Reports whether access was actually revoked.
func (s *BillingService) DeleteManual(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return false, fmt.Errorf("get transaction: %w", err)
	}
	if t.Origin != model.OriginManual {
		return false, fmt.Errorf("only manual transactions are deletable: %w", ErrInvalidState)
	}

	revoked, err := s.entitlements.RevokeIfCurrent(ctx, t.UserID, t.Category, t.ID)
	if err != nil {
		return false, fmt.Errorf("revoke access: %w", err)
	}

	if err := s.transactions.Delete(ctx, t.ID); err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	return revoked, nil
}

// ListForUser returns a user's transactions, newest first.
func (s *BillingService) ListForUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Transaction, int64, error) {
	return s.transactions.ListByUser(ctx, userID, page, perPage)
}

// UpsertProduct records a new effective version of a SKU.
func (s *BillingService) UpsertProduct(ctx context.Context, req *model.UpsertProductRequest) (*model.AccessProduct, error) {
	p := &model.AccessProduct{
		Code:         req.Code,
		Name:         req.Name,
		Category:     model.AccessCategory(req.Category),
		Amount:       req.Amount,
		Currency:     req.Currency,
		DurationDays: req.DurationDays,
	}
	if err := s.products.UpsertByCode(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}
	return p, nil
}

// ListProducts returns the current version of every SKU.
func (s *BillingService) ListProducts(ctx context.Context) ([]model.AccessProduct, error) {
	return s.products.ListLatest(ctx)
}
