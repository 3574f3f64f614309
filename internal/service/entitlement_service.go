package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/model"
)

// AccessGrantStore is the ledger persistence consumed by EntitlementService.
type AccessGrantStore interface {
	GetByUserAndCategory(ctx context.Context, userID uuid.UUID, category model.AccessCategory) (*model.AccessGrant, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AccessGrant, error)
	GrantOrExtend(ctx context.Context, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error)
	RevokeIfCurrent(ctx context.Context, userID uuid.UUID, category model.AccessCategory, transactionID uuid.UUID) (bool, error)
}

// EntitlementService maintains the time-bounded access ledger that gates
// exam and training participation.
type EntitlementService struct {
	grants AccessGrantStore
	log    zerolog.Logger
	now    func() time.Time
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(grants AccessGrantStore, log zerolog.Logger) *EntitlementService {
	return &EntitlementService{
		grants: grants,
		log:    log.With().Str("component", "entitlement_service").Logger(),
		now:    time.Now,
	}
}

// HasAccess reports whether the user may use the given category right now.
// Admins bypass the ledger entirely.
func (s *EntitlementService) HasAccess(ctx context.Context, user *model.User, category model.AccessCategory) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}

	grant, err := s.grants.GetByUserAndCategory(ctx, user.ID, category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get grant: %w", err)
	}

	return grant.ExpiresAt.After(s.now()), nil
}

// GetAccessStatus returns the per-category entitlement snapshot for a user.
// Expired or missing grants show as nil.
func (s *EntitlementService) GetAccessStatus(ctx context.Context, userID uuid.UUID) (*model.AccessStatus, error) {
	grants, err := s.grants.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	now := s.now()
	status := &model.AccessStatus{}
	for i := range grants {
		g := &grants[i]
		if !g.ExpiresAt.After(now) {
			continue
		}
		access := &model.CategoryAccess{
			ExpiresAt:     g.ExpiresAt,
			DaysRemaining: int(math.Ceil(g.ExpiresAt.Sub(now).Hours() / 24)),
		}
		switch g.Category {
		case model.AccessCategoryExam:
			status.ExamAccess = access
		case model.AccessCategoryTraining:
			status.TrainingAccess = access
		}
	}
	return status, nil
}

// GrantOrExtend stacks durationDays onto the user's grant for the category
// and repoints it at transactionID. Returns the resulting expiry.
func (s *EntitlementService) GrantOrExtend(ctx context.Context, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error) {
	expiresAt, err := s.grants.GrantOrExtend(ctx, userID, category, durationDays, transactionID)
	if err != nil {
		return time.Time{}, fmt.Errorf("grant or extend: %w", err)
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("category", string(category)).
		Int("duration_days", durationDays).
		Time("expires_at", expiresAt).
		Msg("Access granted or extended")

	return expiresAt, nil
}

// RevokeIfCurrent removes or recomputes the grant when the transaction that
// currently backs it is refunded or deleted. A superseded transaction is a
// no-op: the grant already points at a newer one. Returns whether access was
// actually revoked.
func (s *EntitlementService) RevokeIfCurrent(ctx context.Context, userID uuid.UUID, category model.AccessCategory, transactionID uuid.UUID) (bool, error) {
	revoked, err := s.grants.RevokeIfCurrent(ctx, userID, category, transactionID)
	if err != nil {
		return false, fmt.Errorf("revoke grant: %w", err)
	}

	if revoked {
		s.log.Info().
			Str("user_id", userID.String()).
			Str("category", string(category)).
			Str("transaction_id", transactionID.String()).
			Msg("Access revoked")
	}
	return revoked, nil
}
