package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certready/certready-backend/internal/model"
)

// AccessGrantRepository handles entitlement ledger data access.
type AccessGrantRepository struct {
	pool *pgxpool.Pool
}

// NewAccessGrantRepository creates a new AccessGrantRepository.
func NewAccessGrantRepository(pool *pgxpool.Pool) *AccessGrantRepository {
	return &AccessGrantRepository{pool: pool}
}

const grantColumns = `id, user_id, category, expires_at, last_transaction_id, created_at, updated_at`

func scanGrant(row interface{ Scan(...any) error }) (*model.AccessGrant, error) {
	g := &model.AccessGrant{}
	err := row.Scan(&g.ID, &g.UserID, &g.Category, &g.ExpiresAt, &g.LastTransactionID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetByUserAndCategory retrieves the single grant for (user, category).
func (r *AccessGrantRepository) GetByUserAndCategory(ctx context.Context, userID uuid.UUID, category model.AccessCategory) (*model.AccessGrant, error) {
	return scanGrant(r.pool.QueryRow(ctx,
		`SELECT `+grantColumns+`
		 FROM access_grants
		 WHERE user_id = $1 AND category = $2`,
		userID, category))
}

// ListByUser retrieves all grants for a user.
func (r *AccessGrantRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AccessGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+grantColumns+` FROM access_grants WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []model.AccessGrant
	for rows.Next() {
		var g model.AccessGrant
		if err := rows.Scan(&g.ID, &g.UserID, &g.Category, &g.ExpiresAt, &g.LastTransactionID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// rowQuerier abstracts over the pool and an open pgx.Tx, so the upsert below
// can join a caller-owned transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GrantOrExtend atomically creates or extends the (user, category) grant.
// Stacking adds the purchased duration on top of the later of "now" and the
// current expiry, so unused time is never lost and expired time never counts.
// The whole upsert is a single statement, which is the atomicity boundary.
func (r *AccessGrantRepository) GrantOrExtend(ctx context.Context, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error) {
	return grantOrExtend(ctx, r.pool, userID, category, durationDays, transactionID)
}

// GrantOrExtendTx is GrantOrExtend inside a caller-owned transaction, used by
// the webhook confirmation so the grant commits or rolls back together with
// the status flip and its dedup record.
func (r *AccessGrantRepository) GrantOrExtendTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error) {
	return grantOrExtend(ctx, tx, userID, category, durationDays, transactionID)
}

func grantOrExtend(ctx context.Context, db rowQuerier, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error) {
	var expiresAt time.Time
	err := db.QueryRow(ctx,
		`INSERT INTO access_grants (user_id, category, expires_at, last_transaction_id)
		 VALUES ($1, $2, NOW() + make_interval(days => $3), $4)
		 ON CONFLICT (user_id, category) DO UPDATE
		 SET expires_at = GREATEST(NOW(), access_grants.expires_at) + make_interval(days => $3),
		     last_transaction_id = $4,
		     updated_at = NOW()
		 RETURNING expires_at`,
		userID, category, durationDays, transactionID,
	).Scan(&expiresAt)
	return expiresAt, err
}

// RevokeIfCurrent handles the ledger side of a refund or deletion of
// transactionID. If the grant is backed by a different (newer) transaction
// nothing happens. If it is backed by transactionID, the grant is recomputed
// from the latest other completed transaction in the category, or deleted
// when none exists. Returns whether access was actually revoked or reduced.
func (r *AccessGrantRepository) RevokeIfCurrent(ctx context.Context, userID uuid.UUID, category model.AccessCategory, transactionID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var grantID, lastTxID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id, last_transaction_id
		 FROM access_grants
		 WHERE user_id = $1 AND category = $2
		 FOR UPDATE`,
		userID, category,
	).Scan(&grantID, &lastTxID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil // No grant, nothing to revoke.
		}
		return false, err
	}

	if lastTxID != transactionID {
		// An intervening newer transaction owns the grant.
		return false, nil
	}

	// Recompute from the latest surviving completed transaction, if any.
	var supersedingID uuid.UUID
	var supersedingExpiry *time.Time
	err = tx.QueryRow(ctx,
		`SELECT id, access_expires_at
		 FROM transactions
		 WHERE user_id = $1 AND category = $2 AND status = $3 AND id <> $4
		 ORDER BY completed_at DESC NULLS LAST
		 LIMIT 1`,
		userID, category, model.TransactionCompleted, transactionID,
	).Scan(&supersedingID, &supersedingExpiry)

	switch {
	case errors.Is(err, pgx.ErrNoRows) || (err == nil && supersedingExpiry == nil):
		if _, err := tx.Exec(ctx, `DELETE FROM access_grants WHERE id = $1`, grantID); err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	default:
		if _, err := tx.Exec(ctx,
			`UPDATE access_grants
			 SET expires_at = $1, last_transaction_id = $2, updated_at = NOW()
			 WHERE id = $3`,
			*supersedingExpiry, supersedingID, grantID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
