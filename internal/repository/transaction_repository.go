package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certready/certready-backend/internal/model"
)

// TransactionRepository handles payment transaction data access.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, user_id, product_id, origin, status, amount, currency, category,
	duration_days, external_ref, access_expires_at, method, notes, completed_at, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	t := &model.Transaction{}
	err := row.Scan(&t.ID, &t.UserID, &t.ProductID, &t.Origin, &t.Status, &t.Amount, &t.Currency,
		&t.Category, &t.DurationDays, &t.ExternalRef, &t.AccessExpiresAt, &t.Method, &t.Notes,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO transactions
		 (user_id, product_id, origin, status, amount, currency, category, duration_days,
		  external_ref, method, notes, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		t.UserID, t.ProductID, t.Origin, t.Status, t.Amount, t.Currency, t.Category,
		t.DurationDays, t.ExternalRef, t.Method, t.Notes, t.CompletedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves one transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// ListByUser retrieves a user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Transaction, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.ProductID, &t.Origin, &t.Status, &t.Amount,
			&t.Currency, &t.Category, &t.DurationDays, &t.ExternalRef, &t.AccessExpiresAt,
			&t.Method, &t.Notes, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		txs = append(txs, t)
	}
	return txs, total, rows.Err()
}

// ConfirmByExternalRef applies a webhook-delivered pending→completed or
// pending→failed transition in one database transaction. The row lock plus
// the (transaction, event) dedup insert make at-least-once delivery safe:
// a replayed or out-of-order event returns alreadyProcessed=true with no
// side effects. When grant is non-nil it runs inside the same transaction
// after the status flip and its resulting expiry is stamped onto the row, so
// a failed grant rolls back the flip and the dedup record together and the
// next delivery of the event retries the whole cascade. Returns pgx.ErrNoRows
// when no processor transaction carries the external reference.
func (r *TransactionRepository) ConfirmByExternalRef(ctx context.Context, externalRef, eventID string, to model.TransactionStatus, completedAt time.Time, grant func(ctx context.Context, tx pgx.Tx, t *model.Transaction) (time.Time, error)) (*model.Transaction, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	t, err := scanTransaction(tx.QueryRow(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE external_ref = $1 AND origin = $2
		 FOR UPDATE`,
		externalRef, model.OriginProcessor))
	if err != nil {
		return nil, false, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO transaction_events (transaction_id, event_id)
		 VALUES ($1, $2)
		 ON CONFLICT (transaction_id, event_id) DO NOTHING`,
		t.ID, eventID)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 0 {
		// Replay of an event we already applied.
		return t, true, tx.Commit(ctx)
	}

	if t.Status != model.TransactionPending {
		// The mutually exclusive sibling transition already won; record the
		// event so further replays short-circuit, but change nothing.
		return t, true, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE transactions
		 SET status = $1, completed_at = $2, updated_at = NOW()
		 WHERE id = $3`,
		to, completedAt, t.ID); err != nil {
		return nil, false, err
	}
	t.Status = to
	t.CompletedAt = &completedAt

	if grant != nil {
		expiresAt, err := grant(ctx, tx, t)
		if err != nil {
			return nil, false, err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE transactions SET access_expires_at = $1, updated_at = NOW() WHERE id = $2`,
			expiresAt, t.ID); err != nil {
			return nil, false, err
		}
		t.AccessExpiresAt = &expiresAt
	}

	return t, false, tx.Commit(ctx)
}

// SetAccessExpiresAt records the grant expiry this transaction produced, so
// a later refund can recompute a superseded grant from it.
func (r *TransactionRepository) SetAccessExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transactions SET access_expires_at = $1, updated_at = NOW() WHERE id = $2`,
		expiresAt, id)
	return err
}

// UpdateManualFields edits the editable fields of a manual transaction.
func (r *TransactionRepository) UpdateManualFields(ctx context.Context, t *model.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transactions
		 SET status = $1, amount = $2, currency = $3, method = $4, notes = $5, updated_at = NOW()
		 WHERE id = $6`,
		t.Status, t.Amount, t.Currency, t.Method, t.Notes, t.ID)
	return err
}

// Delete removes a transaction.
func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return err
}
