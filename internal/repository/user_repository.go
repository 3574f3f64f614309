package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certready/certready-backend/internal/model"
)

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, external_id, email, name, role, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID retrieves a user by internal id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetByExternalID retrieves a user by the identity provider's id.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
}

// UpsertByExternalID creates or updates a user from an identity provider
// event. Role is never touched on update; promotions are a local concern.
func (r *UserRepository) UpsertByExternalID(ctx context.Context, externalID, email, name string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (external_id, email, name, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (external_id) DO UPDATE
		 SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = NOW()
		 RETURNING `+userColumns,
		externalID, email, name, model.RoleUser))
}

// DeleteByExternalID removes a user deleted at the identity provider.
func (r *UserRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE external_id = $1`, externalID)
	return err
}

// CreateAdmin inserts a local admin account with a bcrypt credential.
func (r *UserRepository) CreateAdmin(ctx context.Context, email, name, passwordHash string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (external_id, email, name, role, password_hash)
		 VALUES ('local:' || gen_random_uuid(), $1, $2, $3, $4)
		 RETURNING `+userColumns,
		email, name, model.RoleAdmin, passwordHash))
}
