package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certready/certready-backend/internal/model"
)

// QuestionRepository is the read-only gateway to the question bank. The
// session engines only ever consume id, correct answer and domain.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByID retrieves one question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, text, options, correct_answer, domain FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Text, &q.Options, &q.CorrectAnswer, &q.Domain)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// CorrectAnswers returns the answer key for a set of question ids.
func (r *QuestionRepository) CorrectAnswers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, correct_answer FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var answer string
		if err := rows.Scan(&id, &answer); err != nil {
			return nil, err
		}
		key[id] = answer
	}
	return key, rows.Err()
}

// CountByDomain returns how many questions exist, optionally filtered by domain.
func (r *QuestionRepository) CountByDomain(ctx context.Context, domain *string) (int, error) {
	var count int
	var err error
	if domain == nil {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE domain = $1`, *domain).Scan(&count)
	}
	return count, err
}

// SampleIDs draws a uniform random sample of question ids without
// replacement, optionally filtered by domain.
func (r *QuestionRepository) SampleIDs(ctx context.Context, n int, domain *string) ([]uuid.UUID, error) {
	query := `SELECT id FROM questions ORDER BY random() LIMIT $1`
	args := []any{n}
	if domain != nil {
		query = `SELECT id FROM questions WHERE domain = $2 ORDER BY random() LIMIT $1`
		args = append(args, *domain)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, n)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
