package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certready/certready-backend/internal/model"
)

// TrainingRepository handles training session data access.
type TrainingRepository struct {
	pool *pgxpool.Pool
}

// NewTrainingRepository creates a new TrainingRepository.
func NewTrainingRepository(pool *pgxpool.Pool) *TrainingRepository {
	return &TrainingRepository{pool: pool}
}

const trainingColumns = `id, user_id, question_count, domain, question_ids, status,
	started_at, completed_at, expires_at, score, created_at, updated_at`

func scanTraining(row interface{ Scan(...any) error }) (*model.TrainingSession, error) {
	s := &model.TrainingSession{}
	err := row.Scan(&s.ID, &s.UserID, &s.QuestionCount, &s.Domain, &s.QuestionIDs, &s.Status,
		&s.StartedAt, &s.CompletedAt, &s.ExpiresAt, &s.Score, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves one training session.
func (r *TrainingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TrainingSession, error) {
	return scanTraining(r.pool.QueryRow(ctx,
		`SELECT `+trainingColumns+` FROM training_sessions WHERE id = $1`, id))
}

// GetInProgressByUser retrieves the user's running session, if any.
func (r *TrainingRepository) GetInProgressByUser(ctx context.Context, userID uuid.UUID) (*model.TrainingSession, error) {
	return scanTraining(r.pool.QueryRow(ctx,
		`SELECT `+trainingColumns+`
		 FROM training_sessions
		 WHERE user_id = $1 AND status = $2
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID, model.TrainingInProgress))
}

// Create inserts a new training session with its question snapshot.
func (r *TrainingRepository) Create(ctx context.Context, s *model.TrainingSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO training_sessions
		 (user_id, question_count, domain, question_ids, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, started_at, created_at, updated_at`,
		s.UserID, s.QuestionCount, s.Domain, s.QuestionIDs, model.TrainingInProgress, s.ExpiresAt,
	).Scan(&s.ID, &s.StartedAt, &s.CreatedAt, &s.UpdatedAt)
}

// UpsertAnswers saves a batch of answers in one transaction. Rejected by the
// status guard once the session left in_progress.
func (r *TrainingRepository) UpsertAnswers(ctx context.Context, sessionID uuid.UUID, answers []model.TrainingAnswer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status model.TrainingStatus
	if err := tx.QueryRow(ctx,
		`SELECT status FROM training_sessions WHERE id = $1 FOR UPDATE`, sessionID,
	).Scan(&status); err != nil {
		return err
	}
	if status != model.TrainingInProgress {
		return fmt.Errorf("training session %s is %s: %w", sessionID, status, pgx.ErrNoRows)
	}

	for i := range answers {
		a := &answers[i]
		if _, err := tx.Exec(ctx,
			`INSERT INTO training_answers (session_id, question_id, selected_answer, is_correct)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (session_id, question_id) DO UPDATE
			 SET selected_answer = EXCLUDED.selected_answer,
			     is_correct = EXCLUDED.is_correct,
			     updated_at = NOW()`,
			sessionID, a.QuestionID, a.SelectedAnswer, a.IsCorrect); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListAnswers retrieves the saved answers of a session.
func (r *TrainingRepository) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.TrainingAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, selected_answer, is_correct, updated_at
		 FROM training_answers
		 WHERE session_id = $1`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.TrainingAnswer
	for rows.Next() {
		var a model.TrainingAnswer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Finish transitions an in-progress session to completed or abandoned.
// Score is only persisted for completions.
func (r *TrainingRepository) Finish(ctx context.Context, id uuid.UUID, status model.TrainingStatus, score *int, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE training_sessions
		 SET status = $1, score = $2, completed_at = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		status, score, completedAt, id, model.TrainingInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ScoreAnswers applies the answer key to a session's saved answers and
// returns (correct, answered).
func (r *TrainingRepository) ScoreAnswers(ctx context.Context, sessionID uuid.UUID, key map[uuid.UUID]string) (int, int, error) {
	answers, err := r.ListAnswers(ctx, sessionID)
	if err != nil {
		return 0, 0, err
	}

	correct := 0
	for i := range answers {
		a := &answers[i]
		isCorrect := key[a.QuestionID] == a.SelectedAnswer
		if isCorrect {
			correct++
		}
		if _, err := r.pool.Exec(ctx,
			`UPDATE training_answers SET is_correct = $1, updated_at = NOW() WHERE id = $2`,
			isCorrect, a.ID); err != nil {
			return 0, 0, err
		}
	}
	return correct, len(answers), nil
}
