package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certready/certready-backend/internal/model"
)

// ExamRepository handles exam definition data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, start_date, end_date, question_ids,
	completion_time_seconds, enable_pause, pause_duration_minutes, active, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &e.QuestionIDs,
		&e.CompletionTimeSeconds, &e.EnablePause, &e.PauseDurationMinutes, &e.Active,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves one exam.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// Create inserts a new exam definition.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams
		 (title, description, start_date, end_date, question_ids, completion_time_seconds,
		  enable_pause, pause_duration_minutes, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.StartDate, e.EndDate, e.QuestionIDs, e.CompletionTimeSeconds,
		e.EnablePause, e.PauseDurationMinutes, e.Active,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update persists an edited exam definition.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, start_date = $3, end_date = $4, question_ids = $5,
		     completion_time_seconds = $6, enable_pause = $7, pause_duration_minutes = $8,
		     active = $9, updated_at = NOW()
		 WHERE id = $10`,
		e.Title, e.Description, e.StartDate, e.EndDate, e.QuestionIDs, e.CompletionTimeSeconds,
		e.EnablePause, e.PauseDurationMinutes, e.Active, e.ID)
	return err
}

// List retrieves exams newest-first with pagination.
func (r *ExamRepository) List(ctx context.Context, page, perPage int, activeOnly bool) ([]model.Exam, int64, error) {
	filter := ``
	if activeOnly {
		filter = ` WHERE active`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams`+filter).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams`+filter+`
		 ORDER BY start_date DESC
		 LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate,
			&e.QuestionIDs, &e.CompletionTimeSeconds, &e.EnablePause, &e.PauseDurationMinutes,
			&e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// Delete removes an exam definition.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
