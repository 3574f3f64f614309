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

// ParticipationRepository handles exam participation data access. All state
// transitions are guarded by the expected current status so concurrent
// writers (user submit vs. hourly sweep) cannot double-apply a transition.
type ParticipationRepository struct {
	pool *pgxpool.Pool
}

// NewParticipationRepository creates a new ParticipationRepository.
func NewParticipationRepository(pool *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{pool: pool}
}

const participationColumns = `id, exam_id, user_id, status, started_at, completed_at, score,
	pause_phase, pause_started_at, pause_ended_at, is_pause_cut_short, total_pause_duration_ms,
	created_at, updated_at`

func scanParticipation(row interface{ Scan(...any) error }) (*model.ExamParticipation, error) {
	p := &model.ExamParticipation{}
	err := row.Scan(&p.ID, &p.ExamID, &p.UserID, &p.Status, &p.StartedAt, &p.CompletedAt, &p.Score,
		&p.PausePhase, &p.PauseStartedAt, &p.PauseEndedAt, &p.IsPauseCutShort,
		&p.TotalPauseDurationMs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByExamAndUser retrieves the participation for an (exam, user) pair.
func (r *ParticipationRepository) GetByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.ExamParticipation, error) {
	return scanParticipation(r.pool.QueryRow(ctx,
		`SELECT `+participationColumns+`
		 FROM exam_participations
		 WHERE exam_id = $1 AND user_id = $2`,
		examID, userID))
}

// Create inserts a new participation. ON CONFLICT DO NOTHING makes a
// concurrent double-start surface as pgx.ErrNoRows, which the caller
// resolves by re-fetching the winner.
func (r *ParticipationRepository) Create(ctx context.Context, p *model.ExamParticipation) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_participations (exam_id, user_id, status, pause_phase)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING id, started_at, created_at, updated_at`,
		p.ExamID, p.UserID, model.ParticipationInProgress, p.PausePhase,
	).Scan(&p.ID, &p.StartedAt, &p.CreatedAt, &p.UpdatedAt)
}

// StartPause transitions before_pause → during_pause.
func (r *ParticipationRepository) StartPause(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.guardedExec(ctx,
		`UPDATE exam_participations
		 SET pause_phase = $1, pause_started_at = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4 AND pause_phase = $5`,
		model.PhaseDuringPause, at, id, model.ParticipationInProgress, model.PhaseBeforePause)
}

// EndPause transitions during_pause → after_pause and accumulates the
// elapsed pause time into the excluded-duration counter.
func (r *ParticipationRepository) EndPause(ctx context.Context, id uuid.UUID, at time.Time, pausedMs int64, cutShort bool) error {
	return r.guardedExec(ctx,
		`UPDATE exam_participations
		 SET pause_phase = $1, pause_ended_at = $2,
		     total_pause_duration_ms = total_pause_duration_ms + $3,
		     is_pause_cut_short = $4, updated_at = NOW()
		 WHERE id = $5 AND status = $6 AND pause_phase = $7`,
		model.PhaseAfterPause, at, pausedMs, cutShort, id,
		model.ParticipationInProgress, model.PhaseDuringPause)
}

// Complete atomically finishes an in-progress participation and replaces its
// answer set with the scored one. The status guard makes a lost race (user
// submit vs. sweep) a clean no-op for the loser.
func (r *ParticipationRepository) Complete(ctx context.Context, id uuid.UUID, status model.ParticipationStatus, score int, completedAt time.Time, answers []model.ExamAnswer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exam_participations
		 SET status = $1, score = $2, completed_at = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		status, score, completedAt, id, model.ParticipationInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participation %s is not in progress: %w", id, pgx.ErrNoRows)
	}

	for i := range answers {
		a := &answers[i]
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_answers (participation_id, question_id, selected_answer, is_correct, flagged_for_review)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (participation_id, question_id) DO UPDATE
			 SET selected_answer = EXCLUDED.selected_answer,
			     is_correct = EXCLUDED.is_correct,
			     flagged_for_review = EXCLUDED.flagged_for_review,
			     updated_at = NOW()`,
			id, a.QuestionID, a.SelectedAnswer, a.IsCorrect, a.FlaggedForReview); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpsertAnswer saves a single in-progress answer (the autosave path).
// The participation is resolved by (exam, user) and must still be running.
func (r *ParticipationRepository) UpsertAnswer(ctx context.Context, examID, userID, questionID uuid.UUID, answer string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_answers (participation_id, question_id, selected_answer)
		 SELECT p.id, $3, $4
		 FROM exam_participations p
		 WHERE p.exam_id = $1 AND p.user_id = $2 AND p.status = $5
		 ON CONFLICT (participation_id, question_id) DO UPDATE
		 SET selected_answer = EXCLUDED.selected_answer, updated_at = NOW()`,
		examID, userID, questionID, answer, model.ParticipationInProgress)
	return err
}

// ListAnswers retrieves the saved answers of a participation.
func (r *ParticipationRepository) ListAnswers(ctx context.Context, participationID uuid.UUID) ([]model.ExamAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participation_id, question_id, selected_answer, is_correct, flagged_for_review, updated_at
		 FROM exam_answers
		 WHERE participation_id = $1`,
		participationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.ExamAnswer
	for rows.Next() {
		var a model.ExamAnswer
		if err := rows.Scan(&a.ID, &a.ParticipationID, &a.QuestionID, &a.SelectedAnswer,
			&a.IsCorrect, &a.FlaggedForReview, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ListExpiredInProgress retrieves in-progress participations whose exam
// window already closed, for the auto-closure sweep.
func (r *ParticipationRepository) ListExpiredInProgress(ctx context.Context, now time.Time) ([]model.ExamParticipation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.exam_id, p.user_id, p.status, p.started_at, p.completed_at, p.score,
		        p.pause_phase, p.pause_started_at, p.pause_ended_at, p.is_pause_cut_short,
		        p.total_pause_duration_ms, p.created_at, p.updated_at
		 FROM exam_participations p
		 JOIN exams e ON e.id = p.exam_id
		 WHERE p.status = $1 AND e.end_date < $2`,
		model.ParticipationInProgress, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participations []model.ExamParticipation
	for rows.Next() {
		var p model.ExamParticipation
		if err := rows.Scan(&p.ID, &p.ExamID, &p.UserID, &p.Status, &p.StartedAt, &p.CompletedAt,
			&p.Score, &p.PausePhase, &p.PauseStartedAt, &p.PauseEndedAt, &p.IsPauseCutShort,
			&p.TotalPauseDurationMs, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		participations = append(participations, p)
	}
	return participations, rows.Err()
}

// CountInProgress counts all running participations, for sweep observability.
func (r *ParticipationRepository) CountInProgress(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_participations WHERE status = $1`,
		model.ParticipationInProgress).Scan(&count)
	return count, err
}

// Leaderboard returns terminal participations of an exam sorted by score
// descending, ties broken by earlier completion.
func (r *ParticipationRepository) Leaderboard(ctx context.Context, examID uuid.UUID) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.user_id, u.name, COALESCE(p.score, 0), p.completed_at
		 FROM exam_participations p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.exam_id = $1 AND p.status IN ($2, $3)
		 ORDER BY p.score DESC NULLS LAST, p.completed_at ASC`,
		examID, model.ParticipationCompleted, model.ParticipationAutoSubmitted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Score, &e.CompletedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ParticipationRepository) guardedExec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
