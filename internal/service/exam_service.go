package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/model"
)

// ExamStore is the exam definition persistence consumed by ExamService and
// ExamSessionService.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	List(ctx context.Context, page, perPage int, activeOnly bool) ([]model.Exam, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExamService manages exam definitions. The completion time budget is always
// derived server-side from the question count; admins never set it directly.
type ExamService struct {
	exams ExamStore
	cfg   *config.Config
	log   zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, cfg *config.Config, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams: exams,
		cfg:   cfg,
		log:   log.With().Str("component", "exam_service").Logger(),
	}
}

// Get returns a single exam definition.
func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exam %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// List returns exam definitions. Non-admin callers only see active exams.
func (s *ExamService) List(ctx context.Context, page, perPage int, activeOnly bool) ([]model.Exam, int64, error) {
	return s.exams.List(ctx, page, perPage, activeOnly)
}

// Create persists a new exam definition with a derived completion budget.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	e := &model.Exam{
		Title:                 req.Title,
		Description:           req.Description,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		QuestionIDs:           req.QuestionIDs,
		CompletionTimeSeconds: len(req.QuestionIDs) * s.cfg.SecondsPerQuestion,
		EnablePause:           req.EnablePause,
		PauseDurationMinutes:  s.clampPause(req.PauseDurationMinutes),
		Active:                true,
	}
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.log.Info().Str("exam_id", e.ID.String()).Int("questions", len(e.QuestionIDs)).Msg("Exam created")
	return e, nil
}

// Update applies a partial edit. Changing the question set recomputes the
// completion budget.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.StartDate != nil {
		e.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		e.EndDate = *req.EndDate
	}
	if !e.EndDate.After(e.StartDate) {
		return nil, fmt.Errorf("end date must be after start date: %w", ErrInvalidInput)
	}
	if len(req.QuestionIDs) > 0 {
		e.QuestionIDs = req.QuestionIDs
		e.CompletionTimeSeconds = len(req.QuestionIDs) * s.cfg.SecondsPerQuestion
	}
	if req.EnablePause != nil {
		e.EnablePause = *req.EnablePause
	}
	if req.PauseDurationMinutes != nil {
		e.PauseDurationMinutes = s.clampPause(*req.PauseDurationMinutes)
	}
	if req.Active != nil {
		e.Active = *req.Active
	}

	if err := s.exams.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return e, nil
}

// Delete removes an exam definition.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("exam %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

func (s *ExamService) clampPause(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	if minutes > s.cfg.MaxPauseMinutes {
		return s.cfg.MaxPauseMinutes
	}
	return minutes
}
