package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/model"
)

// TrainingStore is the practice session persistence consumed by
// TrainingService.
type TrainingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.TrainingSession, error)
	GetInProgressByUser(ctx context.Context, userID uuid.UUID) (*model.TrainingSession, error)
	Create(ctx context.Context, s *model.TrainingSession) error
	UpsertAnswers(ctx context.Context, sessionID uuid.UUID, answers []model.TrainingAnswer) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.TrainingAnswer, error)
	Finish(ctx context.Context, id uuid.UUID, status model.TrainingStatus, score *int, completedAt time.Time) error
	ScoreAnswers(ctx context.Context, sessionID uuid.UUID, key map[uuid.UUID]string) (int, int, error)
}

// TrainingService drives the lighter practice-session engine: sampled
// question sets, batch answer saves and TTL-based expiry instead of a sweep.
type TrainingService struct {
	sessions  TrainingStore
	questions QuestionStore
	access    AccessChecker
	cfg       *config.Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewTrainingService creates a new TrainingService.
func NewTrainingService(sessions TrainingStore, questions QuestionStore, access AccessChecker, cfg *config.Config, log zerolog.Logger) *TrainingService {
	return &TrainingService{
		sessions:  sessions,
		questions: questions,
		access:    access,
		cfg:       cfg,
		log:       log.With().Str("component", "training_service").Logger(),
		now:       time.Now,
	}
}

// Create starts a practice session with a uniform random sample of question
// ids, snapshotted so bank edits don't shift the session. At most one
// in-progress session per user.
func (s *TrainingService) Create(ctx context.Context, user *model.User, req *model.CreateTrainingRequest) (*model.TrainingSession, error) {
	ok, err := s.access.HasAccess(ctx, user, model.AccessCategoryTraining)
	if err != nil {
		return nil, fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("training access for user %s: %w", user.ID, ErrAccessExpired)
	}

	existing, err := s.sessions.GetInProgressByUser(ctx, user.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get in-progress session: %w", err)
	}
	if existing != nil && !existing.Expired(s.now()) {
		return nil, fmt.Errorf("an in-progress session exists, resume or abandon it first: %w", ErrAlreadyExists)
	}
	if existing != nil {
		// Expired leftovers are abandoned in place rather than blocking.
		if err := s.sessions.Finish(ctx, existing.ID, model.TrainingAbandoned, nil, s.now()); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("abandon expired session: %w", err)
		}
	}

	available, err := s.questions.CountByDomain(ctx, req.Domain)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if available < req.QuestionCount {
		return nil, fmt.Errorf("requested %d questions, %d available: %w", req.QuestionCount, available, ErrNotEnoughQuestions)
	}

	ids, err := s.questions.SampleIDs(ctx, req.QuestionCount, req.Domain)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}

	now := s.now()
	session := &model.TrainingSession{
		UserID:        user.ID,
		QuestionCount: req.QuestionCount,
		Domain:        req.Domain,
		QuestionIDs:   ids,
		Status:        model.TrainingInProgress,
		StartedAt:     now,
		ExpiresAt:     now.Add(s.cfg.TrainingSessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("user_id", user.ID.String()).
		Int("questions", req.QuestionCount).
		Msg("Training session started")
	return session, nil
}

// getOwn loads a session and verifies ownership.
func (s *TrainingService) getOwn(ctx context.Context, user *model.User, sessionID uuid.UUID) (*model.TrainingSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != user.ID && !user.IsAdmin() {
		return nil, fmt.Errorf("session %s belongs to another user: %w", sessionID, ErrUnauthorized)
	}
	return session, nil
}

// Get returns a session for resuming. Past the TTL the session is surfaced
// as expired, never auto-scored.
func (s *TrainingService) Get(ctx context.Context, user *model.User, sessionID uuid.UUID) (*model.TrainingSession, error) {
	session, err := s.getOwn(ctx, user, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.TrainingInProgress && session.Expired(s.now()) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionExpired)
	}
	return session, nil
}

// SaveAnswers upserts a batch of answers onto an in-progress session.
func (s *TrainingService) SaveAnswers(ctx context.Context, user *model.User, sessionID uuid.UUID, req *model.SaveTrainingAnswersRequest) error {
	session, err := s.getOwn(ctx, user, sessionID)
	if err != nil {
		return err
	}
	if session.Status != model.TrainingInProgress {
		return fmt.Errorf("session already %s: %w", session.Status, ErrInvalidState)
	}
	if session.Expired(s.now()) {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionExpired)
	}

	inSession := make(map[uuid.UUID]struct{}, len(session.QuestionIDs))
	for _, id := range session.QuestionIDs {
		inSession[id] = struct{}{}
	}
	answers := make([]model.TrainingAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		if _, ok := inSession[a.QuestionID]; !ok {
			return fmt.Errorf("question %s not in session: %w", a.QuestionID, ErrNotFound)
		}
		answers = append(answers, model.TrainingAnswer{
			SessionID:      sessionID,
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.SelectedAnswer,
		})
	}

	if err := s.sessions.UpsertAnswers(ctx, sessionID, answers); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session already finished: %w", ErrInvalidState)
		}
		return fmt.Errorf("save answers: %w", err)
	}
	return nil
}

// Complete scores the session against the question bank and finishes it.
func (s *TrainingService) Complete(ctx context.Context, user *model.User, sessionID uuid.UUID) (*model.SubmitResult, error) {
	session, err := s.getOwn(ctx, user, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.TrainingInProgress {
		return nil, fmt.Errorf("session already %s: %w", session.Status, ErrInvalidState)
	}
	if session.Expired(s.now()) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionExpired)
	}

	key, err := s.questions.CorrectAnswers(ctx, session.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	correct, _, err := s.sessions.ScoreAnswers(ctx, sessionID, key)
	if err != nil {
		return nil, fmt.Errorf("score answers: %w", err)
	}

	total := len(session.QuestionIDs)
	score := roundedPercentage(correct, total)
	if err := s.sessions.Finish(ctx, sessionID, model.TrainingCompleted, &score, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session already finished: %w", ErrInvalidState)
		}
		return nil, fmt.Errorf("finish session: %w", err)
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("score", score).
		Msg("Training session completed")
	return &model.SubmitResult{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
	}, nil
}

// Abandon finishes the session without scoring.
func (s *TrainingService) Abandon(ctx context.Context, user *model.User, sessionID uuid.UUID) error {
	session, err := s.getOwn(ctx, user, sessionID)
	if err != nil {
		return err
	}
	if session.Status != model.TrainingInProgress {
		return fmt.Errorf("session already %s: %w", session.Status, ErrInvalidState)
	}
	if err := s.sessions.Finish(ctx, sessionID, model.TrainingAbandoned, nil, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session already finished: %w", ErrInvalidState)
		}
		return fmt.Errorf("abandon session: %w", err)
	}
	return nil
}

// Answers lists the answers recorded on the caller's session.
func (s *TrainingService) Answers(ctx context.Context, user *model.User, sessionID uuid.UUID) ([]model.TrainingAnswer, error) {
	if _, err := s.getOwn(ctx, user, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListAnswers(ctx, sessionID)
}
