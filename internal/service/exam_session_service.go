package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/model"
)

// ParticipationStore is the exam session persistence consumed by
// ExamSessionService.
type ParticipationStore interface {
	GetByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.ExamParticipation, error)
	Create(ctx context.Context, p *model.ExamParticipation) error
	StartPause(ctx context.Context, id uuid.UUID, at time.Time) error
	EndPause(ctx context.Context, id uuid.UUID, at time.Time, pausedMs int64, cutShort bool) error
	Complete(ctx context.Context, id uuid.UUID, status model.ParticipationStatus, score int, completedAt time.Time, answers []model.ExamAnswer) error
	UpsertAnswer(ctx context.Context, examID, userID, questionID uuid.UUID, answer string) error
	ListAnswers(ctx context.Context, participationID uuid.UUID) ([]model.ExamAnswer, error)
	ListExpiredInProgress(ctx context.Context, now time.Time) ([]model.ExamParticipation, error)
	CountInProgress(ctx context.Context) (int, error)
	Leaderboard(ctx context.Context, examID uuid.UUID) ([]model.LeaderboardEntry, error)
}

// QuestionStore is the read-only question bank dependency.
type QuestionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	CorrectAnswers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	CountByDomain(ctx context.Context, domain *string) (int, error)
	SampleIDs(ctx context.Context, n int, domain *string) ([]uuid.UUID, error)
}

// AccessChecker is the entitlement gate consumed by the session engines.
type AccessChecker interface {
	HasAccess(ctx context.Context, user *model.User, category model.AccessCategory) (bool, error)
}

// autosavePayload rides the autosave queue between the save endpoint and
// the worker that persists it.
type autosavePayload struct {
	ExamID     uuid.UUID `json:"exam_id"`
	UserID     uuid.UUID `json:"user_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}

// fraudEvent is the payload pushed to the fraud queue for async persistence
// and alerting.
type fraudEvent struct {
	ExamID        uuid.UUID `json:"exam_id"`
	UserID        uuid.UUID `json:"user_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	QuestionIndex int       `json:"question_index"`
	Phase         string    `json:"phase"`
	DetectedAt    time.Time `json:"detected_at"`
}

// ExamSessionService drives the per-(exam,user) session lifecycle: start,
// pause/resume, answer autosave, time-boxed submission with fraud checks,
// and background auto-closure of expired sessions.
type ExamSessionService struct {
	participations ParticipationStore
	exams          ExamStore
	questions      QuestionStore
	access         AccessChecker
	rdb            *redis.Client
	cfg            *config.Config
	log            zerolog.Logger
	now            func() time.Time
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	participations ParticipationStore,
	exams ExamStore,
	questions QuestionStore,
	access AccessChecker,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		participations: participations,
		exams:          exams,
		questions:      questions,
		access:         access,
		rdb:            rdb,
		cfg:            cfg,
		log:            log.With().Str("component", "exam_session_service").Logger(),
		now:            time.Now,
	}
}

func (s *ExamSessionService) getExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exam %s: %w", examID, ErrNotFound)
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// Start begins a session, or returns the existing in-progress session's
// timing idempotently. Safe to call repeatedly on page reload.
func (s *ExamSessionService) Start(ctx context.Context, user *model.User, examID uuid.UUID) (*model.ParticipationTiming, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	ok, err := s.access.HasAccess(ctx, user, model.AccessCategoryExam)
	if err != nil {
		return nil, fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("exam access for user %s: %w", user.ID, ErrAccessExpired)
	}

	now := s.now()
	if !exam.Active || !exam.WindowContains(now) {
		return nil, fmt.Errorf("exam %s: %w", examID, ErrExamNotAvailable)
	}

	existing, err := s.participations.GetByExamAndUser(ctx, examID, user.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get participation: %w", err)
	}
	if existing != nil {
		if existing.Status != model.ParticipationInProgress {
			return nil, fmt.Errorf("exam %s: %w", examID, ErrAlreadyTaken)
		}
		return s.timing(ctx, exam, existing), nil
	}

	p := &model.ExamParticipation{
		ExamID:    examID,
		UserID:    user.ID,
		Status:    model.ParticipationInProgress,
		StartedAt: now,
	}
	if exam.EnablePause {
		phase := model.PhaseBeforePause
		p.PausePhase = &phase
	}
	if err := s.participations.Create(ctx, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a double-start race; the winner's row is authoritative.
			existing, err = s.participations.GetByExamAndUser(ctx, examID, user.ID)
			if err != nil {
				return nil, fmt.Errorf("get participation after race: %w", err)
			}
			if existing.Status != model.ParticipationInProgress {
				return nil, fmt.Errorf("exam %s: %w", examID, ErrAlreadyTaken)
			}
			return s.timing(ctx, exam, existing), nil
		}
		return nil, fmt.Errorf("create participation: %w", err)
	}

	s.cacheStartTime(ctx, exam, p)

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", user.ID.String()).
		Msg("Exam session started")
	return s.timing(ctx, exam, p), nil
}

func (s *ExamSessionService) timing(ctx context.Context, exam *model.Exam, p *model.ExamParticipation) *model.ParticipationTiming {
	elapsed := s.now().Sub(p.StartedAt) - time.Duration(p.TotalPauseDurationMs)*time.Millisecond
	remaining := float64(exam.CompletionTimeSeconds) - elapsed.Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return &model.ParticipationTiming{
		ParticipationID:       p.ID,
		StartedAt:             p.StartedAt,
		CompletionTimeSeconds: exam.CompletionTimeSeconds,
		PausePhase:            p.PausePhase,
		TotalPauseDurationMs:  p.TotalPauseDurationMs,
		RemainingSeconds:      remaining,
	}
}

// cacheStartTime warms the redis keys the websocket clock and the timing
// check read from. Best effort; PostgreSQL remains authoritative.
func (s *ExamSessionService) cacheStartTime(ctx context.Context, exam *model.Exam, p *model.ExamParticipation) {
	if s.rdb == nil {
		return
	}
	ttl := time.Duration(exam.CompletionTimeSeconds)*time.Second +
		time.Duration(exam.PauseDurationMinutes)*time.Minute +
		s.cfg.AutoSubmitGrace
	key := config.CacheKey.ParticipationStartKey(exam.ID.String(), p.UserID.String())
	if err := s.rdb.Set(ctx, key, p.StartedAt.UnixMilli(), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache session start time")
	}
	ctKey := config.CacheKey.ExamCompletionTimeKey(exam.ID.String())
	if err := s.rdb.Set(ctx, ctKey, exam.CompletionTimeSeconds, ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", ctKey).Msg("Failed to cache completion time")
	}
}

func (s *ExamSessionService) getOwnInProgress(ctx context.Context, examID, userID uuid.UUID) (*model.ExamParticipation, error) {
	p, err := s.participations.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no session for exam %s: %w", examID, ErrNotFound)
		}
		return nil, fmt.Errorf("get participation: %w", err)
	}
	if p.Status != model.ParticipationInProgress {
		return nil, fmt.Errorf("session already %s: %w", p.Status, ErrInvalidState)
	}
	return p, nil
}

// StartPause transitions before_pause → during_pause. The pause can only be
// taken once per session. manualTrigger records whether the participant asked
// for the pause or the client clock forced it.
func (s *ExamSessionService) StartPause(ctx context.Context, user *model.User, examID uuid.UUID, manualTrigger bool) (*model.ExamParticipation, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.EnablePause {
		return nil, fmt.Errorf("exam %s does not enable pause: %w", examID, ErrInvalidState)
	}

	p, err := s.getOwnInProgress(ctx, examID, user.ID)
	if err != nil {
		return nil, err
	}
	if p.PausePhase == nil || *p.PausePhase != model.PhaseBeforePause {
		return nil, fmt.Errorf("pause can only be started once: %w", ErrInvalidState)
	}

	now := s.now()
	if err := s.participations.StartPause(ctx, p.ID, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pause can only be started once: %w", ErrInvalidState)
		}
		return nil, fmt.Errorf("start pause: %w", err)
	}

	phase := model.PhaseDuringPause
	p.PausePhase = &phase
	p.PauseStartedAt = &now

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", user.ID.String()).
		Bool("manual_trigger", manualTrigger).
		Msg("Exam pause started")
	return p, nil
}

// ResumeFromPause transitions during_pause → after_pause and accumulates the
// paused time so it is excluded from the elapsed-time budget.
func (s *ExamSessionService) ResumeFromPause(ctx context.Context, user *model.User, examID uuid.UUID) (*model.ExamParticipation, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	p, err := s.getOwnInProgress(ctx, examID, user.ID)
	if err != nil {
		return nil, err
	}
	if p.PausePhase == nil || *p.PausePhase != model.PhaseDuringPause {
		return nil, fmt.Errorf("session is not paused: %w", ErrInvalidState)
	}
	if p.PauseStartedAt == nil {
		return nil, fmt.Errorf("pause has no start time: %w", ErrInvalidState)
	}

	now := s.now()
	pausedMs := now.Sub(*p.PauseStartedAt).Milliseconds()
	cutShort := pausedMs < int64(exam.PauseDurationMinutes)*60_000

	if err := s.participations.EndPause(ctx, p.ID, now, pausedMs, cutShort); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session is not paused: %w", ErrInvalidState)
		}
		return nil, fmt.Errorf("end pause: %w", err)
	}

	phase := model.PhaseAfterPause
	p.PausePhase = &phase
	p.PauseEndedAt = &now
	p.IsPauseCutShort = cutShort
	p.TotalPauseDurationMs += pausedMs
	return p, nil
}

// ValidateQuestionAccess reports whether questionIndex is answerable in the
// session's current phase. Advisory for the client; the same rule is
// re-enforced at submission time.
func (s *ExamSessionService) ValidateQuestionAccess(ctx context.Context, user *model.User, examID uuid.UUID, questionIndex int) (*model.QuestionAccess, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if questionIndex < 0 || questionIndex >= len(exam.QuestionIDs) {
		return nil, fmt.Errorf("question index %d out of range: %w", questionIndex, ErrInvalidInput)
	}
	// Admins are exempt from the pause lock, never from the bounds check.
	if !exam.EnablePause || user.IsAdmin() {
		return &model.QuestionAccess{Allowed: true}, nil
	}

	p, err := s.getOwnInProgress(ctx, examID, user.ID)
	if err != nil {
		return nil, err
	}
	if p.PausePhase == nil {
		return &model.QuestionAccess{Allowed: true}, nil
	}

	switch *p.PausePhase {
	case model.PhaseBeforePause:
		if questionIndex >= exam.Midpoint() {
			return &model.QuestionAccess{Allowed: false, Reason: "unlocked after the pause"}, nil
		}
		return &model.QuestionAccess{Allowed: true}, nil
	case model.PhaseDuringPause:
		return &model.QuestionAccess{Allowed: false, Reason: "locked during the pause"}, nil
	case model.PhaseAfterPause:
		return &model.QuestionAccess{Allowed: true}, nil
	default:
		return nil, fmt.Errorf("unknown pause phase %q: %w", *p.PausePhase, ErrInvalidState)
	}
}

// SaveAnswer upserts a single autosaved answer for the caller's in-progress
// session. The autosaved set is what the sweep scores for partial credit.
func (s *ExamSessionService) SaveAnswer(ctx context.Context, user *model.User, examID, questionID uuid.UUID, answer string) error {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return err
	}

	idx := -1
	for i, id := range exam.QuestionIDs {
		if id == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("question %s not in exam: %w", questionID, ErrNotFound)
	}

	if exam.EnablePause && !user.IsAdmin() {
		p, err := s.getOwnInProgress(ctx, examID, user.ID)
		if err != nil {
			return err
		}
		if p.PausePhase != nil {
			switch *p.PausePhase {
			case model.PhaseDuringPause:
				return fmt.Errorf("answers are locked during the pause: %w", ErrInvalidState)
			case model.PhaseBeforePause:
				if idx >= exam.Midpoint() {
					return fmt.Errorf("question unlocked after the pause: %w", ErrInvalidState)
				}
			}
		}
	}

	// The queue decouples the autosave hot path from PostgreSQL; the
	// autosave worker persists asynchronously.
	if s.rdb != nil {
		payload, merr := json.Marshal(autosavePayload{
			ExamID:     examID,
			UserID:     user.ID,
			QuestionID: questionID,
			Answer:     answer,
		})
		if merr == nil {
			qerr := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err()
			if qerr == nil {
				return nil
			}
			s.log.Warn().Err(qerr).Msg("Autosave queue unavailable, writing directly")
		}
	}

	if err := s.participations.UpsertAnswer(ctx, examID, user.ID, questionID, answer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("no in-progress session for exam %s: %w", examID, ErrNotFound)
		}
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// SubmitAnswers finishes a session: window, status, timing and fraud checks,
// then scoring and a single atomic persist of the terminal state.
func (s *ExamSessionService) SubmitAnswers(ctx context.Context, user *model.User, examID uuid.UUID, req *model.SubmitAnswersRequest) (*model.SubmitResult, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !exam.WindowContains(now) {
		return nil, fmt.Errorf("exam %s: %w", examID, ErrExamNotAvailable)
	}

	ok, err := s.access.HasAccess(ctx, user, model.AccessCategoryExam)
	if err != nil {
		return nil, fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("exam access for user %s: %w", user.ID, ErrAccessExpired)
	}

	p, err := s.participations.GetByExamAndUser(ctx, examID, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session must be started first: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get participation: %w", err)
	}
	if p.Status != model.ParticipationInProgress {
		return nil, fmt.Errorf("session already %s: %w", p.Status, ErrInvalidState)
	}

	grace := s.cfg.ManualSubmitGrace
	if req.IsAutoSubmit {
		grace = s.cfg.AutoSubmitGrace
	}
	elapsed := now.Sub(p.StartedAt) - time.Duration(p.TotalPauseDurationMs)*time.Millisecond
	maxAllowed := time.Duration(exam.CompletionTimeSeconds)*time.Second + grace
	if elapsed > maxAllowed {
		return nil, fmt.Errorf("submitted %.1fs past the budget: %w", (elapsed - maxAllowed).Seconds(), ErrTimeExpired)
	}

	// Reject answers for questions outside this exam and collapse duplicate
	// entries for the same question (last occurrence wins, mirroring the
	// autosave upsert), so a malformed payload can never inflate the score.
	indexOf := make(map[uuid.UUID]int, len(exam.QuestionIDs))
	for i, id := range exam.QuestionIDs {
		indexOf[id] = i
	}
	seen := make(map[uuid.UUID]int, len(req.Answers))
	submitted := make([]model.AnswerSubmission, 0, len(req.Answers))
	for _, a := range req.Answers {
		if _, known := indexOf[a.QuestionID]; !known {
			return nil, fmt.Errorf("question %s not in exam: %w", a.QuestionID, ErrNotFound)
		}
		if pos, dup := seen[a.QuestionID]; dup {
			submitted[pos] = a
			continue
		}
		seen[a.QuestionID] = len(submitted)
		submitted = append(submitted, a)
	}

	if exam.EnablePause && p.PausePhase != nil && !user.IsAdmin() {
		if err := s.validateSubmissionPhase(ctx, exam, p, user, submitted, indexOf); err != nil {
			return nil, err
		}
	}

	key, err := s.answerKey(ctx, exam, req.CorrectAnswers)
	if err != nil {
		return nil, err
	}

	total := len(exam.QuestionIDs)
	correct := 0
	answers := make([]model.ExamAnswer, 0, len(submitted))
	for _, a := range submitted {
		isCorrect := key[a.QuestionID] == a.SelectedAnswer
		if isCorrect {
			correct++
		}
		ok := isCorrect
		answers = append(answers, model.ExamAnswer{
			QuestionID:       a.QuestionID,
			SelectedAnswer:   a.SelectedAnswer,
			IsCorrect:        &ok,
			FlaggedForReview: a.FlaggedForReview,
		})
	}
	score := roundedPercentage(correct, total)

	if err := s.participations.Complete(ctx, p.ID, model.ParticipationCompleted, score, now, answers); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session already finished: %w", ErrInvalidState)
		}
		return nil, fmt.Errorf("complete session: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", user.ID.String()).
		Int("score", score).
		Bool("auto_submit", req.IsAutoSubmit).
		Msg("Exam session submitted")
	return &model.SubmitResult{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
	}, nil
}

// validateSubmissionPhase re-enforces the question lock server-side. A locked
// answer is a security violation and is pushed to the fraud queue before the
// submission is rejected.
func (s *ExamSessionService) validateSubmissionPhase(ctx context.Context, exam *model.Exam, p *model.ExamParticipation, user *model.User, answers []model.AnswerSubmission, indexOf map[uuid.UUID]int) error {
	phase := *p.PausePhase
	if phase == model.PhaseAfterPause {
		return nil
	}
	if phase == model.PhaseDuringPause {
		return fmt.Errorf("no answers may be submitted while paused: %w", ErrInvalidState)
	}

	midpoint := exam.Midpoint()
	for _, a := range answers {
		idx := indexOf[a.QuestionID]
		if idx >= midpoint {
			fe := &FraudError{QuestionID: a.QuestionID, QuestionIndex: idx, Phase: string(phase)}
			s.reportFraud(ctx, exam.ID, user.ID, fe)
			return fe
		}
	}
	return nil
}

// reportFraud logs the violation and queues it for persistence. Reporting
// must never block or fail the rejection itself.
func (s *ExamSessionService) reportFraud(ctx context.Context, examID, userID uuid.UUID, fe *FraudError) {
	s.log.Warn().
		Str("exam_id", examID.String()).
		Str("user_id", userID.String()).
		Str("question_id", fe.QuestionID.String()).
		Int("question_index", fe.QuestionIndex).
		Str("phase", fe.Phase).
		Msg("Fraud detected: answer submitted for locked question")

	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(fraudEvent{
		ExamID:        examID,
		UserID:        userID,
		QuestionID:    fe.QuestionID,
		QuestionIndex: fe.QuestionIndex,
		Phase:         fe.Phase,
		DetectedAt:    s.now(),
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.FraudEventsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Msg("Failed to queue fraud event")
	}
}

// answerKey resolves the scoring key: the client-supplied map when present,
// otherwise the question bank.
func (s *ExamSessionService) answerKey(ctx context.Context, exam *model.Exam, clientKey map[string]string) (map[uuid.UUID]string, error) {
	if len(clientKey) > 0 {
		key := make(map[uuid.UUID]string, len(clientKey))
		for raw, answer := range clientKey {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("answer key id %q: %w", raw, ErrInvalidInput)
			}
			key[id] = answer
		}
		return key, nil
	}
	key, err := s.questions.CorrectAnswers(ctx, exam.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	return key, nil
}

// SweepExpired closes every in-progress session whose exam window has ended,
// scoring whatever answers were autosaved for partial credit. One failing
// session never aborts the pass.
func (s *ExamSessionService) SweepExpired(ctx context.Context) (*model.SweepResult, error) {
	inProgress, err := s.participations.CountInProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("count in-progress sessions: %w", err)
	}

	expired, err := s.participations.ListExpiredInProgress(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}

	closed := 0
	for i := range expired {
		p := &expired[i]
		if err := s.closeExpired(ctx, p); err != nil {
			s.log.Error().Err(err).
				Str("participation_id", p.ID.String()).
				Msg("Failed to auto-close expired session")
			continue
		}
		closed++
	}

	result := &model.SweepResult{ProcessedCount: inProgress, ClosedCount: closed}
	s.log.Info().
		Int("processed", result.ProcessedCount).
		Int("closed", result.ClosedCount).
		Msg("Expired session sweep finished")
	return result, nil
}

func (s *ExamSessionService) closeExpiredOnce(ctx context.Context, p *model.ExamParticipation, score int) error {
	err := s.participations.Complete(ctx, p.ID, model.ParticipationAutoSubmitted, score, s.now(), nil)
	if errors.Is(err, pgx.ErrNoRows) {
		// A racing manual submission won; nothing left to do.
		return nil
	}
	return err
}

func (s *ExamSessionService) closeExpired(ctx context.Context, p *model.ExamParticipation) error {
	exam, err := s.getExam(ctx, p.ExamID)
	if err != nil {
		return err
	}

	saved, err := s.participations.ListAnswers(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list saved answers: %w", err)
	}

	score := 0
	if len(saved) > 0 {
		key, err := s.questions.CorrectAnswers(ctx, exam.QuestionIDs)
		if err != nil {
			return fmt.Errorf("load answer key: %w", err)
		}
		correct := 0
		for _, a := range saved {
			if key[a.QuestionID] == a.SelectedAnswer {
				correct++
			}
		}
		score = roundedPercentage(correct, len(exam.QuestionIDs))
	}

	return s.closeExpiredOnce(ctx, p, score)
}

// Leaderboard returns the roster ranking for a finished exam. Admins always
// may view it; a regular user must hold a participation in the exam and the
// window must have closed.
func (s *ExamSessionService) Leaderboard(ctx context.Context, user *model.User, examID uuid.UUID) ([]model.LeaderboardEntry, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() {
		if s.now().Before(exam.EndDate) {
			return nil, fmt.Errorf("leaderboard unavailable until the exam ends: %w", ErrUnauthorized)
		}
		if _, err := s.participations.GetByExamAndUser(ctx, examID, user.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("only participants may view the leaderboard: %w", ErrUnauthorized)
			}
			return nil, fmt.Errorf("get participation: %w", err)
		}
	}

	return s.participations.Leaderboard(ctx, examID)
}

// Timing returns the caller's current session timing, for countdown rebuilds.
func (s *ExamSessionService) Timing(ctx context.Context, user *model.User, examID uuid.UUID) (*model.ParticipationTiming, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	p, err := s.getOwnInProgress(ctx, examID, user.ID)
	if err != nil {
		return nil, err
	}
	return s.timing(ctx, exam, p), nil
}

func roundedPercentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
