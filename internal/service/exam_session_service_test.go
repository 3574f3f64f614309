package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/model"
)

type sessionFixture struct {
	participations *MockParticipationStore
	exams          *MockExamStore
	questions      *MockQuestionStore
	access         *MockAccessChecker
	svc            *ExamSessionService
	now            time.Time
}

func newSessionFixture(now time.Time) *sessionFixture {
	f := &sessionFixture{
		participations: new(MockParticipationStore),
		exams:          new(MockExamStore),
		questions:      new(MockQuestionStore),
		access:         new(MockAccessChecker),
		now:            now,
	}
	cfg := &config.Config{
		SecondsPerQuestion: 83,
		MaxPauseMinutes:    60,
		AutoSubmitGrace:    30 * time.Second,
		ManualSubmitGrace:  5 * time.Second,
	}
	f.svc = NewExamSessionService(f.participations, f.exams, f.questions, f.access, nil, cfg, zerolog.Nop())
	f.svc.now = fixedClock(now)
	return f
}

// pausedExam builds a 4-question exam with pause enabled; midpoint is 2.
func pausedExam(now time.Time) *model.Exam {
	return &model.Exam{
		ID:                    uuid.New(),
		Title:                 "AWS SAA mock 1",
		StartDate:             now.Add(-time.Hour),
		EndDate:               now.Add(24 * time.Hour),
		QuestionIDs:           []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()},
		CompletionTimeSeconds: 4 * 83,
		EnablePause:           true,
		PauseDurationMinutes:  15,
		Active:                true,
	}
}

func regularUser() *model.User {
	return &model.User{ID: uuid.New(), Role: model.RoleUser, Name: "Tester"}
}

func inProgress(exam *model.Exam, userID uuid.UUID, startedAt time.Time, phase *model.PausePhase) *model.ExamParticipation {
	return &model.ExamParticipation{
		ID:         uuid.New(),
		ExamID:     exam.ID,
		UserID:     userID,
		Status:     model.ParticipationInProgress,
		StartedAt:  startedAt,
		PausePhase: phase,
	}
}

func phasePtr(p model.PausePhase) *model.PausePhase { return &p }

func TestStart_DeniedWithoutEntitlement(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(false, nil)

	_, err := f.svc.Start(context.Background(), user, exam.ID)

	assert.ErrorIs(t, err, ErrAccessExpired)
}

func TestStart_OutsideWindowRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	exam.EndDate = now.Add(-time.Minute)
	user := regularUser()

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)

	_, err := f.svc.Start(context.Background(), user, exam.ID)

	assert.ErrorIs(t, err, ErrExamNotAvailable)
}

func TestStart_AlreadyTakenRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	done := inProgress(exam, user.ID, now.Add(-time.Hour), nil)
	done.Status = model.ParticipationCompleted

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(done, nil)

	_, err := f.svc.Start(context.Background(), user, exam.ID)

	assert.ErrorIs(t, err, ErrAlreadyTaken)
}

func TestStart_IdempotentForInProgressSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	existing := inProgress(exam, user.ID, now.Add(-time.Minute), phasePtr(model.PhaseBeforePause))

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(existing, nil)

	timing, err := f.svc.Start(context.Background(), user, exam.ID)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, timing.ParticipationID)
	assert.Equal(t, existing.StartedAt, timing.StartedAt)
	assert.InDelta(t, float64(exam.CompletionTimeSeconds)-60, timing.RemainingSeconds, 0.01)
	f.participations.AssertNotCalled(t, "Create")
}

func TestStart_CreatesWithBeforePausePhase(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(nil, pgx.ErrNoRows)
	f.participations.On("Create", mock.Anything, mock.MatchedBy(func(p *model.ExamParticipation) bool {
		return p.Status == model.ParticipationInProgress &&
			p.StartedAt.Equal(now) &&
			p.PausePhase != nil && *p.PausePhase == model.PhaseBeforePause
	})).Return(nil)

	timing, err := f.svc.Start(context.Background(), user, exam.ID)

	require.NoError(t, err)
	assert.Equal(t, float64(exam.CompletionTimeSeconds), timing.RemainingSeconds)
}

func TestStart_DoubleStartRaceReturnsWinner(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	winner := inProgress(exam, user.ID, now, phasePtr(model.PhaseBeforePause))

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(nil, pgx.ErrNoRows).Once()
	f.participations.On("Create", mock.Anything, mock.Anything).Return(pgx.ErrNoRows)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(winner, nil).Once()

	timing, err := f.svc.Start(context.Background(), user, exam.ID)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, timing.ParticipationID)
}

func TestStartPause_OnlyOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	p := inProgress(exam, user.ID, now.Add(-time.Minute), phasePtr(model.PhaseAfterPause))

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)

	_, err := f.svc.StartPause(context.Background(), user, exam.ID, true)

	assert.ErrorIs(t, err, ErrInvalidState)
	f.participations.AssertNotCalled(t, "StartPause")
}

func TestStartPause_Transitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	p := inProgress(exam, user.ID, now.Add(-time.Minute), phasePtr(model.PhaseBeforePause))

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)
	f.participations.On("StartPause", mock.Anything, p.ID, now).Return(nil)

	updated, err := f.svc.StartPause(context.Background(), user, exam.ID, false)

	require.NoError(t, err)
	assert.Equal(t, model.PhaseDuringPause, *updated.PausePhase)
	assert.Equal(t, now, *updated.PauseStartedAt)
}

func TestResumeFromPause_EarlyResumeIsCutShort(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now) // 15 minute pause budget
	user := regularUser()

	pauseStart := now.Add(-5 * time.Minute)
	p := inProgress(exam, user.ID, now.Add(-30*time.Minute), phasePtr(model.PhaseDuringPause))
	p.PauseStartedAt = &pauseStart

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)
	f.participations.On("EndPause", mock.Anything, p.ID, now, int64(5*60*1000), true).Return(nil)

	updated, err := f.svc.ResumeFromPause(context.Background(), user, exam.ID)

	require.NoError(t, err)
	assert.Equal(t, model.PhaseAfterPause, *updated.PausePhase)
	assert.True(t, updated.IsPauseCutShort)
	assert.Equal(t, int64(5*60*1000), updated.TotalPauseDurationMs)
}

func TestResumeFromPause_FullPauseNotCutShort(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	pauseStart := now.Add(-16 * time.Minute)
	p := inProgress(exam, user.ID, now.Add(-40*time.Minute), phasePtr(model.PhaseDuringPause))
	p.PauseStartedAt = &pauseStart

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)
	f.participations.On("EndPause", mock.Anything, p.ID, now, int64(16*60*1000), false).Return(nil)

	updated, err := f.svc.ResumeFromPause(context.Background(), user, exam.ID)

	require.NoError(t, err)
	assert.False(t, updated.IsPauseCutShort)
}

func TestValidateQuestionAccess_PhaseMatrix(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		phase   model.PausePhase
		index   int
		allowed bool
		reason  string
	}{
		{"before pause, first half", model.PhaseBeforePause, 1, true, ""},
		{"before pause, midpoint locked", model.PhaseBeforePause, 2, false, "unlocked after the pause"},
		{"during pause, everything locked", model.PhaseDuringPause, 0, false, "locked during the pause"},
		{"after pause, second half open", model.PhaseAfterPause, 3, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSessionFixture(now)
			exam := pausedExam(now)
			user := regularUser()
			p := inProgress(exam, user.ID, now.Add(-time.Minute), phasePtr(tc.phase))

			f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
			f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)

			access, err := f.svc.ValidateQuestionAccess(context.Background(), user, exam.ID, tc.index)

			require.NoError(t, err)
			assert.Equal(t, tc.allowed, access.Allowed)
			assert.Equal(t, tc.reason, access.Reason)
		})
	}
}

func TestValidateQuestionAccess_PauseDisabledAlwaysAllowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	exam.EnablePause = false
	user := regularUser()

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)

	access, err := f.svc.ValidateQuestionAccess(context.Background(), user, exam.ID, 3)

	require.NoError(t, err)
	assert.True(t, access.Allowed)
	f.participations.AssertNotCalled(t, "GetByExamAndUser")
}

func submitFixture(t *testing.T, now time.Time, phase *model.PausePhase, startedAt time.Time) (*sessionFixture, *model.Exam, *model.User, *model.ExamParticipation) {
	t.Helper()
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()
	p := inProgress(exam, user.ID, startedAt, phase)

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)
	return f, exam, user, p
}

func answerKeyFor(exam *model.Exam, correct string) map[string]string {
	key := make(map[string]string, len(exam.QuestionIDs))
	for _, id := range exam.QuestionIDs {
		key[id.String()] = correct
	}
	return key
}

func TestSubmitAnswers_FraudOnLockedQuestionBeforePause(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f, exam, user, _ := submitFixture(t, now, phasePtr(model.PhaseBeforePause), now.Add(-time.Minute))

	_, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"},
			{QuestionID: exam.QuestionIDs[2], SelectedAnswer: "B"}, // midpoint, locked
		},
	})

	var fraud *FraudError
	require.ErrorAs(t, err, &fraud)
	assert.Equal(t, exam.QuestionIDs[2], fraud.QuestionID)
	assert.Equal(t, 2, fraud.QuestionIndex)
	f.participations.AssertNotCalled(t, "Complete")
}

func TestSubmitAnswers_FirstHalfBeforePauseSucceeds(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f, exam, user, p := submitFixture(t, now, phasePtr(model.PhaseBeforePause), now.Add(-time.Minute))

	f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationCompleted, 50, now, mock.Anything).Return(nil)

	result, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"},
			{QuestionID: exam.QuestionIDs[1], SelectedAnswer: "A"},
		},
		CorrectAnswers: answerKeyFor(exam, "A"),
	})

	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 4, result.TotalQuestions)
}

func TestSubmitAnswers_RejectedDuringPause(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f, exam, user, _ := submitFixture(t, now, phasePtr(model.PhaseDuringPause), now.Add(-time.Minute))

	_, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"},
		},
	})

	assert.ErrorIs(t, err, ErrInvalidState)
	f.participations.AssertNotCalled(t, "Complete")
}

func TestSubmitAnswers_AlreadyCompletedRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()
	p := inProgress(exam, user.ID, now.Add(-time.Minute), nil)
	p.Status = model.ParticipationCompleted

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)

	_, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitAnswers_NoSessionRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	user := regularUser()

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(nil, pgx.ErrNoRows)

	_, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAnswers_TimingGraceAsymmetry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	budget := time.Duration(4*83) * time.Second

	// 10s over the budget: inside the 30s auto-submit grace, outside the
	// 5s manual grace.
	startedAt := now.Add(-(budget + 10*time.Second))

	t.Run("manual submit over grace fails", func(t *testing.T) {
		f, exam, user, _ := submitFixture(t, now, phasePtr(model.PhaseAfterPause), startedAt)

		_, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
			Answers:      []model.AnswerSubmission{{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"}},
			IsAutoSubmit: false,
		})

		assert.ErrorIs(t, err, ErrTimeExpired)
	})

	t.Run("auto submit within grace succeeds", func(t *testing.T) {
		f, exam, user, p := submitFixture(t, now, phasePtr(model.PhaseAfterPause), startedAt)
		f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationCompleted, 25, now, mock.Anything).Return(nil)

		result, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
			Answers:        []model.AnswerSubmission{{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"}},
			CorrectAnswers: answerKeyFor(exam, "A"),
			IsAutoSubmit:   true,
		})

		require.NoError(t, err)
		assert.Equal(t, 25, result.Score)
	})
}

func TestSubmitAnswers_PausedTimeExcludedFromBudget(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	budget := time.Duration(4*83) * time.Second

	// Wall clock is 10 minutes over budget, but 11 minutes were paused.
	f, exam, user, p := submitFixture(t, now, phasePtr(model.PhaseAfterPause), now.Add(-(budget + 10*time.Minute)))
	p.TotalPauseDurationMs = 11 * 60 * 1000
	f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationCompleted, 100, now, mock.Anything).Return(nil)

	result, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"},
			{QuestionID: exam.QuestionIDs[1], SelectedAnswer: "A"},
			{QuestionID: exam.QuestionIDs[2], SelectedAnswer: "A"},
			{QuestionID: exam.QuestionIDs[3], SelectedAnswer: "A"},
		},
		CorrectAnswers: answerKeyFor(exam, "A"),
	})

	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 4, result.CorrectAnswers)
}

func TestSubmitAnswers_FallsBackToQuestionBankKey(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f, exam, user, p := submitFixture(t, now, phasePtr(model.PhaseAfterPause), now.Add(-time.Minute))

	bank := make(map[uuid.UUID]string, len(exam.QuestionIDs))
	for _, id := range exam.QuestionIDs {
		bank[id] = "C"
	}
	f.questions.On("CorrectAnswers", mock.Anything, exam.QuestionIDs).Return(bank, nil)
	f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationCompleted, 25, now, mock.Anything).Return(nil)

	result, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "C"},
			{QuestionID: exam.QuestionIDs[1], SelectedAnswer: "D"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 25, result.Score)
}

func TestSubmitAnswers_DuplicateAnswersCollapsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	user := regularUser()

	exam := &model.Exam{
		ID:                    uuid.New(),
		StartDate:             now.Add(-time.Hour),
		EndDate:               now.Add(time.Hour),
		QuestionIDs:           []uuid.UUID{uuid.New(), uuid.New()},
		CompletionTimeSeconds: 2 * 83,
		Active:                true,
	}
	p := inProgress(exam, user.ID, now.Add(-time.Minute), nil)

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)
	f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationCompleted, 100, now,
		mock.MatchedBy(func(answers []model.ExamAnswer) bool { return len(answers) == 2 })).Return(nil)

	// Repeated entries for the same question count once; the last one wins.
	result, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "B"},
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"},
			{QuestionID: exam.QuestionIDs[1], SelectedAnswer: "A"},
			{QuestionID: exam.QuestionIDs[1], SelectedAnswer: "A"},
		},
		CorrectAnswers: answerKeyFor(exam, "A"),
	})

	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 2, result.TotalQuestions)
	f.participations.AssertExpectations(t)
}

func TestSubmitAnswers_ForeignQuestionRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f, exam, user, _ := submitFixture(t, now, phasePtr(model.PhaseAfterPause), now.Add(-time.Minute))

	_, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{
			{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"},
			{QuestionID: uuid.New(), SelectedAnswer: "A"},
		},
		CorrectAnswers: answerKeyFor(exam, "A"),
	})

	assert.ErrorIs(t, err, ErrNotFound)
	f.participations.AssertNotCalled(t, "Complete")
}

func TestSubmitAnswers_AdminExemptFromPhaseLock(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	admin := &model.User{ID: uuid.New(), Role: model.RoleAdmin}
	p := inProgress(exam, admin.ID, now.Add(-time.Minute), phasePtr(model.PhaseBeforePause))

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, admin, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, admin.ID).Return(p, nil)
	f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationCompleted, 25, now, mock.Anything).Return(nil)

	// Index 2 sits past the midpoint, locked for regular users in this phase.
	result, err := f.svc.SubmitAnswers(context.Background(), admin, exam.ID, &model.SubmitAnswersRequest{
		Answers:        []model.AnswerSubmission{{QuestionID: exam.QuestionIDs[2], SelectedAnswer: "A"}},
		CorrectAnswers: answerKeyFor(exam, "A"),
	})

	require.NoError(t, err)
	assert.Equal(t, 25, result.Score)
	f.participations.AssertExpectations(t)
}

func TestValidateQuestionAccess_AdminAlwaysAllowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	admin := &model.User{ID: uuid.New(), Role: model.RoleAdmin}

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)

	access, err := f.svc.ValidateQuestionAccess(context.Background(), admin, exam.ID, 2)

	require.NoError(t, err)
	assert.True(t, access.Allowed)
	f.participations.AssertNotCalled(t, "GetByExamAndUser")
}

func TestSaveAnswer_AdminExemptFromPhaseLock(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	admin := &model.User{ID: uuid.New(), Role: model.RoleAdmin}

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("UpsertAnswer", mock.Anything, exam.ID, admin.ID, exam.QuestionIDs[2], "A").Return(nil)

	err := f.svc.SaveAnswer(context.Background(), admin, exam.ID, exam.QuestionIDs[2], "A")

	require.NoError(t, err)
	f.participations.AssertNotCalled(t, "GetByExamAndUser")
}

func TestFraudErrorIsInvalidState(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f, exam, user, _ := submitFixture(t, now, phasePtr(model.PhaseBeforePause), now.Add(-time.Minute))

	_, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers: []model.AnswerSubmission{{QuestionID: exam.QuestionIDs[3], SelectedAnswer: "A"}},
	})

	// Callers that only branch on sentinels see an invalid-state failure;
	// callers that inspect the violation still get the typed error.
	assert.ErrorIs(t, err, ErrInvalidState)
	var fraud *FraudError
	require.ErrorAs(t, err, &fraud)
	assert.Equal(t, 3, fraud.QuestionIndex)
}

func TestSweepExpired_PartialCreditAndCounts(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)

	exam := pausedExam(now)
	exam.EndDate = now.Add(-time.Hour)
	userID := uuid.New()
	p := inProgress(exam, userID, now.Add(-3*time.Hour), nil)

	bank := make(map[uuid.UUID]string, len(exam.QuestionIDs))
	for _, id := range exam.QuestionIDs {
		bank[id] = "A"
	}

	f.participations.On("CountInProgress", mock.Anything).Return(3, nil)
	f.participations.On("ListExpiredInProgress", mock.Anything, now).Return([]model.ExamParticipation{*p}, nil)
	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	// 2 of 4 answered, 1 correct: partial credit 25.
	f.participations.On("ListAnswers", mock.Anything, p.ID).Return([]model.ExamAnswer{
		{ParticipationID: p.ID, QuestionID: exam.QuestionIDs[0], SelectedAnswer: "A"},
		{ParticipationID: p.ID, QuestionID: exam.QuestionIDs[1], SelectedAnswer: "B"},
	}, nil)
	f.questions.On("CorrectAnswers", mock.Anything, exam.QuestionIDs).Return(bank, nil)
	f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationAutoSubmitted, 25, now, mock.Anything).Return(nil)

	result, err := f.svc.SweepExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.ProcessedCount)
	assert.Equal(t, 1, result.ClosedCount)
}

func TestSweepExpired_OneFailureDoesNotAbortPass(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)

	exam := pausedExam(now)
	exam.EndDate = now.Add(-time.Hour)
	broken := inProgress(exam, uuid.New(), now.Add(-3*time.Hour), nil)
	healthy := inProgress(exam, uuid.New(), now.Add(-3*time.Hour), nil)

	f.participations.On("CountInProgress", mock.Anything).Return(2, nil)
	f.participations.On("ListExpiredInProgress", mock.Anything, now).
		Return([]model.ExamParticipation{*broken, *healthy}, nil)
	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("ListAnswers", mock.Anything, broken.ID).Return(nil, assert.AnError)
	f.participations.On("ListAnswers", mock.Anything, healthy.ID).Return([]model.ExamAnswer{}, nil)
	f.participations.On("Complete", mock.Anything, healthy.ID, model.ParticipationAutoSubmitted, 0, now, mock.Anything).Return(nil)

	result, err := f.svc.SweepExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.ClosedCount)
}

func TestLeaderboard_NonParticipantDenied(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	exam.EndDate = now.Add(-time.Hour)
	user := regularUser()

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(nil, pgx.ErrNoRows)

	_, err := f.svc.Leaderboard(context.Background(), user, exam.ID)

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLeaderboard_AdminSeesRunningExam(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	exam := pausedExam(now)
	admin := &model.User{ID: uuid.New(), Role: model.RoleAdmin}

	entries := []model.LeaderboardEntry{{UserID: uuid.New(), Name: "A", Score: 90}}
	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.participations.On("Leaderboard", mock.Anything, exam.ID).Return(entries, nil)

	got, err := f.svc.Leaderboard(context.Background(), admin, exam.ID)

	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestSingleQuestionExamFullFlow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newSessionFixture(now)
	user := regularUser()

	exam := &model.Exam{
		ID:                    uuid.New(),
		StartDate:             now.Add(-time.Hour),
		EndDate:               now.Add(time.Hour),
		QuestionIDs:           []uuid.UUID{uuid.New()},
		CompletionTimeSeconds: 83,
		Active:                true,
	}
	p := inProgress(exam, user.ID, now.Add(-80*time.Second), nil)

	f.exams.On("GetByID", mock.Anything, exam.ID).Return(exam, nil)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryExam).Return(true, nil)
	f.participations.On("GetByExamAndUser", mock.Anything, exam.ID, user.ID).Return(p, nil)
	f.participations.On("Complete", mock.Anything, p.ID, model.ParticipationCompleted, 100, now, mock.Anything).Return(nil)

	result, err := f.svc.SubmitAnswers(context.Background(), user, exam.ID, &model.SubmitAnswersRequest{
		Answers:        []model.AnswerSubmission{{QuestionID: exam.QuestionIDs[0], SelectedAnswer: "B"}},
		CorrectAnswers: map[string]string{exam.QuestionIDs[0].String(): "B"},
	})

	require.NoError(t, err)
	assert.Equal(t, &model.SubmitResult{Score: 100, CorrectAnswers: 1, TotalQuestions: 1}, result)
}
