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

type trainingFixture struct {
	sessions  *MockTrainingStore
	questions *MockQuestionStore
	access    *MockAccessChecker
	svc       *TrainingService
}

func newTrainingFixture(now time.Time) *trainingFixture {
	f := &trainingFixture{
		sessions:  new(MockTrainingStore),
		questions: new(MockQuestionStore),
		access:    new(MockAccessChecker),
	}
	cfg := &config.Config{TrainingSessionTTL: 24 * time.Hour}
	f.svc = NewTrainingService(f.sessions, f.questions, f.access, cfg, zerolog.Nop())
	f.svc.now = fixedClock(now)
	return f
}

func trainingSession(userID uuid.UUID, startedAt time.Time, n int) *model.TrainingSession {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return &model.TrainingSession{
		ID:            uuid.New(),
		UserID:        userID,
		QuestionCount: n,
		QuestionIDs:   ids,
		Status:        model.TrainingInProgress,
		StartedAt:     startedAt,
		ExpiresAt:     startedAt.Add(24 * time.Hour),
	}
}

func TestTrainingCreate_DeniedWithoutEntitlement(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryTraining).Return(false, nil)

	_, err := f.svc.Create(context.Background(), user, &model.CreateTrainingRequest{QuestionCount: 10})

	assert.ErrorIs(t, err, ErrAccessExpired)
}

func TestTrainingCreate_NotEnoughQuestions(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()
	domain := "networking"

	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryTraining).Return(true, nil)
	f.sessions.On("GetInProgressByUser", mock.Anything, user.ID).Return(nil, pgx.ErrNoRows)
	f.questions.On("CountByDomain", mock.Anything, &domain).Return(7, nil)

	_, err := f.svc.Create(context.Background(), user, &model.CreateTrainingRequest{QuestionCount: 10, Domain: &domain})

	assert.ErrorIs(t, err, ErrNotEnoughQuestions)
	f.sessions.AssertNotCalled(t, "Create")
}

func TestTrainingCreate_SnapshotsSampleAndSetsTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryTraining).Return(true, nil)
	f.sessions.On("GetInProgressByUser", mock.Anything, user.ID).Return(nil, pgx.ErrNoRows)
	f.questions.On("CountByDomain", mock.Anything, (*string)(nil)).Return(100, nil)
	f.questions.On("SampleIDs", mock.Anything, 5, (*string)(nil)).Return(ids, nil)
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *model.TrainingSession) bool {
		return s.Status == model.TrainingInProgress &&
			len(s.QuestionIDs) == 5 &&
			s.ExpiresAt.Equal(now.Add(24*time.Hour))
	})).Return(nil)

	session, err := f.svc.Create(context.Background(), user, &model.CreateTrainingRequest{QuestionCount: 5})

	require.NoError(t, err)
	assert.Equal(t, ids, session.QuestionIDs)
}

func TestTrainingCreate_ActiveSessionBlocksNewOne(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	active := trainingSession(user.ID, now.Add(-time.Hour), 5)
	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryTraining).Return(true, nil)
	f.sessions.On("GetInProgressByUser", mock.Anything, user.ID).Return(active, nil)

	_, err := f.svc.Create(context.Background(), user, &model.CreateTrainingRequest{QuestionCount: 5})

	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestTrainingCreate_ExpiredLeftoverIsAbandoned(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	stale := trainingSession(user.ID, now.Add(-48*time.Hour), 5)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	f.access.On("HasAccess", mock.Anything, user, model.AccessCategoryTraining).Return(true, nil)
	f.sessions.On("GetInProgressByUser", mock.Anything, user.ID).Return(stale, nil)
	f.sessions.On("Finish", mock.Anything, stale.ID, model.TrainingAbandoned, (*int)(nil), now).Return(nil)
	f.questions.On("CountByDomain", mock.Anything, (*string)(nil)).Return(100, nil)
	f.questions.On("SampleIDs", mock.Anything, 5, (*string)(nil)).Return(ids, nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Create(context.Background(), user, &model.CreateTrainingRequest{QuestionCount: 5})

	require.NoError(t, err)
	f.sessions.AssertExpectations(t)
}

func TestTrainingGet_ExpiredSurfacedNotScored(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	stale := trainingSession(user.ID, now.Add(-30*time.Hour), 5)
	f.sessions.On("GetByID", mock.Anything, stale.ID).Return(stale, nil)

	_, err := f.svc.Get(context.Background(), user, stale.ID)

	assert.ErrorIs(t, err, ErrSessionExpired)
	f.sessions.AssertNotCalled(t, "Finish")
}

func TestTrainingGet_OtherUsersSessionDenied(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	other := trainingSession(uuid.New(), now.Add(-time.Hour), 5)
	f.sessions.On("GetByID", mock.Anything, other.ID).Return(other, nil)

	_, err := f.svc.Get(context.Background(), user, other.ID)

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTrainingSaveAnswers_RejectedOnceFinished(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	done := trainingSession(user.ID, now.Add(-time.Hour), 5)
	done.Status = model.TrainingCompleted
	f.sessions.On("GetByID", mock.Anything, done.ID).Return(done, nil)

	err := f.svc.SaveAnswers(context.Background(), user, done.ID, &model.SaveTrainingAnswersRequest{
		Answers: []model.TrainingAnswerSubmission{
			{QuestionID: done.QuestionIDs[0], SelectedAnswer: "A"},
		},
	})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTrainingSaveAnswers_UnknownQuestionRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	session := trainingSession(user.ID, now.Add(-time.Hour), 5)
	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

	err := f.svc.SaveAnswers(context.Background(), user, session.ID, &model.SaveTrainingAnswersRequest{
		Answers: []model.TrainingAnswerSubmission{
			{QuestionID: uuid.New(), SelectedAnswer: "A"},
		},
	})

	assert.ErrorIs(t, err, ErrNotFound)
	f.sessions.AssertNotCalled(t, "UpsertAnswers")
}

func TestTrainingComplete_ScoresAgainstBank(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	session := trainingSession(user.ID, now.Add(-time.Hour), 5)
	key := make(map[uuid.UUID]string, 5)
	for _, id := range session.QuestionIDs {
		key[id] = "A"
	}
	score := 80

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.questions.On("CorrectAnswers", mock.Anything, session.QuestionIDs).Return(key, nil)
	f.sessions.On("ScoreAnswers", mock.Anything, session.ID, key).Return(4, 5, nil)
	f.sessions.On("Finish", mock.Anything, session.ID, model.TrainingCompleted, &score, now).Return(nil)

	result, err := f.svc.Complete(context.Background(), user, session.ID)

	require.NoError(t, err)
	assert.Equal(t, 80, result.Score)
	assert.Equal(t, 4, result.CorrectAnswers)
	assert.Equal(t, 5, result.TotalQuestions)
}

func TestTrainingAbandon_NoScoring(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newTrainingFixture(now)
	user := regularUser()

	session := trainingSession(user.ID, now.Add(-time.Hour), 5)
	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.sessions.On("Finish", mock.Anything, session.ID, model.TrainingAbandoned, (*int)(nil), now).Return(nil)

	err := f.svc.Abandon(context.Background(), user, session.ID)

	require.NoError(t, err)
	f.questions.AssertNotCalled(t, "CorrectAnswers")
}
