package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/model"
)

func newExamService(exams *MockExamStore) *ExamService {
	cfg := &config.Config{SecondsPerQuestion: 83, MaxPauseMinutes: 60}
	return NewExamService(exams, cfg, zerolog.Nop())
}

func TestExamCreate_DerivesCompletionTime(t *testing.T) {
	exams := new(MockExamStore)
	svc := newExamService(exams)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	exams.On("Create", mock.Anything, mock.MatchedBy(func(e *model.Exam) bool {
		return e.CompletionTimeSeconds == 3*83 && e.Active
	})).Return(nil)

	exam, err := svc.Create(context.Background(), &model.CreateExamRequest{
		Title:       "CKA mock",
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		QuestionIDs: ids,
	})

	require.NoError(t, err)
	assert.Equal(t, 249, exam.CompletionTimeSeconds)
}

func TestExamCreate_ClampsPauseDuration(t *testing.T) {
	exams := new(MockExamStore)
	svc := newExamService(exams)

	exams.On("Create", mock.Anything, mock.Anything).Return(nil)

	exam, err := svc.Create(context.Background(), &model.CreateExamRequest{
		Title:                "Long pause",
		StartDate:            time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		QuestionIDs:          []uuid.UUID{uuid.New()},
		EnablePause:          true,
		PauseDurationMinutes: 300,
	})

	require.NoError(t, err)
	assert.Equal(t, 60, exam.PauseDurationMinutes)
}

func TestExamUpdate_QuestionChangeRecomputesBudget(t *testing.T) {
	exams := new(MockExamStore)
	svc := newExamService(exams)

	existing := &model.Exam{
		ID:                    uuid.New(),
		Title:                 "CKA mock",
		StartDate:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		QuestionIDs:           []uuid.UUID{uuid.New(), uuid.New()},
		CompletionTimeSeconds: 2 * 83,
	}
	newIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	exams.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	exams.On("Update", mock.Anything, mock.Anything).Return(nil)

	exam, err := svc.Update(context.Background(), existing.ID, &model.UpdateExamRequest{QuestionIDs: newIDs})

	require.NoError(t, err)
	assert.Equal(t, 4*83, exam.CompletionTimeSeconds)
}

func TestExamUpdate_InvertedWindowRejected(t *testing.T) {
	exams := new(MockExamStore)
	svc := newExamService(exams)

	existing := &model.Exam{
		ID:        uuid.New(),
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	}
	badEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	exams.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	_, err := svc.Update(context.Background(), existing.ID, &model.UpdateExamRequest{EndDate: &badEnd})

	assert.ErrorIs(t, err, ErrInvalidInput)
	exams.AssertNotCalled(t, "Update")
}
