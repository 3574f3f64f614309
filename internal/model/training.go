package model

import (
	"time"

	"github.com/google/uuid"
)

// TrainingStatus enumerates training session states.
type TrainingStatus string

const (
	TrainingInProgress TrainingStatus = "in_progress"
	TrainingCompleted  TrainingStatus = "completed"
	TrainingAbandoned  TrainingStatus = "abandoned"
)

// TrainingSession is a single-user, time-boxed practice run. The selected
// question ids are snapshotted at creation so later bank edits don't shift
// the session under the user.
type TrainingSession struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	QuestionCount int            `json:"question_count"`
	Domain        *string        `json:"domain,omitempty"`
	QuestionIDs   []uuid.UUID    `json:"question_ids"`
	Status        TrainingStatus `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	ExpiresAt     time.Time      `json:"expires_at"`
	Score         *int           `json:"score,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Expired reports whether the session is past its resumable window.
func (s *TrainingSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TrainingAnswer mirrors ExamAnswer for practice sessions.
type TrainingAnswer struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      *bool     `json:"is_correct,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateTrainingRequest starts a practice session.
type CreateTrainingRequest struct {
	QuestionCount int     `json:"question_count" binding:"required,min=5,max=20"`
	Domain        *string `json:"domain" binding:"omitempty,min=1,max=64"`
}

// TrainingAnswerSubmission is one answer inside a training batch save.
type TrainingAnswerSubmission struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer string    `json:"selected_answer" binding:"required,max=16"`
}

// SaveTrainingAnswersRequest upserts a batch of answers onto a session.
type SaveTrainingAnswersRequest struct {
	Answers []TrainingAnswerSubmission `json:"answers" binding:"required,min=1,dive"`
}
