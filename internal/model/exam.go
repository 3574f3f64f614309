package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is the static definition of a mock exam: question set, time window
// and pause policy. CompletionTimeSeconds is derived from the question count
// and the configured per-question budget at write time.
type Exam struct {
	ID                    uuid.UUID   `json:"id"`
	Title                 string      `json:"title"`
	Description           string      `json:"description"`
	StartDate             time.Time   `json:"start_date"`
	EndDate               time.Time   `json:"end_date"`
	QuestionIDs           []uuid.UUID `json:"question_ids"`
	CompletionTimeSeconds int         `json:"completion_time_seconds"`
	EnablePause           bool        `json:"enable_pause"`
	PauseDurationMinutes  int         `json:"pause_duration_minutes"`
	Active                bool        `json:"active"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// Midpoint returns the question-index boundary used to lock the second half
// of the exam before the pause.
func (e *Exam) Midpoint() int {
	return len(e.QuestionIDs) / 2
}

// WindowContains reports whether t falls inside the exam's scheduling window.
func (e *Exam) WindowContains(t time.Time) bool {
	return !t.Before(e.StartDate) && !t.After(e.EndDate)
}

// CreateExamRequest is the admin payload for creating an exam.
type CreateExamRequest struct {
	Title                string      `json:"title" binding:"required,min=3,max=255"`
	Description          string      `json:"description" binding:"omitempty,max=4096"`
	StartDate            time.Time   `json:"start_date" binding:"required"`
	EndDate              time.Time   `json:"end_date" binding:"required,gtfield=StartDate"`
	QuestionIDs          []uuid.UUID `json:"question_ids" binding:"required,min=1"`
	EnablePause          bool        `json:"enable_pause"`
	PauseDurationMinutes int         `json:"pause_duration_minutes" binding:"omitempty,min=1"`
}

// UpdateExamRequest is the admin payload for updating an exam.
type UpdateExamRequest struct {
	Title                *string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description          *string     `json:"description" binding:"omitempty,max=4096"`
	StartDate            *time.Time  `json:"start_date" binding:"omitempty"`
	EndDate              *time.Time  `json:"end_date" binding:"omitempty"`
	QuestionIDs          []uuid.UUID `json:"question_ids" binding:"omitempty,min=1"`
	EnablePause          *bool       `json:"enable_pause" binding:"omitempty"`
	PauseDurationMinutes *int        `json:"pause_duration_minutes" binding:"omitempty,min=1"`
	Active               *bool       `json:"active" binding:"omitempty"`
}
