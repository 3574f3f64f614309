package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors shared by the core services. Handlers branch on these with
// errors.Is/errors.As and map them to API error codes.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("not allowed to perform this action")
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidState    = errors.New("invalid state for this operation")
	ErrAccessExpired   = errors.New("access expired")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAlreadyExists   = errors.New("resource already exists")

	// ErrAlreadyTaken is returned when a terminal participation exists.
	ErrAlreadyTaken = errors.New("exam already taken")
	// ErrExamNotAvailable is returned outside the exam's window or when
	// the exam is inactive.
	ErrExamNotAvailable = errors.New("exam not available")
	// ErrTimeExpired is returned when a submission arrives past the
	// session's time budget plus grace.
	ErrTimeExpired = errors.New("time expired")
	// ErrSessionExpired is returned when resuming a training session past
	// its TTL.
	ErrSessionExpired = errors.New("training session expired")
	// ErrNotEnoughQuestions is returned when the bank cannot satisfy the
	// requested sample size.
	ErrNotEnoughQuestions = errors.New("not enough questions")
	// ErrAlreadyProcessed is the internal signal that a webhook event was
	// seen before. Callers treat it as success, not a failure.
	ErrAlreadyProcessed = errors.New("event already processed")
)

// FraudError marks a submission that answered a question locked by the
// pause phase. It is a security violation, not routine user error: callers
// must log and persist it distinctly, never swallow it.
type FraudError struct {
	QuestionID    uuid.UUID
	QuestionIndex int
	Phase         string
}

func (e *FraudError) Error() string {
	return fmt.Sprintf("answer submitted for locked question %s (index %d) during phase %s",
		e.QuestionID, e.QuestionIndex, e.Phase)
}

// Unwrap lets callers that only branch on sentinels treat a fraud rejection
// as an invalid-state failure.
func (e *FraudError) Unwrap() error { return ErrInvalidState }
