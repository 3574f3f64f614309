package model

import (
	"time"

	"github.com/google/uuid"
)

// ParticipationStatus enumerates exam session states. auto_submitted is the
// terminal state applied by the background sweep when the exam window closed
// while the session was still running.
type ParticipationStatus string

const (
	ParticipationInProgress    ParticipationStatus = "in_progress"
	ParticipationCompleted     ParticipationStatus = "completed"
	ParticipationAutoSubmitted ParticipationStatus = "auto_submitted"
)

// PausePhase is the three-state sub-lifecycle gating which questions are
// answerable. It is linear: before_pause → during_pause → after_pause.
type PausePhase string

const (
	PhaseBeforePause PausePhase = "before_pause"
	PhaseDuringPause PausePhase = "during_pause"
	PhaseAfterPause  PausePhase = "after_pause"
)

// ExamParticipation is one user's attempt at one exam. Pause fields are only
// populated when the exam enables the pause.
type ExamParticipation struct {
	ID          uuid.UUID           `json:"id"`
	ExamID      uuid.UUID           `json:"exam_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Status      ParticipationStatus `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	// Score is an integer percentage 0–100, present once terminal.
	Score                *int        `json:"score,omitempty"`
	PausePhase           *PausePhase `json:"pause_phase,omitempty"`
	PauseStartedAt       *time.Time  `json:"pause_started_at,omitempty"`
	PauseEndedAt         *time.Time  `json:"pause_ended_at,omitempty"`
	IsPauseCutShort      bool        `json:"is_pause_cut_short"`
	TotalPauseDurationMs int64       `json:"total_pause_duration_ms"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// ExamAnswer is one recorded answer within a participation.
type ExamAnswer struct {
	ID               uuid.UUID `json:"id"`
	ParticipationID  uuid.UUID `json:"participation_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedAnswer   string    `json:"selected_answer"`
	IsCorrect        *bool     `json:"is_correct,omitempty"`
	FlaggedForReview bool      `json:"flagged_for_review"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AnswerSubmission is one answer inside a submit payload.
type AnswerSubmission struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer   string    `json:"selected_answer" binding:"required,max=16"`
	FlaggedForReview bool      `json:"flagged_for_review"`
}

// SubmitAnswersRequest finishes an exam session. CorrectAnswers is an
// optional answer-key map (question id → correct answer) the client may
// supply so the server can skip re-reading every question row; missing or
// empty means the server falls back to the question bank.
type SubmitAnswersRequest struct {
	Answers        []AnswerSubmission `json:"answers" binding:"required,dive"`
	CorrectAnswers map[string]string  `json:"correct_answers" binding:"omitempty"`
	IsAutoSubmit   bool               `json:"is_auto_submit"`
}

// StartPauseRequest begins the session's one pause. ManualTrigger records
// whether the participant clicked pause or the client clock forced it.
type StartPauseRequest struct {
	ManualTrigger bool `json:"manual_trigger"`
}

// SubmitResult is the scoring outcome of a completed submission.
type SubmitResult struct {
	Score          int `json:"score"`
	CorrectAnswers int `json:"correct_answers"`
	TotalQuestions int `json:"total_questions"`
}

// QuestionAccess is the advisory lock/unlock verdict for one question index.
// The same rule is re-enforced server-side at submission time.
type QuestionAccess struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ParticipationTiming is the idempotent start response: enough for a client
// to rebuild its countdown after a reload.
type ParticipationTiming struct {
	ParticipationID       uuid.UUID   `json:"participation_id"`
	StartedAt             time.Time   `json:"started_at"`
	CompletionTimeSeconds int         `json:"completion_time_seconds"`
	PausePhase            *PausePhase `json:"pause_phase,omitempty"`
	TotalPauseDurationMs  int64       `json:"total_pause_duration_ms"`
	RemainingSeconds      float64     `json:"remaining_seconds"`
}

// LeaderboardEntry is one roster row sorted by score desc, earlier
// completion breaking ties.
type LeaderboardEntry struct {
	UserID      uuid.UUID  `json:"user_id"`
	Name        string     `json:"name"`
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SweepResult reports one auto-closure pass. Processed counts every
// inspected in-progress session, Closed only the ones actually expired.
type SweepResult struct {
	ProcessedCount int `json:"processed_count"`
	ClosedCount    int `json:"closed_count"`
}
