package websocket

// Client → server actions.
const (
	ActionAutosave = "autosave"
	ActionPing     = "ping"
)

// Server → client events.
const (
	EventError = "error"
	EventTick  = "tick"
	EventSaved = "saved"
)

// RequestPayload is a client message on the exam clock stream.
type RequestPayload struct {
	Action         string `json:"action"`
	QuestionID     string `json:"question_id,omitempty"`
	SelectedAnswer string `json:"selected_answer,omitempty"`
}

// ClockTick is the server-authoritative countdown pushed to the client.
// Clients render this instead of trusting their local clock.
type ClockTick struct {
	Event            string  `json:"event"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	PausePhase       string  `json:"pause_phase,omitempty"`
	ServerTimeMs     int64   `json:"server_time_ms"`
}

// SavedResponse acknowledges an autosaved answer.
type SavedResponse struct {
	Event      string `json:"event"`
	QuestionID string `json:"question_id"`
}

// ErrorResponse reports a stream-level error to the client.
type ErrorResponse struct {
	Event string `json:"event"`
	Error string `json:"error"`
}
