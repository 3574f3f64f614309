package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question is a read-only row from the question bank. The session engines
// only consume id, correct answer and domain; content is trusted as-is.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	Text          string          `json:"text"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer string          `json:"-"`
	Domain        string          `json:"domain"`
}
