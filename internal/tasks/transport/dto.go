package transport

import (
	"github.com/google/uuid"
)

// PublicTaskResponse is what a visitor's browser may see of a task.
// The script and notification address stay server-side.
type PublicTaskResponse struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	OpeningQuestion string    `json:"openingQuestion"`
	ShowOthers      bool      `json:"showOthers"`
	SourcePostURL   *string   `json:"sourcePostUrl,omitempty"`
}
