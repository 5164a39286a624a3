// Package transcript defines the ordered message log shared by the capture
// session, the conversation store and the notification composer.
package transcript

import "strings"

// Speaker identifies who produced a message.
type Speaker string

const (
	SpeakerVisitor Speaker = "visitor"
	SpeakerAgent   Speaker = "agent"
)

// Message is one transcript entry. Capture marks entries exchanged while
// identity was being collected; they never count as conversation turns.
type Message struct {
	Speaker Speaker `json:"speaker" validate:"oneof=visitor agent"`
	Text    string  `json:"text" validate:"max=8000"`
	Capture bool    `json:"capture,omitempty"`
}

// Transcript is the complete ordered conversation for a lead.
type Transcript []Message

// Valid reports whether every entry has a known speaker.
func (t Transcript) Valid() bool {
	for _, m := range t {
		if m.Speaker != SpeakerVisitor && m.Speaker != SpeakerAgent {
			return false
		}
	}
	return true
}

// VisitorTurns counts visitor messages outside any capture interval.
func (t Transcript) VisitorTurns() int {
	n := 0
	for _, m := range t {
		if m.Speaker == SpeakerVisitor && !m.Capture {
			n++
		}
	}
	return n
}

// Last returns the final entry, if any.
func (t Transcript) Last() (Message, bool) {
	if len(t) == 0 {
		return Message{}, false
	}
	return t[len(t)-1], true
}

// Clone returns a copy that can be handed to another goroutine.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return Transcript{}
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Render formats the transcript as plain dialogue for model prompts.
func (t Transcript) Render() string {
	var b strings.Builder
	for _, m := range t {
		if m.Capture {
			continue
		}
		switch m.Speaker {
		case SpeakerVisitor:
			b.WriteString("Visitor: ")
		default:
			b.WriteString("Agent: ")
		}
		b.WriteString(strings.TrimSpace(m.Text))
		b.WriteString("\n")
	}
	return b.String()
}
