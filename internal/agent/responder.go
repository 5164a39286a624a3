package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel_backend/internal/transcript"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ErrEmptyReply is returned when the model produced no text.
var ErrEmptyReply = errors.New("chat responder returned an empty reply")

// ChatResponder maps a script, the transcript so far and a new visitor
// message to the agent's reply.
type ChatResponder struct {
	llm     model.LLM
	prompts prompts
}

func NewChatResponder(llm model.LLM) (*ChatResponder, error) {
	if llm == nil {
		return nil, fmt.Errorf("chat responder requires a model")
	}
	p, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	return &ChatResponder{llm: llm, prompts: p}, nil
}

// Reply asks the model for the next agent message. history must not yet
// contain message.
func (r *ChatResponder) Reply(ctx context.Context, script string, history transcript.Transcript, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		if m.Capture || strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Speaker == transcript.SpeakerAgent {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	req := &model.LLMRequest{
		Model:    r.llm.Name(),
		Contents: contents,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(r.prompts.chatSystem(script), genai.RoleUser),
			Temperature:       genai.Ptr(r.prompts.Chat.Temperature),
		},
	}

	var b strings.Builder
	for resp, err := range r.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("chat responder: %w", err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
	}

	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
