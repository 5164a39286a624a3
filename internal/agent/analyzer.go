package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"
)

// ErrNoAnalysis is returned when the model neither called the submit tool
// nor answered with a parsable JSON object.
var ErrNoAnalysis = errors.New("conversation analyzer produced no analysis")

// Analysis is the owner-facing digest of a conversation.
type Analysis struct {
	Summary  string   `json:"summary"`
	Pains    []string `json:"pains"`
	Benefits []string `json:"benefits"`
	Script   string   `json:"script"`
}

func (a Analysis) empty() bool {
	return strings.TrimSpace(a.Summary) == "" && len(a.Pains) == 0 && len(a.Benefits) == 0 && strings.TrimSpace(a.Script) == ""
}

type SubmitAnalysisInput struct {
	Summary  string   `json:"summary"`
	Pains    []string `json:"pains,omitempty"`
	Benefits []string `json:"benefits,omitempty"`
	Script   string   `json:"script,omitempty"`
}

type SubmitAnalysisOutput struct {
	Status string `json:"status"`
}

// ConversationAnalyzer runs a single-tool agent over a rendered transcript.
type ConversationAnalyzer struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string

	mu      sync.Mutex
	results map[string]Analysis
}

func NewConversationAnalyzer(llm model.LLM) (*ConversationAnalyzer, error) {
	if llm == nil {
		return nil, fmt.Errorf("conversation analyzer requires a model")
	}
	p, err := loadPrompts()
	if err != nil {
		return nil, err
	}

	a := &ConversationAnalyzer{
		appName: "funnel_analyzer",
		results: make(map[string]Analysis),
	}

	submitTool, err := functiontool.New(functiontool.Config{
		Name:        "SubmitConversationAnalysis",
		Description: "Submit the analysis of the conversation: summary, pains, benefits and a follow-up call script.",
	}, a.handleSubmit)
	if err != nil {
		return nil, fmt.Errorf("failed to create SubmitConversationAnalysis tool: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        p.Analyzer.Name,
		Model:       llm,
		Description: p.Analyzer.Description,
		Instruction: p.Analyzer.Instruction,
		Tools:       []tool.Tool{submitTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer agent: %w", err)
	}

	a.sessionService = session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        a.appName,
		Agent:          adkAgent,
		SessionService: a.sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer runner: %w", err)
	}
	a.runner = r
	return a, nil
}

func (a *ConversationAnalyzer) handleSubmit(ctx tool.Context, input SubmitAnalysisInput) (SubmitAnalysisOutput, error) {
	result := Analysis{
		Summary:  strings.TrimSpace(input.Summary),
		Pains:    cleanList(input.Pains),
		Benefits: cleanList(input.Benefits),
		Script:   strings.TrimSpace(input.Script),
	}
	a.mu.Lock()
	a.results[ctx.SessionID()] = result
	a.mu.Unlock()
	return SubmitAnalysisOutput{Status: "ok"}, nil
}

// Analyze returns the analysis of tr. The lead id only scopes the agent
// session.
func (a *ConversationAnalyzer) Analyze(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript) (Analysis, error) {
	sessionID := uuid.New().String()
	userID := "analyzer-" + leadID.String()

	_, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to create analyzer session: %w", err)
	}
	defer func() {
		_ = a.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   a.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
		a.mu.Lock()
		delete(a.results, sessionID)
		a.mu.Unlock()
	}()

	prompt := "Transcript:\n\n" + tr.Render()
	userMessage := &genai.Content{Role: "user", Parts: []*genai.Part{{Text: prompt}}}
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var text strings.Builder
	for event, err := range a.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return Analysis{}, fmt.Errorf("analyzer run: %w", err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}

	a.mu.Lock()
	result, ok := a.results[sessionID]
	a.mu.Unlock()
	if ok && !result.empty() {
		return result, nil
	}

	if parsed, ok := parseAnalysisJSON(text.String()); ok {
		return parsed, nil
	}
	return Analysis{}, ErrNoAnalysis
}

// parseAnalysisJSON extracts the first JSON object from free text, tolerating
// markdown fences around it.
func parseAnalysisJSON(text string) (Analysis, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Analysis{}, false
	}
	var out Analysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return Analysis{}, false
	}
	out.Summary = strings.TrimSpace(out.Summary)
	out.Script = strings.TrimSpace(out.Script)
	out.Pains = cleanList(out.Pains)
	out.Benefits = cleanList(out.Benefits)
	if out.empty() {
		return Analysis{}, false
	}
	return out, true
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
