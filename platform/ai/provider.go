// Package ai selects the language model backing the funnel agents.
package ai

import (
	"context"
	"fmt"

	"funnel_backend/platform/ai/moonshot"
	"funnel_backend/platform/config"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = fmt.Errorf("ai provider not configured")

// NewModel returns the model.LLM for the configured provider.
func NewModel(ctx context.Context, cfg config.AIConfig) (model.LLM, error) {
	switch cfg.GetAIProvider() {
	case "", "moonshot":
		if cfg.GetMoonshotAPIKey() == "" {
			return nil, fmt.Errorf("moonshot: %w", ErrNotConfigured)
		}
		return moonshot.NewModel(moonshot.Config{
			APIKey:          cfg.GetMoonshotAPIKey(),
			Model:           "kimi-k2.5",
			DisableThinking: true,
		}), nil
	case "gemini":
		if cfg.GetGeminiAPIKey() == "" {
			return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
		}
		return gemini.NewModel(ctx, cfg.GetGeminiModel(), &genai.ClientConfig{
			APIKey:  cfg.GetGeminiAPIKey(),
			Backend: genai.BackendGeminiAPI,
		})
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.GetAIProvider())
	}
}
