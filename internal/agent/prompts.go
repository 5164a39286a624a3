// Package agent hosts the language-model collaborators of the funnel: the
// chat responder that answers visitor turns and the conversation analyzer
// used in owner notifications.
package agent

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type prompts struct {
	Chat struct {
		System      string  `yaml:"system"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"chat"`
	Analyzer struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Instruction string `yaml:"instruction"`
	} `yaml:"analyzer"`
}

func loadPrompts() (prompts, error) {
	var p prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return prompts{}, fmt.Errorf("parse agent prompts: %w", err)
	}
	if strings.TrimSpace(p.Chat.System) == "" || strings.TrimSpace(p.Analyzer.Instruction) == "" {
		return prompts{}, fmt.Errorf("agent prompts incomplete")
	}
	return p, nil
}

func (p prompts) chatSystem(script string) string {
	script = strings.TrimSpace(script)
	if script == "" {
		script = "(no script provided; help the visitor describe what they need)"
	}
	return strings.ReplaceAll(p.Chat.System, "{{script}}", script)
}
