package capture

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type prompts struct {
	AskName              string `yaml:"ask_name"`
	RetryName            string `yaml:"retry_name"`
	AskEmail             string `yaml:"ask_email"`
	RetryEmail           string `yaml:"retry_email"`
	AskPhone             string `yaml:"ask_phone"`
	RetryPhone           string `yaml:"retry_phone"`
	Thanks               string `yaml:"thanks"`
	ResponderUnavailable string `yaml:"responder_unavailable"`
}

var defaultPrompts = mustLoadPrompts()

func mustLoadPrompts() prompts {
	var p prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		panic(fmt.Sprintf("capture: parse prompts: %v", err))
	}
	for _, s := range []string{p.AskName, p.RetryName, p.AskEmail, p.RetryEmail, p.AskPhone, p.RetryPhone, p.Thanks, p.ResponderUnavailable} {
		if strings.TrimSpace(s) == "" {
			panic("capture: prompts.yaml is missing an entry")
		}
	}
	return p
}

func (p prompts) askEmail(name string) string {
	return strings.ReplaceAll(p.AskEmail, "{{name}}", name)
}
