// ABOUTME: Persona definition: greeting, instructions and localized failure messages
// ABOUTME: Loaded from YAML; the Twi persona ships embedded as the default
package persona

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harper/obala/internal/models"
)

//go:embed twi.yaml
var defaultPersona []byte

// Persona holds every static string the assistant speaks or sends to the LLM
type Persona struct {
	Name                   string                      `yaml:"name"`
	TargetLanguage         string                      `yaml:"target_language"`
	Greeting               string                      `yaml:"greeting"`
	SystemInstruction      string                      `yaml:"system_instruction"`
	SummaryInstruction     string                      `yaml:"summary_instruction"`
	TranslationInstruction string                      `yaml:"translation_instruction"`
	Messages               map[models.ErrorKind]string `yaml:"messages"`
}

// Default returns the embedded OBALA Twi persona
func Default() *Persona {
	p, err := Parse(defaultPersona)
	if err != nil {
		// The embedded file is part of the build; failing here is a packaging bug.
		panic(fmt.Sprintf("embedded persona is invalid: %v", err))
	}
	return p
}

// Load reads a persona from path, or returns the default when path is empty
func Load(path string) (*Persona, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("persona %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates persona YAML
func Parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona: %w", err)
	}
	return &p, p.Validate()
}

// Validate checks that every required string is present
func (p *Persona) Validate() error {
	required := map[string]string{
		"greeting":                p.Greeting,
		"system_instruction":      p.SystemInstruction,
		"summary_instruction":     p.SummaryInstruction,
		"translation_instruction": p.TranslationInstruction,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", field)
		}
	}

	var missing []string
	for _, kind := range models.AllKinds {
		if strings.TrimSpace(p.Messages[kind]) == "" {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing messages: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Message returns the localized text for a failure kind
func (p *Persona) Message(kind models.ErrorKind) string {
	return p.Messages[kind]
}

// Warning builds a user-facing warning for a failure kind
func (p *Persona) Warning(kind models.ErrorKind) models.Warning {
	return models.Warning{Kind: kind, Message: p.Message(kind)}
}

// Sentinel is the fixed reply content substituted when generation fails
func (p *Persona) Sentinel() string {
	return p.Message(models.KindGenerationFailed)
}
