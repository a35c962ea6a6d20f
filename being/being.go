package being

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingProvider    = errors.New("modelProvider is required")
	ErrMissingName        = errors.New("character name is required")
	ErrMissingBio         = errors.New("character bio is required")
	ErrMissingPersonality = errors.New("character personality is required")
)

// Character is the persona a being presents.
type Character struct {
	Name        string `yaml:"name" json:"name"`
	Bio         string `yaml:"bio" json:"bio"`
	Personality string `yaml:"personality" json:"personality"`
}

// Being is a persona definition.
type Being struct {
	// ContextID is the default conversation id; it defaults to the lowercased name.
	ContextID     string    `yaml:"contextId" json:"contextId"`
	ModelProvider string    `yaml:"modelProvider" json:"modelProvider"`
	Model         string    `yaml:"model,omitempty" json:"model,omitempty"`
	System        string    `yaml:"system" json:"system"`
	Character     Character `yaml:"character" json:"character"`
	// Tools restricts the tools offered to the model; empty offers all of them.
	Tools            []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	Knowledge        []string `yaml:"knowledge,omitempty" json:"knowledge,omitempty"`
	ExampleResponses []string `yaml:"exampleResponses,omitempty" json:"exampleResponses,omitempty"`

	// accepts the historical misspelling used by older being files
	LegacyKnowledge []string `yaml:"knowlege,omitempty" json:"-"`
}

// Load reads and validates a being file.
func Load(path string) (*Being, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load being: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load being %s: %w", path, err)
	}
	return b, nil
}

// Parse decodes and validates a being definition.
func Parse(data []byte) (*Being, error) {
	var b Being
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode being: %w", err)
	}
	b.normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Being) normalize() {
	b.ModelProvider = strings.TrimSpace(b.ModelProvider)
	b.Character.Name = strings.TrimSpace(b.Character.Name)
	if len(b.LegacyKnowledge) > 0 {
		b.Knowledge = append(b.Knowledge, b.LegacyKnowledge...)
		b.LegacyKnowledge = nil
	}
	if strings.TrimSpace(b.ContextID) == "" {
		b.ContextID = strings.ToLower(b.Character.Name)
	}
}

// Validate reports every missing required field.
func (b *Being) Validate() error {
	var errs []error
	if strings.TrimSpace(b.ModelProvider) == "" {
		errs = append(errs, ErrMissingProvider)
	}
	if strings.TrimSpace(b.Character.Name) == "" {
		errs = append(errs, ErrMissingName)
	}
	if strings.TrimSpace(b.Character.Bio) == "" {
		errs = append(errs, ErrMissingBio)
	}
	if strings.TrimSpace(b.Character.Personality) == "" {
		errs = append(errs, ErrMissingPersonality)
	}
	return errors.Join(errs...)
}

// Allows reports whether the named tool may be offered to the model.
func (b *Being) Allows(name string) bool {
	return len(b.Tools) == 0 || slices.Contains(b.Tools, name)
}

// YAML encodes the being back to its file format.
func (b *Being) YAML() ([]byte, error) {
	return yaml.Marshal(b)
}
