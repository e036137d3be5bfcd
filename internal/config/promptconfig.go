package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds optional overrides for the built-in prompt templates.
// Empty fields keep the defaults.
type PromptConfig struct {
	// StyleGuides maps rewrite style names (simple, academic, professional,
	// concise) to replacement style-guide text.
	StyleGuides map[string]string `yaml:"style_guides"`
	// WordCounts maps summary lengths (brief, medium, detailed) to replacement
	// target word-count ranges, e.g. "100-150".
	WordCounts map[string]string `yaml:"word_counts"`
	// DefaultLanguage replaces the default response language directive.
	DefaultLanguage string `yaml:"default_language"`
}

// LoadPromptConfig loads prompt overrides from a YAML file. A missing path
// (empty string) yields an empty config, not an error.
func LoadPromptConfig(path string) (*PromptConfig, error) {
	cfg := &PromptConfig{}
	if path == "" {
		return cfg, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prompt config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt config %s: %w", absPath, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse prompt config %s: %w", absPath, err)
	}
	return cfg, nil
}
