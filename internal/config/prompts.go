package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptPreset overrides the generation settings for one copy kind.
// Zero values mean "keep the built-in default".
type PromptPreset struct {
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// PromptsConfig represents the prompt preset file.
type PromptsConfig struct {
	Prompts struct {
		Ad    PromptPreset `yaml:"ad"`
		Email PromptPreset `yaml:"email"`
	} `yaml:"prompts"`
}

// LoadPromptsConfig loads prompt presets from a YAML file.
// An empty path returns an empty config so built-in defaults apply.
// The path parameter is expected to come from a trusted source (PROMPTS_CONFIG_PATH).
func LoadPromptsConfig(path string) (*PromptsConfig, error) {
	if path == "" {
		return &PromptsConfig{}, nil
	}

	// #nosec G304 -- path is provided by the operator, not request input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if err := validatePromptsConfig(&config); err != nil {
		return nil, fmt.Errorf("prompts validation failed: %w", err)
	}

	return &config, nil
}

func validatePromptsConfig(config *PromptsConfig) error {
	presets := map[string]PromptPreset{
		"ad":    config.Prompts.Ad,
		"email": config.Prompts.Email,
	}
	for kind, p := range presets {
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("%s temperature must be between 0 and 2, got %v", kind, p.Temperature)
		}
		if p.MaxTokens < 0 {
			return fmt.Errorf("%s max_tokens must not be negative", kind)
		}
	}
	return nil
}
