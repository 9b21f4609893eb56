// Package config assembles the tool settings from defaults, an optional
// YAML file, and CLI flags, then hands each component its slice of the
// configuration. Settings are immutable after load.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/csrfshield/csrfshield/pkg/csrftoken"
	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/features"
	"github.com/csrfshield/csrfshield/pkg/rules"
	"github.com/csrfshield/csrfshield/pkg/scoring"
)

// Settings is the full tool configuration. Zero or missing fields fall back
// to the defaults package.
type Settings struct {
	// ModelPath points to a JSON inference model file. Empty means the
	// embedded default model.
	ModelPath string `yaml:"model_path"`

	// Auth classification.
	AuthHeaders           []string `yaml:"auth_headers"`
	SessionCookiePatterns []string `yaml:"session_cookie_patterns"`

	// Token identification.
	TokenFieldNames       []string `yaml:"token_field_names"`
	TokenKeywords         []string `yaml:"token_keywords"`
	TokenMinLength        int      `yaml:"token_min_length"`
	TokenEntropyThreshold float64  `yaml:"token_entropy_threshold"`

	// Recognized CSRF defense headers.
	CSRFHeaders []string `yaml:"csrf_headers"`

	// Endpoint vocabularies.
	SensitiveKeywords []string `yaml:"sensitive_keywords"`
	FinancialKeywords []string `yaml:"financial_keywords"`
	AdminKeywords     []string `yaml:"admin_keywords"`
	UserDataKeywords  []string `yaml:"user_data_keywords"`
	ActionKeywords    []string `yaml:"action_keywords"`

	// Rules selects and tunes the static rule catalog.
	Rules rules.Config `yaml:"rules"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		AuthHeaders:           defaults.AuthHeaders(),
		SessionCookiePatterns: defaults.SessionCookiePatterns(),
		TokenFieldNames:       defaults.TokenFieldNames(),
		TokenKeywords:         defaults.TokenKeywords(),
		TokenMinLength:        defaults.TokenMinLength,
		TokenEntropyThreshold: defaults.TokenEntropyThreshold,
		CSRFHeaders:           defaults.CSRFHeaders(),
		SensitiveKeywords:     defaults.SensitiveKeywords(),
		FinancialKeywords:     defaults.FinancialKeywords(),
		AdminKeywords:         defaults.AdminKeywords(),
		UserDataKeywords:      defaults.UserDataKeywords(),
		ActionKeywords:        defaults.ActionKeywords(),
	}
}

// Load reads a YAML settings file over the defaults. Fields absent from the
// file keep their default values.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}

// TokenConfig returns the token identifier configuration.
func (s Settings) TokenConfig() csrftoken.Config {
	return csrftoken.Config{
		FieldNames:       s.TokenFieldNames,
		Keywords:         s.TokenKeywords,
		MinLength:        s.TokenMinLength,
		EntropyThreshold: s.TokenEntropyThreshold,
	}
}

// FeatureConfig returns the feature extractor configuration.
func (s Settings) FeatureConfig() features.Config {
	return features.Config{
		Token:             s.TokenConfig(),
		CSRFHeaders:       s.CSRFHeaders,
		SensitiveKeywords: s.SensitiveKeywords,
	}
}

// ScoringConfig returns the scorer configuration.
func (s Settings) ScoringConfig() scoring.Config {
	return scoring.Config{
		SensitiveKeywords: s.SensitiveKeywords,
		FinancialKeywords: s.FinancialKeywords,
		AdminKeywords:     s.AdminKeywords,
		UserDataKeywords:  s.UserDataKeywords,
		ActionKeywords:    s.ActionKeywords,
	}
}

// RulesConfig returns the rule engine configuration with shared lists
// propagated.
func (s Settings) RulesConfig() rules.Config {
	cfg := s.Rules
	if len(cfg.CSRFHeaders) == 0 {
		cfg.CSRFHeaders = s.CSRFHeaders
	}
	if len(cfg.ActionKeywords) == 0 {
		cfg.ActionKeywords = s.ActionKeywords
	}
	if cfg.EntropyFloor == 0 {
		cfg.EntropyFloor = defaults.TokenEntropyFloor
	}
	return cfg
}
