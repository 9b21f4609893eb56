package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config selects and tunes the rule catalog. The zero value enables every
// built-in rule with default thresholds.
type Config struct {
	// Enabled lists the rule IDs to register. Empty means all built-ins.
	Enabled []string `yaml:"enabled"`

	// EntropyFloor is the minimum acceptable token entropy in bits per
	// character (CSRF-003). Zero means the default floor.
	EntropyFloor float64 `yaml:"entropy_floor"`

	// CSRFHeaders overrides the recognized defense header names (CSRF-002).
	CSRFHeaders []string `yaml:"csrf_headers"`

	// ActionKeywords overrides the state-changing URL vocabulary (CSRF-008).
	ActionKeywords []string `yaml:"action_keywords"`
}

func (c Config) enabled(id string) bool {
	if len(c.Enabled) == 0 {
		return true
	}
	for _, e := range c.Enabled {
		if e == id {
			return true
		}
	}
	return false
}

// LoadConfig reads a rule configuration from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("rules: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("rules: parse config: %w", err)
	}
	return cfg, nil
}
