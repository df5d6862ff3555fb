// Package config provides file-driven configuration for the pipeline
// engine: default and per-action execution modes plus guard defaults,
// loaded from YAML, with optional hot reload via a file watcher.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/actionpipe/actionpipe"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// GuardConfig sets engine-wide default guard windows.
type GuardConfig struct {
	// Debounce is applied to every dispatch without its own window.
	Debounce Duration `yaml:"debounce"`

	// Throttle is applied to every dispatch without its own window.
	Throttle Duration `yaml:"throttle"`
}

// Config is the engine configuration file shape.
type Config struct {
	// DefaultMode is the engine-wide execution mode.
	DefaultMode string `yaml:"default_mode"`

	// ActionModes overrides the mode per action name.
	ActionModes map[string]string `yaml:"action_modes"`

	// Guard holds default debounce/throttle windows.
	Guard GuardConfig `yaml:"guard"`
}

// Parse decodes and validates a YAML configuration document.
// Unknown execution modes fail fast.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

func (c *Config) validate() error {
	if c.DefaultMode != "" {
		if _, err := actionpipe.ParseMode(c.DefaultMode); err != nil {
			return fmt.Errorf("default_mode: %w", err)
		}
	}
	for action, mode := range c.ActionModes {
		if _, err := actionpipe.ParseMode(mode); err != nil {
			return fmt.Errorf("action_modes[%s]: %w", action, err)
		}
	}
	return nil
}

// Apply configures an engine from the loaded values.
func (c *Config) Apply(e *actionpipe.Engine) error {
	if c.DefaultMode != "" {
		mode, err := actionpipe.ParseMode(c.DefaultMode)
		if err != nil {
			return err
		}
		if err := e.SetDefaultMode(mode); err != nil {
			return err
		}
	}
	for action, raw := range c.ActionModes {
		mode, err := actionpipe.ParseMode(raw)
		if err != nil {
			return err
		}
		if err := e.SetActionExecutionMode(action, mode); err != nil {
			return err
		}
	}
	e.SetGuardDefaults(time.Duration(c.Guard.Debounce), time.Duration(c.Guard.Throttle))
	return nil
}
