package app

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	outputs    = []string{OutputTable, OutputJSON}
)

// FeedConfig configures the socket.io live feed.
type FeedConfig struct {
	URL                string `yaml:"url"`
	Namespace          string `yaml:"namespace"`
	ConfirmEvent       string `yaml:"confirmEvent"`
	StartEvent         string `yaml:"startEvent"`
	ScheduleEvent      string `yaml:"scheduleEvent"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Paths are program files or directories of program files.
	Paths []string `yaml:"paths"`

	LogFormat string `yaml:"logFormat"`
	LogLevel  string `yaml:"logLevel"`
	Output    string `yaml:"output"`

	// Vars are the HCL input variables, exposed as var.<name>.
	Vars map[string]string `yaml:"vars"`
	// ClampConfirmations clamps out-of-range confirmations into the
	// variable duration's bounds. When false they are taken verbatim. Both
	// ways they are flagged.
	ClampConfirmations bool `yaml:"clampConfirmations"`

	JournalPath     string     `yaml:"journal"`
	Feed            FeedConfig `yaml:"feed"`
	HealthcheckPort int        `yaml:"healthcheckPort"`
}

// DefaultConfig returns the configuration used when neither a config file
// nor a flag sets a value.
func DefaultConfig() Config {
	return Config{
		LogFormat:          "text",
		LogLevel:           "info",
		Output:             OutputTable,
		ClampConfirmations: true,
	}
}

// LoadConfigFile decodes the YAML file at path on top of base. Keys absent
// from the file keep their value from base.
func LoadConfigFile(path string, base Config) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(src, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// NewConfig validates cfg and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one program path is required")
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q: must be one of %v", cfg.LogLevel, logLevels)
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log-format %q: must be one of %v", cfg.LogFormat, logFormats)
	}
	if !slices.Contains(outputs, cfg.Output) {
		return nil, fmt.Errorf("invalid output %q: must be one of %v", cfg.Output, outputs)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
