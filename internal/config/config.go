package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when no path is given.
const DefaultFile = "mdpages.yaml"

// Config represents the application configuration. Every component receives
// the values it needs from here; nothing reads global state.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Publish  PublishConfig  `yaml:"publish"`
	Markdown MarkdownConfig `yaml:"markdown"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Notify   NotifyConfig   `yaml:"notify"`
	Watch    WatchConfig    `yaml:"watch"`
}

// MarkdownConfig controls which files are treated as source documents.
type MarkdownConfig struct {
	Extension string `yaml:"extension"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile collector path. Empty disables metrics output.
	Textfile string `yaml:"textfile,omitempty"`
}

// NotifyConfig controls the optional NATS notification sent after a publish.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// Enabled reports whether notifications are configured.
func (n NotifyConfig) Enabled() bool { return n.NATSURL != "" }

// Load reads the configuration at configPath. When the file does not exist and
// required is false the defaults are returned. The result is normalized and validated.
func Load(configPath string, required bool) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg := Default()

	data, err := os.ReadFile(configPath) // #nosec G304 - path supplied by the operator
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").
				Fatal().
				WithContext("path", configPath).
				Build()
		}
		if cfg.Paths.Base == "" || cfg.Paths.Base == "." {
			// A relative base is taken relative to the config file, not the cwd.
			cfg.Paths.Base = filepath.Dir(configPath)
		} else if !filepath.IsAbs(cfg.Paths.Base) {
			cfg.Paths.Base = filepath.Join(filepath.Dir(configPath), cfg.Paths.Base)
		}
	case os.IsNotExist(err) && !required:
		slog.Debug("Configuration file not found, using defaults", "path", configPath)
	case os.IsNotExist(err):
		return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
			WithContext("path", configPath).
			Build()
	default:
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read configuration").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file populated with the defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	example := Default()
	example.Metrics.Textfile = ""
	example.Notify.NATSURL = ""

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example configuration").Build()
	}

	header := "# mdpages configuration\n# Relative paths are resolved against paths.base.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write configuration").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
