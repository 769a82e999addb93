// Package config handles loading and validation of application
// configuration. It supports YAML-based configuration files and
// provides sensible defaults.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBatchSize is the default ceiling on entries per batch,
	// matching the service maximum.
	DefaultBatchSize int = 10000

	// DefaultMaxLineBytes is the default maximum size for a single
	// input line (1 MiB).
	DefaultMaxLineBytes int = 1 << 20
)

// Protocol names the remote submission variants.
const (
	ProtocolModern = "modern"
	ProtocolLegacy = "legacy"
)

//go:embed config.template.yml
var configTemplate string

// AWSConfig holds the AWS client settings. All fields are optional;
// the SDK's default resolution chain applies when they are empty.
type AWSConfig struct {
	Region   string `yaml:"region"`
	Profile  string `yaml:"profile"`
	Endpoint string `yaml:"endpoint"`
}

// SpoolConfig enables a local NDJSON mirror of every accepted record,
// rotated daily. Off by default.
type SpoolConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	FilePrefix string `yaml:"file_prefix"`
}

// Config represents the complete application configuration.
type Config struct {
	// Destination stream.
	LogGroup  string `yaml:"log_group"`
	LogStream string `yaml:"log_stream"`

	// RetentionDays applies a retention policy when the group is
	// created. Omitted = keep logs indefinitely.
	RetentionDays *int32 `yaml:"retention_days"`

	// Batching and throttling.
	BatchSize int `yaml:"batch_size"`
	RPSLimit  int `yaml:"rps_limit"`

	// Protocol selects the submission variant: "modern" (default) or
	// "legacy" (smaller payload ceiling, sequence-token ordered).
	Protocol string `yaml:"protocol"`

	// Provisioning.
	Tags         map[string]string `yaml:"tags"`
	CreateGroup  *bool             `yaml:"create_group"`
	CreateStream *bool             `yaml:"create_stream"`

	// Level and Bubble are carried for embedding front-ends; the
	// shipper core does not interpret them.
	Level  string `yaml:"level"`
	Bubble *bool  `yaml:"bubble"`

	// Input handling.
	MaxLineBytes int `yaml:"max_line_bytes"`

	// Operational surfaces.
	MetricsAddr string       `yaml:"metrics_addr"`
	AWS         *AWSConfig   `yaml:"aws"`
	Spool       *SpoolConfig `yaml:"spool"`
}

// ShouldCreateGroup reports the create-group flag, defaulting to true.
func (c *Config) ShouldCreateGroup() bool {
	return c.CreateGroup == nil || *c.CreateGroup
}

// ShouldCreateStream reports the create-stream flag, defaulting to true.
func (c *Config) ShouldCreateStream() bool {
	return c.CreateStream == nil || *c.CreateStream
}

// LoadConfig reads and validates configuration from the specified YAML
// file. It returns an error if the file cannot be read, parsed, or
// contains invalid settings.
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("configuration file is required")
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configFile)
	}

	// #nosec G304 -- configFile is provided by the user via the --config flag, which is the
	// expected and documented way to specify the configuration file path.
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %v", err)
	}

	// Apply defaults.
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Protocol == "" {
		config.Protocol = ProtocolModern
	}
	if config.MaxLineBytes == 0 {
		config.MaxLineBytes = DefaultMaxLineBytes
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	slog.Info("loaded configuration", "file", configFile)
	return config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.LogGroup == "" {
		return fmt.Errorf("log_group is required")
	}
	if cfg.LogStream == "" {
		return fmt.Errorf("log_stream is required")
	}

	if cfg.BatchSize < 1 || cfg.BatchSize > DefaultBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d, got %d", DefaultBatchSize, cfg.BatchSize)
	}
	if cfg.RPSLimit < 0 {
		return fmt.Errorf("rps_limit must not be negative, got %d", cfg.RPSLimit)
	}
	if cfg.RetentionDays != nil && *cfg.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be positive when set, got %d", *cfg.RetentionDays)
	}

	switch cfg.Protocol {
	case ProtocolModern, ProtocolLegacy:
	default:
		return fmt.Errorf("invalid protocol %q (must be %q or %q)", cfg.Protocol, ProtocolModern, ProtocolLegacy)
	}

	switch cfg.Level {
	case "", "debug", "info", "notice", "warning", "error", "critical", "alert", "emergency":
	default:
		return fmt.Errorf("invalid level %q", cfg.Level)
	}

	if cfg.Spool != nil && cfg.Spool.Enabled && cfg.Spool.Dir == "" {
		return fmt.Errorf("spool.dir is required when the spool is enabled")
	}

	return nil
}

// GetTemplate returns the embedded YAML configuration template.
// This template can be used to generate a sample configuration file.
func GetTemplate() string {
	return configTemplate
}
