// Package config provides configuration management for the lab sheet
// generator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sandunwb/labsheet/internal/cloud"
	"github.com/sandunwb/labsheet/internal/notifications"
)

// Cloud provider names accepted in the config file.
const (
	ProviderNone     = ""
	ProviderOneDrive = "onedrive"
	ProviderS3       = "s3"
)

// DefaultConfigDir returns the default config directory (~/.labsheet).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".labsheet"), nil
}

// DefaultConfigPath returns the default config file path
// (~/.labsheet/config.yml).
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// Config holds the generator's configuration.
type Config struct {
	StudentName     string `yaml:"student_name,omitempty"`
	StudentID       string `yaml:"student_id,omitempty"`
	OutputDir       string `yaml:"output_dir,omitempty"`
	DefaultTemplate string `yaml:"default_template,omitempty"`
	LogLevel        string `yaml:"log_level,omitempty"`

	// CloudProvider selects which remote store (if any) mirrors the
	// schedule file and generated documents: "onedrive", "s3" or empty.
	CloudProvider string               `yaml:"cloud_provider,omitempty"`
	OneDrive      cloud.OneDriveConfig `yaml:"onedrive,omitempty"`
	S3            cloud.S3Config       `yaml:"s3,omitempty"`
	CloudFolder   string               `yaml:"cloud_folder,omitempty"`

	NotificationEmail string                   `yaml:"notification_email,omitempty"`
	SMTP              notifications.SMTPConfig `yaml:"smtp,omitempty"`

	// MetricsAddr enables the Prometheus listener when set, e.g.
	// "127.0.0.1:9090".
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Validate checks that the configuration has required fields for
// generation to run.
func (c *Config) Validate() error {
	if c.StudentName == "" {
		return errors.New("student_name is required")
	}
	if c.StudentID == "" {
		return errors.New("student_id is required")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	switch c.CloudProvider {
	case ProviderNone, ProviderOneDrive, ProviderS3:
	default:
		return fmt.Errorf("unknown cloud_provider %q", c.CloudProvider)
	}
	if c.CloudProvider == ProviderOneDrive {
		if err := c.OneDrive.Validate(); err != nil {
			return err
		}
	}
	if c.CloudProvider == ProviderS3 {
		if err := c.S3.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsConfigured returns true if the student identity has been set up.
func (c *Config) IsConfigured() bool {
	return c.StudentName != "" && c.StudentID != ""
}

// Load reads the configuration from the given path.
// If the file does not exist, a config with defaults is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads the configuration from the default path.
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func defaults() *Config {
	return &Config{
		DefaultTemplate: "classic",
		LogLevel:        "info",
		CloudFolder:     "LabSheets",
	}
}

// Save writes the configuration to the given path, creating directories
// as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// Write with restricted permissions (user-only read/write)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// SaveDefault saves the configuration to the default path.
func (c *Config) SaveDefault() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.Save(path)
}
