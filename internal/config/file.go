package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FilePath returns the config file location
func FilePath() string {
	if path := os.Getenv("FOCUSLOG_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "focuslog", "config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "focuslog", "config.yaml")
	}

	return ""
}

// LoadFile merges a YAML config file into cfg. A missing file is not an error.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	// #nosec G304 - path comes from the environment or standard locations
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// DataDir returns the directory holding the database, spool and reports.
func (c *Config) DataDir() (string, error) {
	if c.Database.Path != "" {
		return filepath.Dir(c.Database.Path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "focuslog"), nil
}

// ReportsDir resolves Archive.ReportsDir against the data directory.
func (c *Config) ReportsDir() (string, error) {
	if c.Archive.ReportsDir != "" {
		return c.Archive.ReportsDir, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "report"), nil
}

// SpoolPath resolves Spool.Path against the data directory.
func (c *Config) SpoolPath() (string, error) {
	if c.Spool.Path != "" {
		return c.Spool.Path, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pending.jsonl"), nil
}
