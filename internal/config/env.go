package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("FOCUSLOG_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Tracker configuration
	if pollInterval := os.Getenv("FOCUSLOG_POLL_INTERVAL"); pollInterval != "" {
		if interval, err := time.ParseDuration(pollInterval); err == nil {
			if interval >= cfg.Tracker.MinPollInterval && interval <= cfg.Tracker.MaxPollInterval {
				cfg.Tracker.PollInterval = interval
			}
		}
	}

	if breakInterval := os.Getenv("FOCUSLOG_BREAK_INTERVAL"); breakInterval != "" {
		if seconds, err := strconv.Atoi(breakInterval); err == nil && seconds > 0 {
			interval := time.Duration(seconds) * time.Second
			if interval >= cfg.Tracker.MinBreakInterval {
				cfg.Tracker.BreakInterval = interval
			}
		}
	}

	if stopTimeout := os.Getenv("FOCUSLOG_STOP_TIMEOUT"); stopTimeout != "" {
		if d, err := time.ParseDuration(stopTimeout); err == nil && d > 0 {
			cfg.Tracker.StopTimeout = d
		}
	}

	// Category configuration
	if def := os.Getenv("FOCUSLOG_DEFAULT_CATEGORY"); def != "" {
		cfg.Categories.Default = def
	}

	if interactive := os.Getenv("FOCUSLOG_INTERACTIVE"); interactive != "" {
		if val, err := strconv.ParseBool(interactive); err == nil {
			cfg.Categories.Interactive = val
		}
	}

	if timeout := os.Getenv("FOCUSLOG_PROMPT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d >= 0 {
			cfg.Categories.PromptTimeout = d
		}
	}

	// Archive and spool
	if dir := os.Getenv("FOCUSLOG_REPORTS_DIR"); dir != "" {
		cfg.Archive.ReportsDir = dir
	}

	if spool := os.Getenv("FOCUSLOG_SPOOL_PATH"); spool != "" {
		cfg.Spool.Path = spool
	}

	// Daemon configuration
	if pidFile := os.Getenv("FOCUSLOG_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	// Web configuration
	if webHost := os.Getenv("FOCUSLOG_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("FOCUSLOG_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values and loads from environment.
// A config file, when present, sits between the defaults and the environment.
func New() (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, FilePath()); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	return cfg, nil
}
