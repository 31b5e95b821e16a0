package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Tracker configuration
	Tracker TrackerConfig `yaml:"tracker"`

	// Category resolution configuration
	Categories CategoriesConfig `yaml:"categories"`

	// Archive and report output configuration
	Archive ArchiveConfig `yaml:"archive"`

	// Overflow spool configuration
	Spool SpoolConfig `yaml:"spool"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon"`

	// Web server configuration
	Web WebConfig `yaml:"web"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database file
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	PollInterval       time.Duration `yaml:"poll_interval"`        // How often to sample the foreground window
	MinPollInterval    time.Duration `yaml:"-"`                    // Minimum allowed poll interval
	MaxPollInterval    time.Duration `yaml:"-"`                    // Maximum allowed poll interval
	MinSessionDuration time.Duration `yaml:"min_session_duration"` // Shorter intervals are discarded as probe noise
	StopTimeout        time.Duration `yaml:"stop_timeout"`         // Bounded wait for the final interval on shutdown
	BreakInterval      time.Duration `yaml:"break_interval"`       // Time between suggested breaks
	MinBreakInterval   time.Duration `yaml:"-"`
}

// CategoriesConfig holds program categorisation behavior
type CategoriesConfig struct {
	Default       string        `yaml:"default"`        // Category used when none is resolved
	Interactive   bool          `yaml:"interactive"`    // Ask the UI for unseen programs
	PromptTimeout time.Duration `yaml:"prompt_timeout"` // Unanswered prompts fall back to Default
	QueueSize     int           `yaml:"queue_size"`     // Outstanding categorisation requests
}

// ArchiveConfig holds monthly rollover output configuration
type ArchiveConfig struct {
	ReportsDir string `yaml:"reports_dir"` // Empty means <data dir>/report
}

// SpoolConfig holds the overflow buffer used when the store rejects writes
type SpoolConfig struct {
	Path          string `yaml:"path"`           // Empty means <data dir>/pending.jsonl
	WarnThreshold int    `yaml:"warn_threshold"` // Pending records before a user-facing warning
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"` // Path to PID file for daemon management
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `yaml:"host"` // Host to bind web server to
	Port int    `yaml:"port"` // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/focuslog/focuslog.db
		},
		Tracker: TrackerConfig{
			PollInterval:       1 * time.Second,
			MinPollInterval:    250 * time.Millisecond,
			MaxPollInterval:    10 * time.Second,
			MinSessionDuration: 500 * time.Millisecond,
			StopTimeout:        5 * time.Second,
			BreakInterval:      50 * time.Minute,
			MinBreakInterval:   10 * time.Minute,
		},
		Categories: CategoriesConfig{
			Default:       "Misc",
			Interactive:   true,
			PromptTimeout: 10 * time.Minute,
			QueueSize:     16,
		},
		Archive: ArchiveConfig{},
		Spool: SpoolConfig{
			WarnThreshold: 500,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/focuslog-%d.pid", os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // Default port based on user ID
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.MinSessionDuration < 0 {
		return fmt.Errorf("minimum session duration cannot be negative")
	}

	if c.Tracker.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive, got %v", c.Tracker.StopTimeout)
	}

	if c.Tracker.BreakInterval < c.Tracker.MinBreakInterval {
		return fmt.Errorf("break interval (%v) cannot be less than minimum (%v)",
			c.Tracker.BreakInterval, c.Tracker.MinBreakInterval)
	}

	if c.Categories.Default == "" {
		return fmt.Errorf("default category cannot be empty")
	}

	if c.Categories.QueueSize < 1 {
		return fmt.Errorf("category queue size must be at least 1, got %d", c.Categories.QueueSize)
	}

	if c.Categories.PromptTimeout < 0 {
		return fmt.Errorf("prompt timeout cannot be negative")
	}

	if c.Spool.WarnThreshold < 1 {
		return fmt.Errorf("spool warn threshold must be at least 1, got %d", c.Spool.WarnThreshold)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetBreakInterval sets the break interval with validation
func (c *Config) SetBreakInterval(interval time.Duration) error {
	if interval < c.Tracker.MinBreakInterval {
		return fmt.Errorf("break interval cannot be less than %v", c.Tracker.MinBreakInterval)
	}
	c.Tracker.BreakInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Tracker:
    Poll Interval: %v
    Min Session: %v
    Stop Timeout: %v
    Break Interval: %v
  Categories:
    Default: %s
    Interactive: %v
    Prompt Timeout: %v
  Archive:
    Reports Dir: %s
  Spool:
    Path: %s
  Daemon:
    PID File: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Tracker.PollInterval,
		c.Tracker.MinSessionDuration,
		c.Tracker.StopTimeout,
		c.Tracker.BreakInterval,
		c.Categories.Default,
		c.Categories.Interactive,
		c.Categories.PromptTimeout,
		c.Archive.ReportsDir,
		c.Spool.Path,
		c.Daemon.PIDFile,
		c.Web.Host,
		c.Web.Port,
	)
}
