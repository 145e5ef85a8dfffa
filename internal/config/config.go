package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version    string           `yaml:"version" json:"version"`
	API        APIConfig        `yaml:"api" json:"api"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Audit      AuditConfig      `yaml:"audit" json:"audit"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	UI         UIConfig         `yaml:"ui" json:"ui"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// APIConfig configures the backend connection
type APIConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`         // backend API root
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`           // per-request timeout
	SessionFile string        `yaml:"session_file" json:"session_file"` // persisted session cookie
}

// GenerationConfig configures document generation runs
type GenerationConfig struct {
	OutputFormat         string        `yaml:"output_format" json:"output_format"` // zip|print
	Timeout              time.Duration `yaml:"timeout" json:"timeout"`             // wall-clock limit for one run
	DownloadDir          string        `yaml:"download_dir" json:"download_dir"`
	WatchDir             string        `yaml:"watch_dir" json:"watch_dir"`
	CleanupAfterDownload bool          `yaml:"cleanup_after_download" json:"cleanup_after_download"`
}

// AuditConfig configures audit trail paging
type AuditConfig struct {
	PageSize       int `yaml:"page_size" json:"page_size"`
	DetailPageSize int `yaml:"detail_page_size" json:"detail_page_size"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat   string `yaml:"default_format" json:"default_format"`     // json|text|markdown|csv
	ColorMode       string `yaml:"color_mode" json:"color_mode"`             // auto|always|never
	Verbose         bool   `yaml:"verbose" json:"verbose"`                   // default verbosity
	TimestampFormat string `yaml:"timestamp_format" json:"timestamp_format"` // time format string
	ShowProgress    bool   `yaml:"show_progress" json:"show_progress"`       // show progress bars
}

// UIConfig configures the interactive terminal UI
type UIConfig struct {
	Theme     string        `yaml:"theme" json:"theme"`           // default|high-contrast|minimal
	NoticeTTL time.Duration `yaml:"notice_ttl" json:"notice_ttl"` // how long error notices stay visible
}

// LoggingConfig configures diagnostic logging
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `yaml:"format" json:"format"` // text|json
	File   string `yaml:"file" json:"file"`     // log destination while the TUI owns the screen
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:     "http://localhost:5000/api",
			Timeout:     30 * time.Second,
			SessionFile: "~/.cache/dlgen/session.json",
		},
		Generation: GenerationConfig{
			OutputFormat:         "zip",
			Timeout:              120 * time.Second,
			DownloadDir:          ".",
			WatchDir:             "",
			CleanupAfterDownload: false,
		},
		Audit: AuditConfig{
			PageSize:       10,
			DetailPageSize: 50,
		},
		Output: OutputConfig{
			DefaultFormat:   "text",
			ColorMode:       "auto",
			Verbose:         false,
			TimestampFormat: "2006-01-02 15:04:05",
			ShowProgress:    true,
		},
		UI: UIConfig{
			Theme:     "default",
			NoticeTTL: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "~/.cache/dlgen/dlgen.log",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateAPIConfig(); err != nil {
		return err
	}
	if err := c.validateGenerationConfig(); err != nil {
		return err
	}
	if err := c.validateAuditConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if err := c.validateUIConfig(); err != nil {
		return err
	}
	return c.validateLoggingConfig()
}

func (c *Config) validateAPIConfig() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url must not be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api base_url scheme: %s (must be http or https)", u.Scheme)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateGenerationConfig() error {
	if c.Generation.OutputFormat != "" {
		validFormats := map[string]bool{
			"zip":   true,
			"print": true,
		}
		if !validFormats[c.Generation.OutputFormat] {
			return fmt.Errorf("invalid output_format: %s (must be one of: zip, print)", c.Generation.OutputFormat)
		}
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation timeout must be greater than 0")
	}
	return nil
}

func (c *Config) validateAuditConfig() error {
	if c.Audit.PageSize < 1 {
		return fmt.Errorf("audit page_size must be greater than 0")
	}
	if c.Audit.DetailPageSize < 1 {
		return fmt.Errorf("audit detail_page_size must be greater than 0")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown, csv)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}

func (c *Config) validateUIConfig() error {
	if c.UI.Theme != "" {
		validThemes := map[string]bool{
			"default":       true,
			"high-contrast": true,
			"minimal":       true,
		}
		if !validThemes[c.UI.Theme] {
			return fmt.Errorf("invalid theme: %s (must be one of: default, high-contrast, minimal)", c.UI.Theme)
		}
	}
	if c.UI.NoticeTTL < 0 {
		return fmt.Errorf("notice_ttl must be non-negative")
	}
	return nil
}

func (c *Config) validateLoggingConfig() error {
	if c.Logging.Level != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[c.Logging.Level] {
			return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
		}
	}
	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be one of: text, json)", c.Logging.Format)
	}
	return nil
}
