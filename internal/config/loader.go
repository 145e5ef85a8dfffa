package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.dlgen.yaml",               // Project-specific config (highest priority)
	"~/.config/dlgen/config.yaml", // User config
	"/etc/dlgen/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.dlgen.yaml
// 4. ~/.config/dlgen/config.yaml
// 5. /etc/dlgen/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := ExpandPath(l.configPaths[i])
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig)
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// API Config
		"DLGEN_API_BASE_URL":     func(v string) error { config.API.BaseURL = v; return nil },
		"DLGEN_API_TIMEOUT":      func(v string) error { return parseDuration(v, &config.API.Timeout) },
		"DLGEN_API_SESSION_FILE": func(v string) error { config.API.SessionFile = v; return nil },

		// Generation Config
		"DLGEN_GENERATION_OUTPUT_FORMAT":          func(v string) error { config.Generation.OutputFormat = v; return nil },
		"DLGEN_GENERATION_TIMEOUT":                func(v string) error { return parseDuration(v, &config.Generation.Timeout) },
		"DLGEN_GENERATION_DOWNLOAD_DIR":           func(v string) error { config.Generation.DownloadDir = v; return nil },
		"DLGEN_GENERATION_WATCH_DIR":              func(v string) error { config.Generation.WatchDir = v; return nil },
		"DLGEN_GENERATION_CLEANUP_AFTER_DOWNLOAD": func(v string) error { return parseBool(v, &config.Generation.CleanupAfterDownload) },

		// Audit Config
		"DLGEN_AUDIT_PAGE_SIZE":        func(v string) error { return parseInt(v, &config.Audit.PageSize) },
		"DLGEN_AUDIT_DETAIL_PAGE_SIZE": func(v string) error { return parseInt(v, &config.Audit.DetailPageSize) },

		// Output Config
		"DLGEN_OUTPUT_DEFAULT_FORMAT":   func(v string) error { config.Output.DefaultFormat = v; return nil },
		"DLGEN_OUTPUT_COLOR_MODE":       func(v string) error { config.Output.ColorMode = v; return nil },
		"DLGEN_OUTPUT_VERBOSE":          func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"DLGEN_OUTPUT_TIMESTAMP_FORMAT": func(v string) error { config.Output.TimestampFormat = v; return nil },
		"DLGEN_OUTPUT_SHOW_PROGRESS":    func(v string) error { return parseBool(v, &config.Output.ShowProgress) },

		// UI Config
		"DLGEN_UI_THEME":      func(v string) error { config.UI.Theme = v; return nil },
		"DLGEN_UI_NOTICE_TTL": func(v string) error { return parseDuration(v, &config.UI.NoticeTTL) },

		// Logging Config
		"DLGEN_LOGGING_LEVEL":  func(v string) error { config.Logging.Level = v; return nil },
		"DLGEN_LOGGING_FORMAT": func(v string) error { config.Logging.Format = v; return nil },
		"DLGEN_LOGGING_FILE":   func(v string) error { config.Logging.File = v; return nil },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, ExpandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := ExpandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config.
// Only non-zero values from source overwrite destination.
func mergeConfigs(dst, src *Config) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	mergeAPIConfig(&dst.API, &src.API)
	mergeGenerationConfig(&dst.Generation, &src.Generation)
	mergeAuditConfig(&dst.Audit, &src.Audit)
	mergeOutputConfig(&dst.Output, &src.Output)
	mergeUIConfig(&dst.UI, &src.UI)
	mergeLoggingConfig(&dst.Logging, &src.Logging)
}

func mergeAPIConfig(dst, src *APIConfig) {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.SessionFile != "" {
		dst.SessionFile = src.SessionFile
	}
}

func mergeGenerationConfig(dst, src *GenerationConfig) {
	if src.OutputFormat != "" {
		dst.OutputFormat = src.OutputFormat
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.DownloadDir != "" {
		dst.DownloadDir = src.DownloadDir
	}
	if src.WatchDir != "" {
		dst.WatchDir = src.WatchDir
	}
	mergeIfSet(&dst.CleanupAfterDownload, src.CleanupAfterDownload)
}

func mergeAuditConfig(dst, src *AuditConfig) {
	if src.PageSize != 0 {
		dst.PageSize = src.PageSize
	}
	if src.DetailPageSize != 0 {
		dst.DetailPageSize = src.DetailPageSize
	}
}

// mergeOutputConfig merges output configuration
func mergeOutputConfig(dst, src *OutputConfig) {
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.ColorMode != "" {
		dst.ColorMode = src.ColorMode
	}
	if src.TimestampFormat != "" {
		dst.TimestampFormat = src.TimestampFormat
	}
	mergeIfSet(&dst.Verbose, src.Verbose)
	mergeIfSet(&dst.ShowProgress, src.ShowProgress)
}

func mergeUIConfig(dst, src *UIConfig) {
	if src.Theme != "" {
		dst.Theme = src.Theme
	}
	if src.NoticeTTL != 0 {
		dst.NoticeTTL = src.NoticeTTL
	}
}

func mergeLoggingConfig(dst, src *LoggingConfig) {
	if src.Level != "" {
		dst.Level = src.Level
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.File != "" {
		dst.File = src.File
	}
}

// mergeIfSet only lets a file switch a flag on. Turning a default off
// goes through the matching DLGEN_ environment variable.
func mergeIfSet(dst *bool, src bool) {
	if src {
		*dst = true
	}
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
