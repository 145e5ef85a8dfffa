package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}

	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("Expected default base URL, got %s", cfg.API.BaseURL)
	}

	if cfg.Generation.OutputFormat != "zip" {
		t.Errorf("Expected output format zip, got %s", cfg.Generation.OutputFormat)
	}

	if cfg.Audit.PageSize != 10 {
		t.Errorf("Expected audit page size 10, got %d", cfg.Audit.PageSize)
	}

	if cfg.Audit.DetailPageSize != 50 {
		t.Errorf("Expected audit detail page size 50, got %d", cfg.Audit.DetailPageSize)
	}

	if cfg.Output.DefaultFormat != "text" {
		t.Errorf("Expected output format text, got %s", cfg.Output.DefaultFormat)
	}
}

func TestConfigValidation(t *testing.T) {
	withDefaults := func(mutate func(*Config)) *Config {
		cfg := DefaultConfig()
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "empty base url",
			config:  withDefaults(func(c *Config) { c.API.BaseURL = "" }),
			wantErr: true,
			errMsg:  "api base_url must not be empty",
		},
		{
			name:    "base url without http scheme",
			config:  withDefaults(func(c *Config) { c.API.BaseURL = "ftp://example.com/api" }),
			wantErr: true,
			errMsg:  "invalid api base_url scheme: ftp (must be http or https)",
		},
		{
			name:    "invalid output format",
			config:  withDefaults(func(c *Config) { c.Generation.OutputFormat = "fax" }),
			wantErr: true,
			errMsg:  "invalid output_format: fax (must be one of: zip, print)",
		},
		{
			name:    "invalid display format",
			config:  withDefaults(func(c *Config) { c.Output.DefaultFormat = "invalid" }),
			wantErr: true,
			errMsg:  "invalid output format: invalid (must be one of: json, text, markdown, csv)",
		},
		{
			name:    "invalid color mode",
			config:  withDefaults(func(c *Config) { c.Output.ColorMode = "invalid" }),
			wantErr: true,
			errMsg:  "invalid color mode: invalid (must be one of: auto, always, never)",
		},
		{
			name:    "zero audit page size",
			config:  withDefaults(func(c *Config) { c.Audit.PageSize = 0 }),
			wantErr: true,
			errMsg:  "audit page_size must be greater than 0",
		},
		{
			name:    "invalid theme",
			config:  withDefaults(func(c *Config) { c.UI.Theme = "neon" }),
			wantErr: true,
			errMsg:  "invalid theme: neon (must be one of: default, high-contrast, minimal)",
		},
		{
			name:    "invalid log level",
			config:  withDefaults(func(c *Config) { c.Logging.Level = "trace" }),
			wantErr: true,
			errMsg:  "invalid log level: trace (must be one of: debug, info, warn, error)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("Expected error message '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func TestConfigMerging(t *testing.T) {
	dst := DefaultConfig()

	src := &Config{
		API: APIConfig{
			BaseURL: "https://dl.example.com/api",
		},
		Generation: GenerationConfig{
			OutputFormat: "print",
		},
		Output: OutputConfig{
			DefaultFormat: "json",
			Verbose:       true,
		},
	}

	mergeConfigs(dst, src)

	if dst.API.BaseURL != "https://dl.example.com/api" {
		t.Errorf("Expected merged base URL, got %s", dst.API.BaseURL)
	}
	if dst.Generation.OutputFormat != "print" {
		t.Errorf("Expected output format print, got %s", dst.Generation.OutputFormat)
	}
	if dst.Output.DefaultFormat != "json" {
		t.Errorf("Expected output format json, got %s", dst.Output.DefaultFormat)
	}
	if !dst.Output.Verbose {
		t.Errorf("Expected verbose to be true")
	}

	// Unset values in source don't override destination
	if dst.API.Timeout != 30*time.Second {
		t.Errorf("Expected API timeout to remain 30s, got %v", dst.API.Timeout)
	}
	if !dst.Output.ShowProgress {
		t.Errorf("Expected show_progress to keep its default")
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "relative path",
			input:    "./config.yaml",
			expected: "./config.yaml",
		},
		{
			name:     "absolute path",
			input:    "/etc/dlgen/config.yaml",
			expected: "/etc/dlgen/config.yaml",
		},
		{
			name:  "home directory path",
			input: "~/.config/dlgen/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandPath(tt.input)
			if tt.expected == "" {
				if result == tt.input {
					t.Errorf("Expected path to be expanded, but got same path")
				}
				return
			}
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := GetConfigPaths()
	if len(paths) != 3 {
		t.Fatalf("Expected 3 config paths, got %d", len(paths))
	}

	if paths[0] != "./.dlgen.yaml" {
		t.Errorf("Expected ./.dlgen.yaml first, got %s", paths[0])
	}
	if paths[1] == "~/.config/dlgen/config.yaml" {
		t.Errorf("Expected user config path to be expanded")
	}
	if paths[2] != "/etc/dlgen/config.yaml" {
		t.Errorf("Expected /etc/dlgen/config.yaml last, got %s", paths[2])
	}
}
