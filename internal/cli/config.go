package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yildizm/dlgen/internal/config"
)

// newConfigCommand creates the config command with subcommands
func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dlgen configuration",
		Long: `Manage dlgen configuration files and settings.

The config command provides subcommands for initializing, viewing,
validating, and managing configuration files.`,
		Annotations: map[string]string{skipConfig: ""},
	}

	// Add subcommands
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigPathCommand())

	return configCmd
}

// sampleConfig renders a configuration file with every default filled in
func sampleConfig(minimal bool) ([]byte, error) {
	defaults := config.DefaultConfig()
	header := "# dlgen configuration\n# Environment variables with the DLGEN_ prefix override these settings.\n\n"

	var v interface{} = defaults
	if minimal {
		v = struct {
			Version    string                  `yaml:"version"`
			API        config.APIConfig        `yaml:"api"`
			Generation config.GenerationConfig `yaml:"generation"`
		}{defaults.Version, defaults.API, defaults.Generation}
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return append([]byte(header), data...), nil
}

// newConfigInitCommand creates the config init subcommand
func newConfigInitCommand() *cobra.Command {
	var (
		outputPath string
		minimal    bool
		force      bool
	)

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Initialize a new configuration file",
		Annotations: map[string]string{skipConfig: ""},
		Long: `Initialize a new dlgen configuration file with default values.

By default, creates a full configuration file with every option.
Use --minimal for a compact configuration with only the backend and generation settings.`,
		Example: `  # Create full config in current directory
  dlgen config init

  # Create minimal config
  dlgen config init --minimal

  # Create config at specific path
  dlgen config init --output ~/.config/dlgen/config.yaml

  # Overwrite existing config
  dlgen config init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Determine output path
			if outputPath == "" {
				outputPath = ".dlgen.yaml"
			}
			outputPath = config.ExpandPath(outputPath)

			// Check if file exists and not forcing
			if !force && fileExists(outputPath) {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", outputPath)
			}

			// Create directory if needed
			dir := filepath.Dir(outputPath)
			if dir != "." && dir != "/" {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}

			content, err := sampleConfig(minimal)
			if err != nil {
				return err
			}

			// Write config file
			if err := os.WriteFile(outputPath, content, 0o600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			status("success", "Configuration file created at: %s", outputPath)
			if minimal {
				status("template", "Created minimal configuration with backend and generation settings")
			} else {
				status("template", "Created full configuration with all options")
			}

			return nil
		},
	}

	initCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path for config file (default: .dlgen.yaml)")
	initCmd.Flags().BoolVarP(&minimal, "minimal", "m", false, "create minimal configuration")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing config file")

	return initCmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:         "show",
		Short:       "Display current configuration",
		Annotations: map[string]string{skipConfig: ""},
		Long: `Display the current effective configuration after loading from all sources.

Shows the merged configuration from all sources including defaults,
config files, and environment variable overrides.`,
		Example: `  # Show config in YAML format
  dlgen config show

  # Show config in JSON format
  dlgen config show --format json

  # Show config from specific file
  dlgen config show --config /path/to/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			switch format {
			case "json":
				data, err := json.MarshalIndent(loaded, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal config to JSON: %w", err)
				}
				fmt.Println(string(data))
			case "yaml":
				data, err := yaml.Marshal(loaded)
				if err != nil {
					return fmt.Errorf("failed to marshal config to YAML: %w", err)
				}
				fmt.Print(string(data))
			default:
				return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
			}

			return nil
		},
	}

	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")

	return showCmd
}

// newConfigValidateCommand creates the config validate subcommand
func newConfigValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{skipConfig: ""},
		Long: `Validate a dlgen configuration file for syntax and semantic errors.

Checks the configuration file for:
- Valid YAML syntax
- A usable backend URL
- Valid values for enums
- Positive timeouts and page sizes`,
		Example: `  # Validate current config
  dlgen config validate

  # Validate specific config file
  dlgen config validate --config /path/to/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				status("error", "Configuration validation failed:")
				fmt.Printf("   %v\n", err)
				return err
			}

			status("success", "Configuration is valid")

			status("statistics", "Configuration summary:")
			fmt.Printf("   Version: %s\n", loaded.Version)
			fmt.Printf("   Backend: %s\n", loaded.API.BaseURL)
			fmt.Printf("   Output Format: %s\n", loaded.Output.DefaultFormat)
			fmt.Printf("   Generation Timeout: %s\n", loaded.Generation.Timeout)
			if loaded.Generation.WatchDir != "" {
				fmt.Printf("   Watch Directory: %s\n", loaded.Generation.WatchDir)
			}

			return nil
		},
	}

	return validateCmd
}

// newConfigPathCommand creates the config path subcommand
func newConfigPathCommand() *cobra.Command {
	pathCmd := &cobra.Command{
		Use:         "path",
		Short:       "Show configuration file search paths",
		Annotations: map[string]string{skipConfig: ""},
		Long: `Display the list of paths dlgen searches for configuration files.

Shows the search order and indicates which files exist.`,
		Example: `  # Show config search paths
  dlgen config path`,
		Run: func(cmd *cobra.Command, args []string) {
			status("folder", "Configuration file search paths (in priority order):")
			fmt.Println()

			paths := config.GetConfigPaths()
			for i, path := range paths {
				priority := []string{"Highest", "Medium", "Lowest"}
				exists := ""
				if fileExists(path) {
					exists = " " + GetEmoji("success") + " (exists)"
				} else {
					exists = " " + GetEmoji("error") + " (not found)"
				}

				fmt.Printf("  %d. %s%s\n", i+1, path, exists)
				if i < len(priority) {
					fmt.Printf("     Priority: %s\n", priority[i])
				}
				fmt.Println()
			}

			// Show current config file being used
			if currentConfig, found := config.FindConfigFile(); found {
				status("target", "Current config file: %s", currentConfig)
			} else {
				status("template", "No config file found, using defaults")
			}

			fmt.Println()
			status("info", "Environment variables with DLGEN_ prefix will override file settings")
		},
	}

	return pathCmd
}

// Helper function to check if file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
