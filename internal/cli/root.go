package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/config"
	"github.com/yildizm/dlgen/internal/emoji"
	"github.com/yildizm/dlgen/internal/logger"
	"github.com/yildizm/dlgen/internal/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	noEmoji   bool
	outputFmt string

	cfg *config.Config
)

// skipConfig marks commands that load configuration themselves
const skipConfig = "skip-config"

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dlgen",
		Short: "Terminal client for the DL document-generation service",
		Long: `dlgen drives the DL document-generation backend from the terminal.

Sign in once, then pick an output format, mode, client folder, DL type and
template, upload a spreadsheet of accounts and follow the generation run
until the archive is ready to download or the documents are sent to a printer.

Administrators can also manage users and browse the audit trail.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}
			emoji.SetEmojiDisabled(noEmoji)
			if noColor {
				ui.DisableColor()
			}

			if _, ok := cmd.Annotations[skipConfig]; ok {
				return nil
			}
			return initConfig(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format (text, json, markdown, csv)")

	// Add subcommands
	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newLogoutCommand())
	rootCmd.AddCommand(newWhoamiCommand())
	rootCmd.AddCommand(newFoldersCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newPlaceholdersCommand())
	rootCmd.AddCommand(newPrintersCommand())
	rootCmd.AddCommand(newPrintCommand())
	rootCmd.AddCommand(newDownloadCommand())
	rootCmd.AddCommand(newCleanupCommand())
	rootCmd.AddCommand(newUsersCommand())
	rootCmd.AddCommand(newAuditCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newTUICommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// initConfig loads the configuration and applies it to logging and colors
func initConfig(cmd *cobra.Command) error {
	loaded, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if !cmd.Flag("verbose").Changed && cfg.Output.Verbose {
		verbose = true
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger.Configure(logger.Options{Level: level, Format: cfg.Logging.Format})

	if cfg.Output.ColorMode == "never" {
		ui.DisableColor()
	}
	ui.SetThemeByName(cfg.UI.Theme)
	return nil
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Long:        "Display version number, build commit, date, and runtime information",
		Annotations: map[string]string{skipConfig: ""},
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			fmt.Printf("dlgen %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// Global helpers
func isVerbose() bool {
	return verbose
}

func getOutputFormat() string {
	if outputFmt != "" {
		return outputFmt
	}
	if cfg != nil && cfg.Output.DefaultFormat != "" {
		return cfg.Output.DefaultFormat
	}
	return "text"
}

func isEmojiDisabled() bool {
	return noEmoji
}

// useColor reports whether text output should carry ANSI colors
func useColor() bool {
	if noColor || ui.IsColorDisabled() {
		return false
	}
	if cfg != nil {
		switch cfg.Output.ColorMode {
		case "always":
			return true
		case "never":
			return false
		}
	}
	return termenv.NewOutput(os.Stdout).ColorProfile() != termenv.Ascii
}

func newLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}
