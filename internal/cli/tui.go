package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/config"
	"github.com/yildizm/dlgen/internal/logger"
	"github.com/yildizm/dlgen/internal/ui"
)

var tuiTheme string

func newTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive terminal interface",
		Long: `Start the full-screen interface: sign in, walk through the generation
wizard, follow runs as they progress and, as an administrator, manage users
and browse the audit trail.

Log output goes to logging.file while the interface owns the screen.`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}
	cmd.Flags().StringVar(&tuiTheme, "theme", "", fmt.Sprintf("color theme (%v)", ui.GetAvailableThemes()))
	return cmd
}

func runTUI(cmd *cobra.Command, args []string) error {
	if tuiTheme != "" && !ui.SetThemeByName(tuiTheme) {
		return fmt.Errorf("unknown theme: %s", tuiTheme)
	}

	closeLog, err := redirectLogs(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient()
	if err != nil {
		return err
	}
	a := newApp(client)

	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	return ui.Run(ctx, a, ui.Options{
		DownloadDir:          config.ExpandPath(cfg.Generation.DownloadDir),
		CleanupAfterDownload: cfg.Generation.CleanupAfterDownload,
		Logger:               newLogger("ui"),
	})
}

// redirectLogs points the shared log sink at the configured file so log
// lines do not draw over the interface. Without a file, logging is dropped.
func redirectLogs(lc config.LoggingConfig) (func(), error) {
	level := lc.Level
	if isVerbose() {
		level = "debug"
	}
	if lc.File == "" {
		logger.Configure(logger.Options{Level: "disabled"})
		return func() {}, nil
	}

	path := config.ExpandPath(lc.File)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	// #nosec G304 - path comes from configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.Configure(logger.Options{Level: level, Format: lc.Format, Writer: f})
	return func() {
		logger.Configure(logger.Options{Level: level, Format: lc.Format})
		_ = f.Close()
	}, nil
}
