package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/config"
	"github.com/yildizm/dlgen/internal/logger"
	"github.com/yildizm/dlgen/internal/monitor"
	"github.com/yildizm/dlgen/internal/sheet"
	"github.com/yildizm/dlgen/internal/wizard"
)

var (
	watchSel         selection
	watchDownloadDir string
	watchCleanup     bool
	watchSettle      time.Duration
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Generate documents for spreadsheets dropped into a folder",
		Long: `Watch a folder and run generation for every spreadsheet that appears in it.

Files are processed one at a time, in the order they finish being written,
with the same choices for every run. Archives are saved into --download-dir.
The folder defaults to generation.watch_dir. Press Ctrl+C to stop watching.`,
		Example: `  dlgen watch ./inbox --folder Acme --doc-type Standard --template letter.docx
  dlgen watch --mode "Transmittal Only" --folder Acme --cleanup`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
	addSelectionFlags(cmd, &watchSel)
	cmd.Flags().StringVar(&watchDownloadDir, "download-dir", "", "directory for generated archives; defaults to generation.download_dir")
	cmd.Flags().BoolVar(&watchCleanup, "cleanup", false, "remove server-side files after each download")
	cmd.Flags().DurationVar(&watchSettle, "settle", time.Second, "how long a file must stay unchanged before it is processed")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := cfg.Generation.WatchDir
	if len(args) == 1 {
		dir = args[0]
	}
	dir = config.ExpandPath(dir)
	if err := validateWatchDirPath(dir); err != nil {
		return fmt.Errorf("invalid watch directory: %w", err)
	}

	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	_, a, err := connect(ctx)
	if err != nil {
		return err
	}
	sel := watchSel.withDefaults()
	if err := drive(ctx, a.Wizard, sel); err != nil {
		return err
	}

	watcher, err := createWatcher(dir)
	if err != nil {
		return err
	}
	defer cleanupWatcher(watcher)

	downloadDir := watchDownloadDir
	if downloadDir == "" {
		downloadDir = cfg.Generation.DownloadDir
	}
	w := &dropWorker{
		wizard: a.Wizard,
		sel:    sel,
		delivery: delivery{
			Dir:     config.ExpandPath(downloadDir),
			Cleanup: watchCleanup || cfg.Generation.CleanupAfterDownload,
		},
		log:   newLogger("watch"),
		stats: monitor.NewRunStats(),
	}
	defer func() {
		status("statistics", "Watch summary: %s", w.stats.Summary())
	}()

	status("watch", "Watching %s for spreadsheets (%s)", dir, strings.Join(sheet.Extensions, ", "))
	if isVerbose() {
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop...\n\n")
	}
	return runWatchLoop(ctx, watcher, w)
}

// dropWorker generates documents for one dropped file at a time
type dropWorker struct {
	wizard   *wizard.Machine
	sel      selection
	delivery delivery
	log      *logger.Logger
	stats    *monitor.RunStats
}

func (d *dropWorker) process(ctx context.Context, path string) error {
	runID := uuid.NewString()
	name := filepath.Base(path)
	start := time.Now()
	status("sheet", "[%s] Processing %s", runID[:8], name)

	// a cleanup between runs returns the wizard to the format step
	if !d.wizard.Snapshot().Stage.CanUpload() {
		if err := drive(ctx, d.wizard, d.sel); err != nil {
			return err
		}
	}
	if err := upload(ctx, d.wizard, path); err != nil {
		d.stats.Record(monitor.Failed, 0, time.Since(start))
		return err
	}
	rows := len(d.wizard.Snapshot().Preview.Rows)

	snap, runErr := runGeneration(ctx, d.wizard)
	elapsed := time.Since(start)
	d.stats.Record(runOutcome(runErr), rows, elapsed)
	d.log.InfoWithFields("Watch run finished", []logger.Field{
		logger.F("run_id", runID),
		logger.F("file", name),
		logger.F("stage", snap.Stage.String()),
		logger.Count(rows),
		logger.Duration(elapsed),
	})
	if runErr != nil {
		return fmt.Errorf("%s: %w", name, describe(runErr))
	}
	status("success", "[%s] %s %s", runID[:8], GetStageEmoji(snap.Stage), firstNonEmpty(snap.Progress.Message, "Done"))
	return deliver(ctx, d.wizard, snap, d.delivery)
}

func runOutcome(err error) monitor.Outcome {
	switch {
	case err == nil:
		return monitor.Succeeded
	case errors.Is(err, context.Canceled), errors.Is(err, wizard.ErrSuperseded):
		return monitor.Cancelled
	default:
		return monitor.Failed
	}
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}

// createWatcher creates and configures a new file system watcher
func createWatcher(dir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		cleanupWatcher(watcher)
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return watcher, nil
}

// runWatchLoop collects settled files and hands them to one worker goroutine
func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, w *dropWorker) error {
	queue := make(chan string, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for path := range queue {
			if err := w.process(ctx, path); err != nil {
				status("error", "%v", err)
			}
		}
	}()
	defer func() {
		close(queue)
		<-done
	}()

	pending := map[string]time.Time{}
	interval := watchSettle / 2
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, stopping...\n")
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			handleWatchEvent(event, pending)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < watchSettle {
					continue
				}
				select {
				case queue <- path:
					delete(pending, path)
				default:
					// worker is behind; try again on the next tick
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
			}
		}
	}
}

// handleWatchEvent records spreadsheets that were created or written
func handleWatchEvent(event fsnotify.Event, pending map[string]time.Time) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !isDroppedSpreadsheet(event.Name) {
		return
	}
	pending[event.Name] = time.Now()
}

// isDroppedSpreadsheet skips hidden files and office lock files
func isDroppedSpreadsheet(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	return sheet.Supported(path)
}

// validateWatchDirPath validates that a path is a directory that can be watched
func validateWatchDirPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("no directory given (pass one or set generation.watch_dir)")
	}

	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}

	return nil
}
