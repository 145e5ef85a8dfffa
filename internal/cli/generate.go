package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/config"
	"github.com/yildizm/dlgen/internal/formatter"
	"github.com/yildizm/dlgen/internal/sheet"
	"github.com/yildizm/dlgen/internal/wizard"
)

var (
	foldersAll bool

	generateSel         selection
	generateFile        string
	generateDownloadDir string
	generatePrintArea   string
	generatePrinter     string
	generateCleanup     bool

	previewSel   selection
	previewLocal bool

	placeholdersSel selection

	printPrinter   string
	downloadDir string
)

func newFoldersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List client template folders",
		Long: `List the template folders available to you.

With --all, list every folder on the server (administrators only).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, _, err := connect(ctx)
			if err != nil {
				return err
			}
			fetch, title := client.Folders, "Folders"
			if foldersAll {
				fetch, title = client.AllFolders, "All folders"
			}
			folders, err := fetch(ctx)
			if err != nil {
				return describe(err)
			}
			return printReport(formatter.ListReport(title, folders))
		},
	}
	cmd.Flags().BoolVar(&foldersAll, "all", false, "list every folder (admin only)")
	return cmd
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate documents from a spreadsheet",
		Long: `Run the whole generation flow in one go.

The choices are applied in order (format, mode, folder, DL type, template),
the spreadsheet is checked locally and uploaded, and the run is followed
until the server reports it finished. A zip archive is then downloaded into
--download-dir; print output can be sent to a printer with --print-area.`,
		Example: `  dlgen generate --format zip --mode "DL Only" --folder Acme \
    --doc-type Standard --template letter.docx --file accounts.xlsx

  dlgen generate --format print --mode "Transmittal Only" --folder Acme \
    --file accounts.xlsx --print-area North --printer "Office 2"`,
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}
	addSelectionFlags(cmd, &generateSel)
	cmd.Flags().StringVarP(&generateFile, "file", "f", "", "spreadsheet of accounts (.xlsx)")
	cmd.Flags().StringVar(&generateDownloadDir, "download-dir", "", "directory for the generated archive; defaults to generation.download_dir")
	cmd.Flags().StringVar(&generatePrintArea, "print-area", "", "area to print once the run finishes")
	cmd.Flags().StringVar(&generatePrinter, "printer", "", "printer name (default printer when empty)")
	cmd.Flags().BoolVar(&generateCleanup, "cleanup", false, "remove server-side files after downloading")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := validateFilePath(generateFile); err != nil {
		return fmt.Errorf("invalid spreadsheet: %w", err)
	}
	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	_, a, err := connect(ctx)
	if err != nil {
		return err
	}
	w := a.Wizard

	if err := drive(ctx, w, generateSel.withDefaults()); err != nil {
		return err
	}
	if err := upload(ctx, w, generateFile); err != nil {
		return err
	}

	snap, runErr := runGeneration(ctx, w)
	if err := printReport(formatter.RunReport(snap)); err != nil {
		return err
	}
	if runErr != nil {
		return describe(runErr)
	}

	dir := generateDownloadDir
	if dir == "" {
		dir = cfg.Generation.DownloadDir
	}
	return deliver(ctx, w, snap, delivery{
		Dir:       config.ExpandPath(dir),
		PrintArea: generatePrintArea,
		Printer:   generatePrinter,
		Cleanup:   generateCleanup || cfg.Generation.CleanupAfterDownload,
	})
}

// upload sends the spreadsheet and reports how many rows the server parsed
func upload(ctx context.Context, w *wizard.Machine, path string) error {
	if err := w.Upload(ctx, path); err != nil {
		return describe(err)
	}
	snap := w.Snapshot()
	status("sheet", "Uploaded %s (%d rows)", filepath.Base(path), len(snap.Preview.Rows))
	return nil
}

// runGeneration follows a run to its end, drawing progress on stderr
func runGeneration(ctx context.Context, w *wizard.Machine) (wizard.Snapshot, error) {
	show := cfg.Output.ShowProgress && getOutputFormat() == "text"
	err := w.Generate(ctx, func(s wizard.Snapshot) {
		if show {
			fmt.Fprintf(os.Stderr, "\r\033[K%s %s", CreateProgressBar(s.Progress.Percent), s.Progress.Message)
		}
	})
	if show {
		fmt.Fprintln(os.Stderr)
	}
	return w.Snapshot(), err
}

// delivery says what to do with a finished run's output
type delivery struct {
	Dir       string
	PrintArea string
	Printer   string
	Cleanup   bool
}

func deliver(ctx context.Context, w *wizard.Machine, snap wizard.Snapshot, d delivery) error {
	if snap.DownloadReady {
		path, err := w.Download(ctx, d.Dir)
		if err != nil {
			return describe(err)
		}
		status("download", "Saved %s", path)
	}

	if snap.PrintReady {
		if d.PrintArea == "" {
			status("printer", "Print output is ready for: %v (use 'dlgen print <area>')", snap.Areas)
		} else {
			msg, err := w.Print(ctx, d.PrintArea, d.Printer)
			if err != nil {
				return describe(err)
			}
			status("printer", "%s", msg)
		}
	}

	if d.Cleanup {
		if err := w.Cleanup(ctx); err != nil {
			return describe(err)
		}
		status("success", "Server files cleaned up")
	}
	return nil
}

func newPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Preview the accounts in a spreadsheet",
		Long: `Show the rows of a spreadsheet as the server parses them.

The upload needs the same choices as generate. With --local the first
worksheet is read on this machine instead and nothing is sent.`,
		Example: `  dlgen preview accounts.xlsx --local
  dlgen preview accounts.xlsx --mode "Transmittal Only" --folder Acme`,
		Args: cobra.ExactArgs(1),
		RunE: runPreview,
	}
	addSelectionFlags(cmd, &previewSel)
	cmd.Flags().BoolVar(&previewLocal, "local", false, "read the spreadsheet locally without uploading it")
	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := validateFilePath(path); err != nil {
		return fmt.Errorf("invalid spreadsheet: %w", err)
	}

	if previewLocal {
		s, err := sheet.Open(path)
		if err != nil {
			return err
		}
		return printReport(formatter.PreviewReport(fmt.Sprintf("%s [%s]", filepath.Base(path), s.Name), localPreview(s)))
	}

	ctx := commandContext(cmd)
	_, a, err := connect(ctx)
	if err != nil {
		return err
	}
	if err := drive(ctx, a.Wizard, previewSel.withDefaults()); err != nil {
		return err
	}
	if err := a.Wizard.Upload(ctx, path); err != nil {
		return describe(err)
	}
	return printReport(formatter.PreviewReport(filepath.Base(path), a.Wizard.Snapshot().Preview))
}

// localPreview pads short rows so every row has a cell per header
func localPreview(s *sheet.Sheet) wizard.Preview {
	rows := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		cells := make([]string, len(s.Headers))
		copy(cells, r)
		rows = append(rows, cells)
	}
	return wizard.Preview{Columns: s.Headers, Rows: rows, Empty: len(rows) == 0}
}

func newPlaceholdersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "placeholders",
		Short: "Show the placeholders a template expects",
		Long: `Show the placeholders of a template, and of the folder's transmittal
template in the modes that produce one.`,
		Example: `  dlgen placeholders --folder Acme --doc-type Standard --template letter.docx
  dlgen placeholders --mode "Transmittal Only" --folder Acme`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}
			err = drive(ctx, a.Wizard, placeholdersSel.withDefaults())
			snap := a.Wizard.Snapshot()
			if err != nil && !errors.Is(err, wizard.ErrTemplateUnavailable) {
				return err
			}
			if perr := printReport(formatter.PlaceholderReport(snap.TemplateStatus, snap.Placeholders)); perr != nil {
				return perr
			}
			return err
		},
	}
	addSelectionFlags(cmd, &placeholdersSel)
	return cmd
}

func newPrintersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "printers",
		Short: "List available printers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, _, err := connect(ctx)
			if err != nil {
				return err
			}
			printers, err := client.Printers(ctx)
			if err != nil {
				return describe(err)
			}
			return printReport(formatter.PrinterReport(printers))
		},
	}
}

func newPrintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print <area>",
		Short: "Print the generated documents of one area",
		Long: `Send the documents of one area from the last print run to a printer.
Without --printer the server's default printer is used.`,
		Example: `  dlgen print North
  dlgen print North --printer "Office 2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, _, err := connect(ctx)
			if err != nil {
				return err
			}
			resp, err := client.PrintFiles(ctx, args[0], printPrinter)
			if err != nil {
				return describe(err)
			}
			if !resp.Success {
				return fmt.Errorf("failed to print %s: %s", args[0], firstNonEmpty(resp.Detail, resp.Message, "unknown error"))
			}
			status("printer", "%s", firstNonEmpty(resp.Message, "Print job sent"))
			return nil
		},
	}
	cmd.Flags().StringVar(&printPrinter, "printer", "", "printer name (default printer when empty)")
	return cmd
}

func newDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the archive of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, _, err := connect(ctx)
			if err != nil {
				return err
			}
			dir := downloadDir
			if dir == "" {
				dir = cfg.Generation.DownloadDir
			}
			path, err := wizard.SaveArchive(ctx, client, config.ExpandPath(dir))
			if err != nil {
				return describe(err)
			}
			status("download", "Saved %s", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "directory to save the archive in; defaults to generation.download_dir")
	return cmd
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove generated files from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, _, err := connect(ctx)
			if err != nil {
				return err
			}
			if _, err := client.Cleanup(ctx); err != nil {
				return describe(err)
			}
			status("success", "Server files cleaned up")
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
