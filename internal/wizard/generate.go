package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/logger"
	"github.com/yildizm/dlgen/internal/stream"
)

// ErrPrintNotReady is returned when printing is requested before a run produced print output
var ErrPrintNotReady = errors.New("no print job is ready")

// ErrDownloadNotReady is returned when downloading before a run produced an archive
var ErrDownloadNotReady = errors.New("no download is ready")

// Generate submits the uploaded spreadsheet and follows the progress stream
// until it ends, fails, or the run timeout elapses. onUpdate sees a snapshot
// after each applied event. Inputs are disabled for the duration of the run.
func (m *Machine) Generate(ctx context.Context, onUpdate func(Snapshot)) error {
	release, ok := m.running.TryEnter()
	if !ok {
		return ErrGenerationInFlight
	}
	defer release()

	m.mu.Lock()
	if !m.st.Stage.CanGenerate() || m.st.UploadedFile == "" {
		m.mu.Unlock()
		return fmt.Errorf("%w: upload a spreadsheet first", ErrNotReady)
	}
	m.st.clearAfter(levelUpload)
	m.st.Stage = Generating
	m.st.InputsDisabled = true
	m.st.Progress = Progress{Visible: true, Percent: 0, Message: MessageStarting}
	path := m.st.UploadedFile
	runCtx, ticket, cancel := m.begin(ctx)
	m.mu.Unlock()
	defer cancel()

	runCtx, stop := context.WithTimeout(runCtx, m.timeout)
	defer stop()

	start := time.Now()
	m.log.Info("Generation started for %s", filepath.Base(path))
	m.notify(onUpdate)

	final, err := m.run(runCtx, path, ticket, onUpdate)

	m.mu.Lock()
	if m.epoch != ticket {
		// Reset while running; the wizard is already back at its initial state
		m.mu.Unlock()
		return ErrSuperseded
	}
	m.cancel = nil
	m.st.InputsDisabled = false
	err = m.finish(final, err)
	m.mu.Unlock()

	m.log.InfoWithFields("Generation finished", []logger.Field{
		logger.F("stage", m.Snapshot().Stage.String()),
		logger.Duration(time.Since(start)),
		logger.Count(final.Events),
		logger.F("skipped", final.Skipped),
	})
	m.notify(onUpdate)

	if final.PrintReady {
		if _, perr := m.LoadPrinters(ctx); perr != nil {
			m.log.Warn("Failed to load printers: %v", perr)
		}
	}
	return err
}

func (m *Machine) run(ctx context.Context, path string, ticket uint64, onUpdate func(Snapshot)) (stream.State, error) {
	initial := stream.State{Message: MessageStarting}

	body, err := m.backend.GeneratePDFs(ctx, path)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return initial, stream.ErrTimeout
		}
		return initial, err
	}
	defer func() { _ = body.Close() }()

	consumer := stream.NewConsumer(m.log.WithComponent("stream"), func(s stream.State) {
		m.mu.Lock()
		if m.epoch != ticket {
			m.mu.Unlock()
			return
		}
		m.st.Progress = Progress{Visible: true, Percent: s.Progress, Message: s.Message}
		m.reveal(s)
		m.mu.Unlock()
		m.notify(onUpdate)
	})
	return consumer.Consume(ctx, body, initial)
}

// reveal turns on the follow-up controls announced so far. They stay on
// until the wizard is reset, whatever the run does afterwards. Callers hold m.mu.
func (m *Machine) reveal(s stream.State) {
	if s.DownloadReady {
		m.st.DownloadReady = true
	}
	if s.PrintReady {
		m.st.PrintReady = true
		if len(s.Areas) > 0 {
			m.st.Areas = append([]string(nil), s.Areas...)
		}
	}
}

// finish maps the outcome of a run onto the wizard state. Callers hold m.mu.
func (m *Machine) finish(final stream.State, err error) error {
	m.reveal(final)

	var reported *stream.ReportedError
	switch {
	case err == nil && final.Succeeded():
		m.st.Stage = Succeeded
		m.st.Progress = Progress{Visible: true, Percent: final.Progress, Message: final.Message}
		return nil

	case err == nil:
		m.st.Stage = Failed
		m.st.Progress = Progress{Visible: true, Percent: final.Progress, Message: MessageFailed}
		m.st.LastError = "Processing ended without producing any output"
		return errors.New(m.st.LastError)

	case errors.As(err, &reported):
		m.st.Stage = Failed
		m.st.Progress = Progress{Visible: true, Percent: final.Progress, Message: final.Message}
		m.st.LastError = reported.Message
		return err

	case errors.Is(err, stream.ErrTimeout):
		m.st.Stage = Failed
		m.st.Progress = Progress{Visible: true, Percent: 0, Message: MessageFailed}
		m.st.LastError = fmt.Sprintf("Processing timed out after %v seconds", m.timeout.Seconds())
		return err

	default:
		m.st.Stage = Failed
		m.st.Progress = Progress{Visible: true, Percent: 0, Message: MessageFailed}
		m.st.LastError = "Failed to generate PDFs: " + api.Detail(err, err.Error())
		return err
	}
}

func (m *Machine) notify(onUpdate func(Snapshot)) {
	if onUpdate != nil {
		onUpdate(m.Snapshot())
	}
}

// Running reports whether a generation run holds the wizard
func (m *Machine) Running() bool {
	return m.running.Busy()
}

// Download saves the generated archive into dir and returns the written path
func (m *Machine) Download(ctx context.Context, dir string) (string, error) {
	m.mu.Lock()
	ready := m.st.DownloadReady
	m.mu.Unlock()
	if !ready {
		return "", ErrDownloadNotReady
	}
	target, err := SaveArchive(ctx, m.backend, dir)
	if err != nil {
		return "", err
	}
	m.log.Info("Downloaded %s", target)
	return target, nil
}

// Archiver streams the generated archive
type Archiver interface {
	DownloadZip(ctx context.Context, w io.Writer) (*api.Download, error)
}

// SaveArchive downloads the archive into dir under the server-chosen name.
// The file only appears under its final name once it is complete.
func SaveArchive(ctx context.Context, a Archiver, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dlgen-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	d, err := a.DownloadZip(ctx, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, filepath.Base(d.Filename))
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to save download: %w", err)
	}
	return target, nil
}

// LoadPrinters fetches the printer list into the snapshot
func (m *Machine) LoadPrinters(ctx context.Context) ([]api.Printer, error) {
	printers, err := m.backend.Printers(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.st.Printers = append([]api.Printer(nil), printers...)
	m.mu.Unlock()
	return printers, nil
}

// Print sends the documents of one area to a printer. An empty printer uses the default.
func (m *Machine) Print(ctx context.Context, area, printer string) (string, error) {
	m.mu.Lock()
	ready := m.st.PrintReady
	m.mu.Unlock()
	if !ready {
		return "", ErrPrintNotReady
	}
	resp, err := m.backend.PrintFiles(ctx, area, printer)
	if err != nil {
		return "", fmt.Errorf("failed to print %s: %s", area, api.Detail(err, err.Error()))
	}
	if !resp.Success {
		return "", fmt.Errorf("failed to print %s: %s", area, firstNonEmpty(resp.Detail, resp.Message, "unknown error"))
	}
	return firstNonEmpty(resp.Message, "Print job sent"), nil
}

// Cleanup clears server-side artifacts and returns the wizard to
// FormatSelected with the output format preserved.
func (m *Machine) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guardInputs(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	if _, err := m.backend.Cleanup(ctx); err != nil {
		return fmt.Errorf("cleanup failed: %s", api.Detail(err, err.Error()))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidate()
	format := m.st.OutputFormat
	m.st.clearAfter(levelFormat)
	if format == "" {
		m.st.clearAfter(-1)
		m.st.Stage = NoFormat
		return nil
	}
	m.st.Stage = FormatSelected
	return nil
}
