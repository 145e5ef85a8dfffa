// Package wizard drives the dependent selection flow that ends in a
// generation run: output format, mode, folder, document type, template,
// spreadsheet upload, then generation and its follow-up actions.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/guard"
	"github.com/yildizm/dlgen/internal/logger"
)

var (
	// ErrInputsDisabled is returned for any selection made while a run is in flight
	ErrInputsDisabled = errors.New("inputs are disabled while generation is running")

	// ErrGenerationInFlight is returned when a second run is submitted
	ErrGenerationInFlight = errors.New("a generation run is already in progress")

	// ErrNotReady is returned when an upstream selection has not resolved yet
	ErrNotReady = errors.New("previous step is not complete")

	// ErrInvalidOption is returned for a value not offered by the current options
	ErrInvalidOption = errors.New("value is not one of the available options")

	// ErrSuperseded is returned when a later transition replaced this one mid-flight
	ErrSuperseded = errors.New("selection was superseded by a newer one")

	// ErrTemplateUnavailable is returned when the server has no placeholders for a template
	ErrTemplateUnavailable = errors.New("template is not available")
)

// Dropdown prompts
const (
	PromptFormat   = "Select Output Format"
	PromptMode     = "Select Mode"
	PromptFolder   = "Select Folder"
	PromptDocType  = "Select DL Type"
	PromptTemplate = "Select Template"
)

// Status texts
const (
	MessageStarting = "Starting processing..."
	MessageFailed   = "Processing failed."
)

// Formats and Modes are the fixed option sets
var (
	Formats = []string{api.FormatZip, api.FormatPrint}
	Modes   = []string{api.ModeDLOnly, api.ModeDLTransmittal, api.ModeTransmittalOnly}
)

// Backend is the subset of the API client the wizard drives
type Backend interface {
	SetOutputFormat(ctx context.Context, format string) (*api.FormatResponse, error)
	SetMode(ctx context.Context, mode string) (*api.ModeResponse, error)
	Folders(ctx context.Context) ([]string, error)
	DLTypes(ctx context.Context, folder string) ([]string, error)
	Templates(ctx context.Context, folder string) (*api.TemplatesResponse, error)
	Placeholders(ctx context.Context, req api.PlaceholderRequest) (*api.PlaceholdersResponse, error)
	TransmittalPlaceholders(ctx context.Context, folder string) (*api.TransmittalPlaceholdersResponse, error)
	UploadExcel(ctx context.Context, path string) (*api.UploadResponse, error)
	GeneratePDFs(ctx context.Context, path string) (io.ReadCloser, error)
	DownloadZip(ctx context.Context, w io.Writer) (*api.Download, error)
	Printers(ctx context.Context) ([]api.Printer, error)
	PrintFiles(ctx context.Context, area, printer string) (*api.StatusResponse, error)
	Cleanup(ctx context.Context) (*api.StatusResponse, error)
}

// Progress is the visible state of a run
type Progress struct {
	Visible bool    `json:"visible"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Snapshot is a copy of the wizard state, safe to render from
type Snapshot struct {
	Stage Stage `json:"stage"`

	OutputFormat string `json:"output_format,omitempty"`
	Mode         string `json:"mode,omitempty"`
	Folder       string `json:"folder,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
	Template     string `json:"template,omitempty"`
	UploadedFile string `json:"uploaded_file,omitempty"`

	// Folders is the folder list loaded at sign-in
	Folders []string `json:"folders,omitempty"`

	FormatOptions   Options `json:"format_options"`
	ModeOptions     Options `json:"mode_options"`
	FolderOptions   Options `json:"folder_options"`
	DocTypeOptions  Options `json:"doc_type_options"`
	TemplateOptions Options `json:"template_options"`

	Banner         string             `json:"banner,omitempty"`
	ContentStatus  string             `json:"content_status,omitempty"`
	TemplateStatus string             `json:"template_status,omitempty"`
	Placeholders   []PlaceholderGroup `json:"placeholders,omitempty"`

	Rows    []api.Row `json:"rows,omitempty"`
	Preview Preview   `json:"preview"`

	Progress       Progress      `json:"progress"`
	InputsDisabled bool          `json:"inputs_disabled"`
	DownloadReady  bool          `json:"download_ready"`
	PrintReady     bool          `json:"print_ready"`
	Areas          []string      `json:"areas,omitempty"`
	Printers       []api.Printer `json:"printers,omitempty"`
	LastError      string        `json:"last_error,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.FormatOptions = newOptions(s.FormatOptions.Prompt, s.FormatOptions.Values)
	c.ModeOptions = newOptions(s.ModeOptions.Prompt, s.ModeOptions.Values)
	c.FolderOptions = newOptions(s.FolderOptions.Prompt, s.FolderOptions.Values)
	c.DocTypeOptions = newOptions(s.DocTypeOptions.Prompt, s.DocTypeOptions.Values)
	c.TemplateOptions = newOptions(s.TemplateOptions.Prompt, s.TemplateOptions.Values)
	c.Placeholders = make([]PlaceholderGroup, len(s.Placeholders))
	for i, g := range s.Placeholders {
		c.Placeholders[i] = PlaceholderGroup{Title: g.Title, Note: g.Note, Names: append([]string(nil), g.Names...)}
	}
	c.Rows = append([]api.Row(nil), s.Rows...)
	c.Preview.Columns = append([]string(nil), s.Preview.Columns...)
	c.Preview.Rows = append([][]string(nil), s.Preview.Rows...)
	c.Folders = append([]string(nil), s.Folders...)
	c.Areas = append([]string(nil), s.Areas...)
	c.Printers = append([]api.Printer(nil), s.Printers...)
	return c
}

// levels of dependent state, in selection order
const (
	levelFormat = iota
	levelMode
	levelFolder
	levelDocType
	levelTemplate
	levelUpload
	levelRun
)

// clearAfter resets every piece of state that depends on level
func (s *Snapshot) clearAfter(level int) {
	if level < levelFormat {
		s.OutputFormat = ""
		s.ModeOptions = Options{}
	}
	if level < levelMode {
		s.Mode = ""
		s.Banner = ""
		s.FolderOptions = Options{}
	}
	if level < levelFolder {
		s.Folder = ""
		s.DocTypeOptions = Options{}
	}
	if level < levelDocType {
		s.DocType = ""
		s.TemplateOptions = Options{}
		s.ContentStatus = ""
	}
	if level < levelTemplate {
		s.Template = ""
		s.TemplateStatus = ""
		s.Placeholders = nil
	}
	if level < levelUpload {
		s.UploadedFile = ""
		s.Rows = nil
		s.Preview = Preview{}
	}
	if level < levelRun {
		s.Progress = Progress{}
		s.DownloadReady = false
		s.PrintReady = false
		s.Areas = nil
		s.Printers = nil
	}
	s.LastError = ""
}

// Config configures a Machine
type Config struct {
	// Timeout bounds one generation run from submission
	Timeout time.Duration

	// Preflight checks a spreadsheet locally before it is uploaded
	Preflight func(path string) error

	Logger *logger.Logger
}

// Machine is the wizard state machine. All methods are safe for concurrent use.
type Machine struct {
	backend   Backend
	timeout   time.Duration
	preflight func(string) error
	log       *logger.Logger
	running   *guard.Guard

	mu     sync.Mutex
	st     Snapshot
	epoch  uint64
	cancel context.CancelFunc
}

// New creates a wizard at NoFormat
func New(backend Backend, cfg Config) *Machine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Quiet("wizard")
	}
	m := &Machine{
		backend:   backend,
		timeout:   cfg.Timeout,
		preflight: cfg.Preflight,
		log:       cfg.Logger,
		running:   guard.New(),
	}
	m.st = initialSnapshot()
	return m
}

func initialSnapshot() Snapshot {
	return Snapshot{Stage: NoFormat, FormatOptions: newOptions(PromptFormat, Formats)}
}

// Snapshot returns a copy of the current state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.clone()
}

// Timeout is the wall-clock budget of one run
func (m *Machine) Timeout() time.Duration {
	return m.timeout
}

// begin invalidates any in-flight transition and returns a context and
// ticket for a new one. Callers hold m.mu.
func (m *Machine) begin(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	m.invalidate()
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	return ctx, m.epoch, cancel
}

// invalidate cancels the in-flight transition, if any. Callers hold m.mu.
func (m *Machine) invalidate() {
	m.epoch++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// settle re-acquires the lock after a fetch and reports whether ticket is still current
func (m *Machine) settle(ticket uint64) bool {
	m.mu.Lock()
	if m.epoch != ticket {
		m.mu.Unlock()
		return false
	}
	m.cancel = nil
	return true
}

func (m *Machine) guardInputs() error {
	if m.st.InputsDisabled {
		return ErrInputsDisabled
	}
	return nil
}

// fail records a fetch error while the lock is held and returns it.
// Cancellation caused by a newer transition is reported as ErrSuperseded.
func (m *Machine) fail(step string, err error) error {
	if errors.Is(err, context.Canceled) {
		return ErrSuperseded
	}
	m.st.LastError = fmt.Sprintf("%s: %s", step, api.Detail(err, err.Error()))
	m.log.Warn("%s failed: %v", step, err)
	return err
}

// SelectFormat chooses zip or print output. An empty format clears the wizard.
func (m *Machine) SelectFormat(ctx context.Context, format string) error {
	m.mu.Lock()
	if err := m.guardInputs(); err != nil {
		m.mu.Unlock()
		return err
	}
	if format == "" {
		m.invalidate()
		m.st.clearAfter(-1)
		m.st.Stage = NoFormat
		m.mu.Unlock()
		return nil
	}
	if !m.st.FormatOptions.Contains(format) {
		m.mu.Unlock()
		return fmt.Errorf("%w: output format %q", ErrInvalidOption, format)
	}
	m.st.clearAfter(-1)
	m.st.Stage = NoFormat
	ctx, ticket, cancel := m.begin(ctx)
	m.mu.Unlock()
	defer cancel()

	_, err := m.backend.SetOutputFormat(ctx, format)

	if !m.settle(ticket) {
		return ErrSuperseded
	}
	defer m.mu.Unlock()
	if err != nil {
		return m.fail("Failed to set output format", err)
	}
	m.st.OutputFormat = format
	m.st.ModeOptions = newOptions(PromptMode, Modes)
	m.st.Stage = FormatSelected
	m.log.Debug("Output format set to %s", format)
	return nil
}

// SelectMode chooses the processing mode and loads the folder list.
// An empty mode returns to FormatSelected.
func (m *Machine) SelectMode(ctx context.Context, mode string) error {
	m.mu.Lock()
	if err := m.guardInputs(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.st.OutputFormat == "" {
		m.mu.Unlock()
		return fmt.Errorf("%w: choose an output format first", ErrNotReady)
	}
	if mode == "" {
		m.invalidate()
		m.st.clearAfter(levelFormat)
		m.st.Stage = FormatSelected
		m.mu.Unlock()
		return nil
	}
	if !m.st.ModeOptions.Contains(mode) {
		m.mu.Unlock()
		return fmt.Errorf("%w: mode %q", ErrInvalidOption, mode)
	}
	m.st.clearAfter(levelFormat)
	m.st.Stage = FormatSelected
	ctx, ticket, cancel := m.begin(ctx)
	m.mu.Unlock()
	defer cancel()

	modeResp, err := m.backend.SetMode(ctx, mode)
	var folders []string
	if err == nil {
		folders, err = m.backend.Folders(ctx)
	}

	if !m.settle(ticket) {
		return ErrSuperseded
	}
	defer m.mu.Unlock()
	if err != nil {
		return m.fail("Failed to set mode", err)
	}
	m.st.Mode = mode
	m.st.Banner = modeResp.TemplateStatus.TransmittalTemplate
	m.st.Folders = append([]string(nil), folders...)
	m.st.FolderOptions = newOptions(PromptFolder, folders)
	m.st.Stage = ModeSelected
	return nil
}

// LoadFolders refreshes the folder list without changing the selection.
// It is the initial data load after sign-in.
func (m *Machine) LoadFolders(ctx context.Context) ([]string, error) {
	folders, err := m.backend.Folders(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.Folders = append([]string(nil), folders...)
	if m.st.Stage >= ModeSelected && m.st.Folder == "" && !m.st.InputsDisabled {
		m.st.FolderOptions = newOptions(PromptFolder, folders)
	}
	return folders, nil
}

// SelectFolder chooses a client folder. In Transmittal Only mode this loads
// the transmittal placeholders and unlocks upload; otherwise it loads document types.
func (m *Machine) SelectFolder(ctx context.Context, folder string) error {
	m.mu.Lock()
	if err := m.guardInputs(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.st.Mode == "" || m.st.Stage < ModeSelected {
		m.mu.Unlock()
		return fmt.Errorf("%w: choose a mode first", ErrNotReady)
	}
	if folder == "" {
		m.invalidate()
		m.st.clearAfter(levelMode)
		m.st.Stage = ModeSelected
		m.mu.Unlock()
		return nil
	}
	if !m.st.FolderOptions.Contains(folder) {
		m.mu.Unlock()
		return fmt.Errorf("%w: folder %q", ErrInvalidOption, folder)
	}
	m.st.clearAfter(levelMode)
	m.st.Folder = folder
	m.st.Stage = ModeSelected
	mode := m.st.Mode
	ctx, ticket, cancel := m.begin(ctx)
	m.mu.Unlock()
	defer cancel()

	if mode == api.ModeTransmittalOnly {
		resp, err := m.backend.TransmittalPlaceholders(ctx, folder)
		if !m.settle(ticket) {
			return ErrSuperseded
		}
		defer m.mu.Unlock()
		if err != nil {
			return m.fail("Failed to fetch transmittal placeholders", err)
		}
		m.st.TemplateStatus = firstNonEmpty(resp.Message, resp.Detail)
		m.st.Placeholders = []PlaceholderGroup{{
			Title: "Transmittal placeholders",
			Names: DisplayPlaceholders(resp.Placeholders),
		}}
		m.st.Stage = TransmittalFolderSelected
		return nil
	}

	types, err := m.backend.DLTypes(ctx, folder)
	if !m.settle(ticket) {
		return ErrSuperseded
	}
	defer m.mu.Unlock()
	if err != nil {
		return m.fail("Failed to fetch DL types", err)
	}
	m.st.DocTypeOptions = newOptions(PromptDocType, types)
	m.st.Stage = FolderSelected
	return nil
}

// SelectDocType chooses a document type and loads the folder's templates
func (m *Machine) SelectDocType(ctx context.Context, docType string) error {
	m.mu.Lock()
	if err := m.guardInputs(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.st.Stage < FolderSelected || m.st.Stage == TransmittalFolderSelected {
		m.mu.Unlock()
		return fmt.Errorf("%w: choose a folder first", ErrNotReady)
	}
	if docType == "" {
		m.invalidate()
		m.st.clearAfter(levelFolder)
		m.st.Stage = FolderSelected
		m.mu.Unlock()
		return nil
	}
	if !m.st.DocTypeOptions.Contains(docType) {
		m.mu.Unlock()
		return fmt.Errorf("%w: DL type %q", ErrInvalidOption, docType)
	}
	m.st.clearAfter(levelFolder)
	m.st.DocType = docType
	m.st.Stage = FolderSelected
	folder := m.st.Folder
	ctx, ticket, cancel := m.begin(ctx)
	m.mu.Unlock()
	defer cancel()

	resp, err := m.backend.Templates(ctx, folder)

	if !m.settle(ticket) {
		return ErrSuperseded
	}
	defer m.mu.Unlock()
	if err != nil {
		return m.fail("Failed to fetch templates", err)
	}
	m.st.TemplateOptions = newOptions(PromptTemplate, resp.Templates)
	m.st.ContentStatus = firstNonEmpty(resp.Message, resp.Detail)
	m.st.Stage = DocTypeSelected
	return nil
}

// SelectTemplate chooses a template and loads its placeholders. In
// DL w/ Transmittal mode the transmittal placeholders are appended as a second group.
func (m *Machine) SelectTemplate(ctx context.Context, template string) error {
	m.mu.Lock()
	if err := m.guardInputs(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.st.Stage < DocTypeSelected || m.st.Stage == TransmittalFolderSelected {
		m.mu.Unlock()
		return fmt.Errorf("%w: choose a DL type first", ErrNotReady)
	}
	if template == "" {
		m.invalidate()
		m.st.clearAfter(levelDocType)
		m.st.Stage = DocTypeSelected
		m.mu.Unlock()
		return nil
	}
	if !m.st.TemplateOptions.Contains(template) {
		m.mu.Unlock()
		return fmt.Errorf("%w: template %q", ErrInvalidOption, template)
	}
	m.st.clearAfter(levelDocType)
	m.st.Template = template
	m.st.Stage = DocTypeSelected
	req := api.PlaceholderRequest{Folder: m.st.Folder, DLType: m.st.DocType, Template: template}
	combined := m.st.Mode == api.ModeDLTransmittal
	ctx, ticket, cancel := m.begin(ctx)
	m.mu.Unlock()
	defer cancel()

	resp, err := m.backend.Placeholders(ctx, req)
	var transmittal *api.TransmittalPlaceholdersResponse
	if err == nil && resp.Message != "" && combined {
		transmittal, err = m.backend.TransmittalPlaceholders(ctx, req.Folder)
	}

	if !m.settle(ticket) {
		return ErrSuperseded
	}
	defer m.mu.Unlock()
	if err != nil {
		return m.fail("Failed to fetch placeholders", err)
	}
	if resp.Message == "" {
		m.st.TemplateStatus = resp.Detail
		return fmt.Errorf("%w: %s", ErrTemplateUnavailable, resp.Detail)
	}

	m.st.TemplateStatus = resp.Message
	groups := []PlaceholderGroup{{
		Title: "Template placeholders",
		Names: DisplayPlaceholders(resp.Placeholders),
	}}
	if transmittal != nil {
		group := PlaceholderGroup{
			Title: "Transmittal placeholders",
			Names: DisplayPlaceholders(transmittal.Placeholders),
		}
		if resp.TemplateCombined {
			group.Note = "combined into one template"
		}
		groups = append(groups, group)
	}
	m.st.Placeholders = groups
	m.st.Stage = TemplateSelected
	return nil
}

// Upload checks a spreadsheet locally, sends it for parsing and previews the rows
func (m *Machine) Upload(ctx context.Context, path string) error {
	m.mu.Lock()
	if err := m.guardInputs(); err != nil {
		m.mu.Unlock()
		return err
	}
	if !m.st.Stage.CanUpload() {
		m.mu.Unlock()
		return fmt.Errorf("%w: choose a template first", ErrNotReady)
	}
	m.st.clearAfter(levelTemplate)
	m.st.Stage = m.uploadBase()
	ctx, ticket, cancel := m.begin(ctx)
	m.mu.Unlock()
	defer cancel()

	var resp *api.UploadResponse
	var err error
	if m.preflight != nil {
		err = m.preflight(path)
	}
	if err == nil {
		resp, err = m.backend.UploadExcel(ctx, path)
	}

	if !m.settle(ticket) {
		return ErrSuperseded
	}
	defer m.mu.Unlock()
	if err != nil {
		return m.fail("Failed to upload file", err)
	}
	if resp.Error != "" || resp.Detail != "" {
		msg := firstNonEmpty(resp.Error, resp.Detail)
		m.st.LastError = msg
		return errors.New(msg)
	}

	m.st.UploadedFile = path
	m.st.Rows = resp.Data
	m.st.Preview = BuildPreview(resp.Data)
	m.st.Stage = FileUploaded
	m.log.Info("Uploaded %s with %d rows", path, len(resp.Data))
	return nil
}

// uploadBase is the stage an upload falls back to. Callers hold m.mu.
func (m *Machine) uploadBase() Stage {
	if m.st.Mode == api.ModeTransmittalOnly {
		return TransmittalFolderSelected
	}
	return TemplateSelected
}

// Reset returns the wizard to NoFormat, cancelling anything in flight
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidate()
	m.st = initialSnapshot()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
