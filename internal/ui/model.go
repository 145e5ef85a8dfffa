package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/app"
	"github.com/yildizm/dlgen/internal/audit"
	"github.com/yildizm/dlgen/internal/config"
	"github.com/yildizm/dlgen/internal/logger"
	"github.com/yildizm/dlgen/internal/session"
	"github.com/yildizm/dlgen/internal/ui/components"
	"github.com/yildizm/dlgen/internal/wizard"
)

// New creates the interactive model. The stored session is probed on Init.
func New(ctx context.Context, a *app.App, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = logger.Quiet("ui")
	}

	input := textinput.New()
	input.CharLimit = 2048
	email := textinput.New()
	email.Placeholder = "name@example.com"
	email.CharLimit = 254

	m := &Model{
		ctx:        ctx,
		app:        a,
		opts:       opts,
		log:        opts.Logger,
		styles:     GetStyles(),
		spinner:    components.NewSpinner(),
		progress:   components.NewProgressBar(40),
		input:      input,
		emailInput: email,
		userList:   components.NewUserList(nil, 80, 14),
		auditList:  components.NewAuditList(nil, 80, 14),
		screen:     ScreenLogin,
		busy:       "Checking session...",
	}
	m.userList.Focused = true
	m.auditList.Focused = true
	m.openInput(purposeCode, "Authorization code or redirect URL", "")
	return m
}

// Init probes the stored session and starts the animation clock
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick(), startCmd(m.ctx, m.app, ""))
}

// Update handles messages and navigation. The screen is re-derived after
// every message because a 401 on any request signs the user out.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.sync()
	model, cmd := m.update(msg)
	m.sync()
	return model, cmd
}

func (m *Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tickMsg:
		return m.handleTick()
	case sessionMsg:
		return m.handleSession(msg)
	case logoutMsg:
		m.busy = ""
		return m, nil
	case stepMsg:
		m.busy = ""
		m.report(msg.err)
		m.clampFocus(m.app.Wizard.Snapshot())
		return m, nil
	case progressMsg:
		m.progress.SetProgress(msg.snap.Progress.Percent, msg.snap.Progress.Message)
		return m, waitForRun(m.updates, m.runDone)
	case runDoneMsg:
		return m.handleRunDone(msg)
	case resultMsg:
		m.busy = ""
		if msg.err != nil {
			m.report(msg.err)
		} else if msg.text != "" {
			m.app.Notify(app.NoticeSuccess, msg.text)
		}
		m.refreshUserList()
		m.refreshAuditList()
		m.clampFocus(m.app.Wizard.Snapshot())
		return m, nil
	case usersMsg:
		m.busy = ""
		m.report(msg.err)
		m.refreshUserList()
		return m, nil
	case formMsg:
		m.busy = ""
		m.report(msg.err)
		return m, nil
	case auditMsg:
		m.busy = ""
		m.report(msg.err)
		m.refreshAuditList()
		return m, nil
	}

	return m, nil
}

// report shows err as a notice. Superseded transitions are silent.
func (m *Model) report(err error) {
	if err == nil || errors.Is(err, wizard.ErrSuperseded) {
		return
	}
	m.log.Debug("Request failed: %v", err)
	m.app.Fail(err)
}

// resolveScreen derives the screen from the application state
func (m *Model) resolveScreen() Screen {
	if m.app.LoginVisible() {
		return ScreenLogin
	}
	switch m.app.View() {
	case app.ViewUsers:
		if m.app.Users.Form() != nil {
			return ScreenUserForm
		}
		return ScreenUsers
	case app.ViewAudit:
		if m.app.Audit.Detail() != nil {
			return ScreenAuditDetail
		}
		return ScreenAudit
	default:
		return ScreenGenerator
	}
}

// sync follows screen changes made outside the key handlers, such as a
// session expiring while a request was outstanding.
func (m *Model) sync() {
	next := m.resolveScreen()
	if next == m.screen {
		return
	}
	m.screen = next
	m.closePicker()
	m.confirmEmail = ""

	switch next {
	case ScreenLogin:
		m.focus = fieldFormat
		m.openInput(purposeCode, "Authorization code or redirect URL", "")
	case ScreenUserForm:
		m.closeInput()
		m.formCursor = 0
		m.emailInput.Reset()
		if form := m.app.Users.Form(); form != nil {
			m.emailInput.SetValue(form.Email)
			if !form.EmailLocked() {
				m.formCursor = 0
				m.emailInput.Focus()
			} else {
				m.formCursor = 1
				m.emailInput.Blur()
			}
		}
	default:
		if m.typing == purposeCode {
			m.closeInput()
		}
	}
}

func (m *Model) openInput(p purpose, placeholder, value string) {
	m.typing = p
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) closeInput() {
	m.typing = purposeNone
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) openPicker(p purpose, title string, values []string, current string) {
	m.picking = p
	m.picker = components.NewChoiceList(title, values, current, 60, 12)
}

func (m *Model) closePicker() {
	m.picking = purposeNone
	m.picker = nil
	m.area = ""
}

// handleWindowResize handles window resize events
func (m *Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	width := min(max(msg.Width-8, 30), 100)
	m.userList.Width = width
	m.auditList.Width = width
	m.progress.Width = min(max(msg.Width-30, 10), 60)
	return m, nil
}

// handleTick advances animations and lets expired notices disappear
func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	m.tick++
	m.spinner.Tick()
	return m, tick()
}

// handleQuit handles quit commands
func (m *Model) handleQuit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) handleSession(msg sessionMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if msg.err != nil {
		if !errors.Is(msg.err, session.ErrExchangeInFlight) {
			m.log.Debug("Session not established: %v", msg.err)
		}
		return m, nil
	}
	m.log.Info("Signed in as %s (%s)", msg.user.Username, msg.user.Access)
	m.sync()
	return m, nil
}

// handleKeyPress routes keys to whatever currently owns the keyboard
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.handleQuit()
	}
	switch {
	case m.typing != purposeNone:
		return m.handleInputKey(msg)
	case m.picking != purposeNone:
		return m.handlePickerKey(msg)
	case m.confirmEmail != "":
		return m.handleConfirmKey(msg)
	case m.screen == ScreenUserForm:
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "q":
		return m.handleQuit()
	case "x":
		m.app.DismissNotice()
		return m, nil
	case "1":
		return m.switchView(app.ViewGenerator)
	case "2":
		return m.switchView(app.ViewUsers)
	case "3":
		return m.switchView(app.ViewAudit)
	case "L":
		if m.app.Wizard.Running() {
			return m, nil
		}
		m.busy = "Signing out..."
		return m, logoutCmd(m.ctx, m.app)
	}

	switch m.screen {
	case ScreenGenerator:
		return m.handleGeneratorKey(msg)
	case ScreenUsers:
		return m.handleUsersKey(msg)
	case ScreenAudit:
		return m.handleAuditKey(msg)
	case ScreenAuditDetail:
		return m.handleAuditDetailKey(msg)
	}
	return m, nil
}

func (m *Model) switchView(v app.View) (tea.Model, tea.Cmd) {
	if err := m.app.ShowView(v); err != nil {
		return m, nil
	}
	m.sync()
	switch v {
	case app.ViewUsers:
		m.busy = "Loading users..."
		return m, loadUsersCmd(m.ctx, m.app)
	case app.ViewAudit:
		m.busy = "Loading audit trail..."
		return m, loadAuditCmd(m.ctx, m.app, 1)
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.typing == purposeCode {
			return m.handleQuit()
		}
		m.closeInput()
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		ctx := m.ctx
		switch m.typing {
		case purposeCode:
			code := session.ParseCode(value)
			if code == "" || m.busy != "" {
				return m, nil
			}
			m.input.Reset()
			m.busy = "Signing in..."
			return m, startCmd(ctx, m.app, code)

		case purposePath:
			m.closeInput()
			if value == "" {
				return m, nil
			}
			path := config.ExpandPath(value)
			w := m.app.Wizard
			m.busy = "Uploading " + filepath.Base(path) + "..."
			return m, stepCmd(func() error { return w.Upload(ctx, path) })

		default:
			m.typing = purposeNone
			m.input.Blur()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.typing == purposeSearch {
		m.userQuery = m.input.Value()
		m.refreshUserList()
	}
	return m, cmd
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.closePicker()
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter", " ":
		item := m.picker.GetSelectedItem()
		if item == nil {
			m.closePicker()
			return m, nil
		}
		return m.choose(item.Data.(string))
	}
	return m, nil
}

// choose applies the picked value. The dropdown prompt stands for no selection.
func (m *Model) choose(value string) (tea.Model, tea.Cmd) {
	p := m.picking
	area := m.area
	m.closePicker()

	ctx := m.ctx
	w := m.app.Wizard
	if isPrompt(value) {
		value = ""
	}

	switch p {
	case purposeFormat:
		m.busy = "Setting output format..."
		return m, stepCmd(func() error { return w.SelectFormat(ctx, value) })
	case purposeMode:
		m.busy = "Loading folders..."
		return m, stepCmd(func() error { return w.SelectMode(ctx, value) })
	case purposeFolder:
		m.busy = "Loading folder..."
		return m, stepCmd(func() error { return w.SelectFolder(ctx, value) })
	case purposeDocType:
		m.busy = "Loading templates..."
		return m, stepCmd(func() error { return w.SelectDocType(ctx, value) })
	case purposeTemplate:
		m.busy = "Loading placeholders..."
		return m, stepCmd(func() error { return w.SelectTemplate(ctx, value) })
	case purposeArea:
		if value == "" {
			return m, nil
		}
		return m.pickPrinter(value)
	case purposePrinter:
		m.busy = "Sending " + area + " to the printer..."
		return m, printCmd(ctx, w, area, value)
	}
	return m, nil
}

func isPrompt(value string) bool {
	switch value {
	case wizard.PromptFormat, wizard.PromptMode, wizard.PromptFolder, wizard.PromptDocType, wizard.PromptTemplate:
		return true
	}
	return false
}

func (m *Model) pickPrinter(area string) (tea.Model, tea.Cmd) {
	snap := m.app.Wizard.Snapshot()
	names := []string{defaultPrinter}
	current := defaultPrinter
	for _, p := range snap.Printers {
		names = append(names, p.Name)
		if p.IsDefault {
			current = p.Name
		}
	}
	m.openPicker(purposePrinter, "Printer for "+area, names, current)
	m.area = area
	return m, nil
}

const defaultPrinter = "(system default)"

// visibleFields lists the generator rows that are currently shown
func visibleFields(s wizard.Snapshot) []field {
	fields := []field{fieldFormat}
	if s.ModeOptions.Items() != nil {
		fields = append(fields, fieldMode)
	}
	if s.FolderOptions.Items() != nil {
		fields = append(fields, fieldFolder)
	}
	if s.DocTypeOptions.Items() != nil {
		fields = append(fields, fieldDocType)
	}
	if s.TemplateOptions.Items() != nil {
		fields = append(fields, fieldTemplate)
	}
	if s.Stage.CanUpload() || s.Stage == wizard.Generating {
		fields = append(fields, fieldFile)
	}
	if s.Stage.CanGenerate() || s.Stage == wizard.Generating {
		fields = append(fields, fieldGenerate)
	}
	return fields
}

func (m *Model) clampFocus(s wizard.Snapshot) {
	fields := visibleFields(s)
	for _, f := range fields {
		if f == m.focus {
			return
		}
	}
	m.focus = fields[len(fields)-1]
}

func (m *Model) moveFocus(s wizard.Snapshot, delta int) {
	fields := visibleFields(s)
	idx := 0
	for i, f := range fields {
		if f == m.focus {
			idx = i
		}
	}
	idx = min(max(idx+delta, 0), len(fields)-1)
	m.focus = fields[idx]
}

func (m *Model) handleGeneratorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.app.Wizard.Snapshot()
	ctx := m.ctx
	w := m.app.Wizard

	switch msg.String() {
	case "up", "k", "shift+tab":
		m.moveFocus(snap, -1)
	case "down", "j", "tab":
		m.moveFocus(snap, 1)
	case "enter", " ":
		if snap.InputsDisabled || m.busy != "" {
			return m, nil
		}
		return m.activate(snap)
	case "d":
		if !snap.DownloadReady || snap.InputsDisabled {
			return m, nil
		}
		m.busy = "Downloading..."
		return m, downloadCmd(ctx, w, m.opts.DownloadDir, m.opts.CleanupAfterDownload)
	case "p":
		if !snap.PrintReady || snap.InputsDisabled {
			return m, nil
		}
		if len(snap.Areas) == 1 {
			return m.pickPrinter(snap.Areas[0])
		}
		m.openPicker(purposeArea, "Area to print", snap.Areas, "")
	case "c":
		if snap.InputsDisabled {
			return m, nil
		}
		m.busy = "Cleaning up..."
		return m, cleanupCmd(ctx, w)
	case "r":
		if snap.InputsDisabled || m.busy != "" {
			return m, nil
		}
		w.Reset()
		m.focus = fieldFormat
	}
	return m, nil
}

// activate opens the control behind the focused row
func (m *Model) activate(s wizard.Snapshot) (tea.Model, tea.Cmd) {
	switch m.focus {
	case fieldFormat:
		m.openPicker(purposeFormat, wizard.PromptFormat, s.FormatOptions.Items(), s.OutputFormat)
	case fieldMode:
		m.openPicker(purposeMode, wizard.PromptMode, s.ModeOptions.Items(), s.Mode)
	case fieldFolder:
		m.openPicker(purposeFolder, wizard.PromptFolder, s.FolderOptions.Items(), s.Folder)
	case fieldDocType:
		m.openPicker(purposeDocType, wizard.PromptDocType, s.DocTypeOptions.Items(), s.DocType)
	case fieldTemplate:
		m.openPicker(purposeTemplate, wizard.PromptTemplate, s.TemplateOptions.Items(), s.Template)
	case fieldFile:
		m.openInput(purposePath, "Path to an .xlsx or .xlsm file", s.UploadedFile)
	case fieldGenerate:
		if !s.Stage.CanGenerate() {
			return m, nil
		}
		m.updates = make(chan wizard.Snapshot, 16)
		m.runDone = make(chan error, 1)
		m.progress = components.NewProgressBar(m.progress.Width)
		m.progress.SetProgress(0, wizard.MessageStarting)
		return m, generateCmd(m.ctx, m.app.Wizard, m.updates, m.runDone)
	}
	return m, nil
}

func (m *Model) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	snap := m.app.Wizard.Snapshot()
	m.progress.SetProgress(snap.Progress.Percent, snap.Progress.Message)
	m.progress.Failed = snap.Stage == wizard.Failed
	m.clampFocus(snap)
	if msg.err != nil {
		if !errors.Is(msg.err, wizard.ErrSuperseded) && snap.LastError != "" {
			m.app.Notify(app.NoticeError, snap.LastError)
		}
		return m, nil
	}
	switch {
	case snap.DownloadReady:
		m.app.Notify(app.NoticeSuccess, "Documents ready. Press d to download.")
	case snap.PrintReady:
		m.app.Notify(app.NoticeSuccess, "Documents ready. Press p to print.")
	}
	return m, nil
}

func (m *Model) refreshUserList() {
	m.userList.SetItems(components.UserItems(m.app.Users.Filter(m.userQuery, m.accessFilter)))
}

func (m *Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.userList.MoveUp()
	case "down", "j":
		m.userList.MoveDown()
	case "/":
		m.openInput(purposeSearch, "Search email or folder", m.userQuery)
	case "f":
		switch m.accessFilter {
		case "":
			m.accessFilter = api.AccessAdmin
		case api.AccessAdmin:
			m.accessFilter = api.AccessUser
		default:
			m.accessFilter = ""
		}
		m.refreshUserList()
	case "n":
		m.busy = "Loading folders..."
		return m, openFormCmd(m.ctx, m.app, nil)
	case "e", "enter":
		if item := m.userList.GetSelectedItem(); item != nil {
			u := item.Data.(api.User)
			m.busy = "Loading folders..."
			return m, openFormCmd(m.ctx, m.app, &u)
		}
	case "D":
		if item := m.userList.GetSelectedItem(); item != nil {
			m.confirmEmail = item.ID
		}
	case "R":
		m.busy = "Loading users..."
		return m, loadUsersCmd(m.ctx, m.app)
	}
	return m, nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	email := m.confirmEmail
	m.confirmEmail = ""
	if msg.String() != "y" && msg.String() != "Y" {
		return m, nil
	}
	m.busy = "Deleting " + email + "..."
	return m, deleteUserCmd(m.ctx, m.app, email)
}

// form rows: 0 email, 1 access, then one row per folder
func (m *Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	form := m.app.Users.Form()
	if form == nil {
		return m, nil
	}
	rows := 2 + len(form.Folders)
	minRow := 0
	if form.EmailLocked() {
		minRow = 1
	}

	switch msg.String() {
	case "esc":
		m.app.Users.Close()
		m.emailInput.Blur()
		return m, nil
	case "up", "shift+tab":
		m.setFormCursor(max(m.formCursor-1, minRow))
		return m, nil
	case "down", "tab":
		m.setFormCursor(min(m.formCursor+1, rows-1))
		return m, nil
	case "ctrl+a":
		m.report(m.app.Users.SelectAll())
		return m, nil
	case "ctrl+d":
		m.report(m.app.Users.DeselectAll())
		return m, nil
	case "enter", "ctrl+s":
		m.busy = "Saving..."
		return m, submitFormCmd(m.ctx, m.app)
	}

	if m.formCursor == 0 && !form.EmailLocked() {
		var cmd tea.Cmd
		m.emailInput, cmd = m.emailInput.Update(msg)
		m.report(m.app.Users.SetEmail(m.emailInput.Value()))
		return m, cmd
	}

	if msg.String() == " " || msg.String() == "x" {
		switch {
		case m.formCursor == 1:
			next := api.AccessAdmin
			if form.Access == api.AccessAdmin {
				next = api.AccessUser
			}
			m.report(m.app.Users.SetAccess(next))
		case m.formCursor >= 2:
			m.report(m.app.Users.Toggle(form.Folders[m.formCursor-2]))
		}
	}
	return m, nil
}

func (m *Model) setFormCursor(row int) {
	m.formCursor = row
	if row == 0 {
		m.emailInput.Focus()
	} else {
		m.emailInput.Blur()
	}
}

func (m *Model) refreshAuditList() {
	page := m.app.Audit.Page()
	if page == nil {
		m.auditList.SetItems(nil)
		return
	}
	fresh := components.NewAuditList(page.Entries, m.auditList.Width, m.auditList.Height)
	fresh.Focused = true
	if item := m.auditList.GetSelectedItem(); item != nil {
		fresh.Select(item.ID)
	}
	m.auditList = fresh
}

func (m *Model) handleAuditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.app.Audit.Page()
	var controls audit.Controls
	if page != nil {
		controls = audit.NewControls(page.Pagination)
	}

	switch msg.String() {
	case "up", "k":
		m.auditList.MoveUp()
	case "down", "j":
		m.auditList.MoveDown()
	case "left", "h":
		if page != nil && !controls.PrevDisabled {
			m.busy = "Loading audit trail..."
			return m, loadAuditCmd(m.ctx, m.app, controls.Current-1)
		}
	case "right", "l":
		if page != nil && !controls.NextDisabled {
			m.busy = "Loading audit trail..."
			return m, loadAuditCmd(m.ctx, m.app, controls.Current+1)
		}
	case "enter":
		if item := m.auditList.GetSelectedItem(); item != nil {
			id, err := strconv.Atoi(item.ID)
			if err != nil {
				return m, nil
			}
			m.busy = "Loading details..."
			return m, openAuditCmd(m.ctx, m.app, id, 1)
		}
	case "R":
		current := 1
		if page != nil {
			current = max(page.Pagination.CurrentPage, 1)
		}
		m.busy = "Loading audit trail..."
		return m, loadAuditCmd(m.ctx, m.app, current)
	}
	return m, nil
}

func (m *Model) handleAuditDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	detail := m.app.Audit.Detail()
	if detail == nil {
		return m, nil
	}
	controls := audit.NewControls(detail.Pagination)

	switch msg.String() {
	case "esc", "backspace":
		m.app.Audit.Close()
	case "left", "h":
		if !controls.PrevDisabled {
			m.busy = "Loading details..."
			return m, openAuditCmd(m.ctx, m.app, detail.AuditID, controls.Current-1)
		}
	case "right", "l":
		if !controls.NextDisabled {
			m.busy = "Loading details..."
			return m, openAuditCmd(m.ctx, m.app, detail.AuditID, controls.Current+1)
		}
	case "s":
		m.busy = "Exporting PDF..."
		return m, exportAuditCmd(m.app, m.opts.DownloadDir)
	}
	return m, nil
}

// Run starts the interactive UI and blocks until the user quits
func Run(ctx context.Context, a *app.App, opts Options) error {
	model := New(ctx, a, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
