package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/app"
	"github.com/yildizm/dlgen/internal/audit"
	"github.com/yildizm/dlgen/internal/emoji"
	"github.com/yildizm/dlgen/internal/ui/components"
	"github.com/yildizm/dlgen/internal/wizard"
)

// View renders the model
func (m *Model) View() string {
	if !m.ready {
		return m.styles.Title.Render("Starting DL Generator...")
	}
	if m.quitting {
		return m.styles.Success.Render("Goodbye!") + "\n"
	}

	sections := []string{m.renderHeader()}
	if notice := m.renderNotice(); notice != "" {
		sections = append(sections, notice)
	}

	switch m.screen {
	case ScreenLogin:
		sections = append(sections, m.renderLogin())
	case ScreenGenerator:
		sections = append(sections, m.renderGenerator())
	case ScreenUsers:
		sections = append(sections, m.renderUsers())
	case ScreenUserForm:
		sections = append(sections, m.renderUserForm())
	case ScreenAudit:
		sections = append(sections, m.renderAudit())
	case ScreenAuditDetail:
		sections = append(sections, m.renderAuditDetail())
	}

	if m.picker != nil {
		sections = append(sections, m.picker.Render())
	}
	if m.busy != "" {
		m.spinner.SetLabel(m.busy)
		sections = append(sections, m.spinner.Render())
	}
	sections = append(sections, m.styles.Muted.Render(m.helpLine()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render(emoji.GetEmoji("rocket") + " DL Generator")
	user := m.app.User()
	if user == nil {
		return title
	}

	tabs := []struct {
		key  string
		view app.View
		name string
	}{
		{"1", app.ViewGenerator, "Generator"},
		{"2", app.ViewUsers, "Users"},
		{"3", app.ViewAudit, "Audit"},
	}
	current := m.app.View()
	var rendered []string
	for _, t := range tabs {
		if t.view.AdminOnly() && !user.IsAdmin() {
			continue
		}
		label := fmt.Sprintf("%s %s", t.key, t.name)
		if t.view == current {
			rendered = append(rendered, m.styles.Selected.Padding(0, 1).Render(label))
			continue
		}
		rendered = append(rendered, m.styles.Muted.Padding(0, 1).Render(label))
	}

	who := m.styles.Muted.Render(fmt.Sprintf("%s %s (%s)", emoji.GetEmoji("user"), user.Username, user.Access))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", strings.Join(rendered, " "), "  ", who)
}

func (m *Model) renderNotice() string {
	n := m.app.Notice()
	if n == nil {
		return ""
	}
	icon := emoji.GetEmoji("info")
	switch n.Kind {
	case app.NoticeSuccess:
		icon = emoji.GetEmoji("success")
	case app.NoticeError:
		icon = emoji.GetEmoji("error")
	}
	return m.styles.Notice(n.Kind).Render(strings.TrimSpace(icon + " " + n.Text))
}

func (m *Model) renderLogin() string {
	lines := []string{
		m.styles.Header.Render(emoji.GetEmoji("lock") + " Sign in"),
		"",
		"Open this address in a browser and sign in:",
		m.styles.Info.Render(m.app.Session.LoginURL()),
		"",
		"Then paste the authorization code or the full redirect URL:",
		m.input.View(),
	}
	return m.styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderGenerator() string {
	s := m.app.Wizard.Snapshot()
	var lines []string

	for _, f := range visibleFields(s) {
		lines = append(lines, m.renderField(f, s))
	}

	for _, status := range []string{s.Banner, s.ContentStatus, s.TemplateStatus} {
		if status != "" {
			lines = append(lines, m.styles.Banner.Render(status))
		}
	}

	for _, g := range s.Placeholders {
		title := g.Title
		if g.Note != "" {
			title += " (" + g.Note + ")"
		}
		names := strings.Join(g.Names, ", ")
		if names == "" {
			names = "none"
		}
		lines = append(lines, m.styles.Subheader.Render(title), "  "+names)
	}

	if s.UploadedFile != "" {
		grid := components.Grid{
			Title:   emoji.GetEmoji("sheet") + " " + filepath.Base(s.UploadedFile),
			Columns: s.Preview.Columns,
			Rows:    s.Preview.Rows,
			Empty:   wizard.NoRowsMessage,
			MaxRows: 8,
			Width:   min(max(m.width-4, 40), 140),
		}
		lines = append(lines, "", grid.Render())
	}

	if s.Progress.Visible {
		m.progress.Failed = s.Stage == wizard.Failed
		m.progress.SetProgress(s.Progress.Percent, s.Progress.Message)
		lines = append(lines, "", m.progress.Render())
	}

	if s.LastError != "" && s.Stage != wizard.Generating {
		lines = append(lines, m.styles.Error.Render(s.LastError))
	}

	if actions := generatorActions(s); actions != "" {
		lines = append(lines, "", m.styles.Success.Render(actions))
	}

	return m.styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderField(f field, s wizard.Snapshot) string {
	var value, prompt string
	switch f {
	case fieldFormat:
		value, prompt = s.OutputFormat, wizard.PromptFormat
	case fieldMode:
		value, prompt = s.Mode, wizard.PromptMode
	case fieldFolder:
		value, prompt = s.Folder, wizard.PromptFolder
	case fieldDocType:
		value, prompt = s.DocType, wizard.PromptDocType
	case fieldTemplate:
		value, prompt = s.Template, wizard.PromptTemplate
	case fieldFile:
		value, prompt = filepath.Base(s.UploadedFile), "Choose a spreadsheet"
		if s.UploadedFile == "" {
			value = ""
		}
		if m.typing == purposePath {
			value = m.input.View()
		}
	case fieldGenerate:
		value = "[ Generate ]"
		if s.Stage == wizard.Generating {
			value = "[ Generating... ]"
		}
	}

	shown := value
	if shown == "" {
		shown = m.styles.Muted.Render(prompt)
	}
	label := fmt.Sprintf("%-14s", fieldLabels[f])
	line := label + " " + shown

	if f == m.focus && m.picker == nil {
		if s.InputsDisabled {
			return m.styles.Muted.Render("▶ " + line)
		}
		return m.styles.ListSelected.Render("▶ " + line)
	}
	if s.InputsDisabled {
		return m.styles.Muted.Render("  " + line)
	}
	return "  " + line
}

func generatorActions(s wizard.Snapshot) string {
	if s.InputsDisabled {
		return ""
	}
	var parts []string
	if s.DownloadReady {
		parts = append(parts, emoji.GetEmoji("download")+" d download")
	}
	if s.PrintReady {
		parts = append(parts, emoji.GetEmoji("printer")+" p print ("+strings.Join(s.Areas, ", ")+")")
	}
	return strings.Join(parts, "   ")
}

func (m *Model) renderUsers() string {
	var lines []string
	filter := "all"
	if m.accessFilter != "" {
		filter = m.accessFilter
	}
	search := m.userQuery
	if m.typing == purposeSearch {
		search = m.input.View()
	}
	lines = append(lines,
		m.styles.Header.Render(emoji.GetEmoji("users")+" User management"),
		fmt.Sprintf("Search: %s   Access: %s", search, filter),
		m.userList.Render(),
	)
	if m.confirmEmail != "" {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("Delete %s? (y/N)", m.confirmEmail)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderUserForm() string {
	form := m.app.Users.Form()
	if form == nil {
		return ""
	}

	title := "New user"
	if form.EmailLocked() {
		title = "Edit " + form.Email
	}
	lines := []string{m.styles.Header.Render(emoji.GetEmoji("user") + " " + title), ""}

	email := m.emailInput.View()
	if form.EmailLocked() {
		email = m.styles.Muted.Render(form.Email + " (locked)")
	}
	lines = append(lines, m.formRow(0, "Email   "+email))

	access := fmt.Sprintf("Access  (%s) admin  (%s) user", radio(form.Access == api.AccessAdmin), radio(form.Access == api.AccessUser))
	lines = append(lines, m.formRow(1, access), "", m.styles.Subheader.Render(emoji.GetEmoji("folder")+" Template folders"))

	if len(form.Folders) == 0 {
		lines = append(lines, m.styles.Muted.Render("  no folders available"))
	}
	for i, folder := range form.Folders {
		box := "[ ]"
		if form.Checked[folder] {
			box = "[x]"
		}
		lines = append(lines, m.formRow(i+2, box+" "+folder))
	}
	return m.styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func radio(on bool) string {
	if on {
		return "•"
	}
	return " "
}

func (m *Model) formRow(row int, text string) string {
	if row == m.formCursor {
		return m.styles.ListSelected.Render("▶ " + text)
	}
	return "  " + text
}

func (m *Model) renderAudit() string {
	lines := []string{m.styles.Header.Render(emoji.GetEmoji("audit") + " Audit trail"), m.auditList.Render()}
	if page := m.app.Audit.Page(); page != nil {
		lines = append(lines, components.RenderPager(audit.NewControls(page.Pagination)),
			m.styles.Muted.Render(fmt.Sprintf("%d runs in total", page.Pagination.TotalCount)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderAuditDetail() string {
	d := m.app.Audit.Detail()
	if d == nil {
		return ""
	}
	summary := fmt.Sprintf("%s · %s by %s · %s · %d accounts", d.Client, d.ProcessedAt, d.ProcessedBy, d.Mode, d.TotalAccounts)

	rows := make([][]string, 0, len(d.Accounts))
	for _, a := range d.Accounts {
		rows = append(rows, []string{a.DLCode, a.Name, a.Address, a.Area})
	}
	grid := components.Grid{
		Columns: []string{"DL Code", "Name", "Address", "Area"},
		Rows:    rows,
		Empty:   "No accounts",
		Width:   min(max(m.width-4, 40), 140),
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(fmt.Sprintf("%s Audit #%d", emoji.GetEmoji("audit"), d.AuditID)),
		m.styles.Muted.Render(summary),
		grid.Render(),
		components.RenderPager(audit.NewControls(d.Pagination)),
	)
}

func (m *Model) helpLine() string {
	switch {
	case m.typing == purposeCode:
		return "enter sign in • esc quit"
	case m.typing != purposeNone:
		return "enter confirm • esc cancel"
	case m.picker != nil:
		return "↑↓ choose • enter select • esc cancel"
	case m.confirmEmail != "":
		return "y confirm • any other key cancels"
	}

	global := "x dismiss • L logout • q quit"
	switch m.screen {
	case ScreenGenerator:
		return "↑↓ move • enter open • c cleanup • r reset • " + global
	case ScreenUsers:
		return "↑↓ move • / search • f access filter • n new • e edit • D delete • R reload • " + global
	case ScreenUserForm:
		return "↑↓ move • space toggle • ctrl+a all • ctrl+d none • enter save • esc cancel"
	case ScreenAudit:
		return "↑↓ move • ←→ page • enter details • R reload • " + global
	case ScreenAuditDetail:
		return "←→ page • s export PDF • esc back • " + global
	}
	return global
}
