package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/audit"
	"github.com/yildizm/dlgen/internal/session"
	"github.com/yildizm/dlgen/internal/wizard"
)

// SessionReport describes the signed-in user
func SessionReport(u *session.User) *Report {
	folders := make([]Item, 0, len(u.Clients))
	for _, c := range u.Clients {
		folders = append(folders, Item{Label: c})
	}
	summary := []Item{
		{Label: "User", Value: u.Username},
		{Label: "Role", Value: u.Role},
		{Label: "Access", Value: u.Access},
	}
	if u.AvatarURL != "" {
		summary = append(summary, Item{Label: "Avatar", Value: u.AvatarURL})
	}
	summary = append(summary, Item{Label: "Folders", Value: strconv.Itoa(len(u.Clients)), Children: folders})
	return &Report{Title: "Session", Symbol: "user", Summary: summary, Data: u}
}

// ListReport renders a plain list of names
func ListReport(title string, names []string) *Report {
	return &Report{
		Title:  title,
		Symbol: "folder",
		Groups: []Group{{Title: fmt.Sprintf("%s (%d)", title, len(names)), Items: names}},
		Data:   names,
	}
}

// PlaceholderReport renders placeholder groups
func PlaceholderReport(status string, groups []wizard.PlaceholderGroup) *Report {
	r := &Report{Title: "Placeholders", Symbol: "template", Data: groups}
	if status != "" {
		r.Summary = []Item{{Label: "Status", Value: status}}
	}
	for _, g := range groups {
		r.Groups = append(r.Groups, Group{Title: g.Title, Note: g.Note, Items: g.Names})
	}
	return r
}

// PreviewReport renders uploaded rows as a table
func PreviewReport(source string, preview wizard.Preview) *Report {
	return &Report{
		Title:   "Preview",
		Summary: []Item{{Label: "File", Value: source}, {Label: "Rows", Value: formatNumber(len(preview.Rows))}},
		Table:   &Table{Columns: preview.Columns, Rows: preview.Rows, Empty: wizard.NoRowsMessage},
		Data:    preview,
	}
}

// PrinterReport lists printers, marking the default
func PrinterReport(printers []api.Printer) *Report {
	rows := make([][]string, 0, len(printers))
	for _, p := range printers {
		def := ""
		if p.IsDefault {
			def = "yes"
		}
		rows = append(rows, []string{p.Name, def})
	}
	return &Report{
		Title: "Printers",
		Table: &Table{Columns: []string{"Name", "Default"}, Rows: rows, Empty: "No printers found"},
		Data:  printers,
	}
}

// UsersReport lists managed users
func UsersReport(users []api.User) *Report {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.Email, u.Access, strings.Join(u.Clients, ", ")})
	}
	return &Report{
		Title: "Users",
		Table: &Table{Columns: []string{"Email", "Access", "Folders"}, Rows: rows, Empty: "No users found"},
		Data:  users,
	}
}

// AuditPageReport renders one page of the audit trail
func AuditPageReport(page *api.AuditPage) *Report {
	rows := make([][]string, 0, len(page.Entries))
	for _, e := range page.Entries {
		rows = append(rows, []string{
			strconv.Itoa(e.ID), e.Client, e.ProcessedBy, e.ProcessedAt, formatNumber(e.TotalAccounts), e.Mode,
		})
	}
	return &Report{
		Title: "Audit Trail",
		Table: &Table{
			Columns: []string{"ID", "Client", "Processed By", "Processed At", "Accounts", "Mode"},
			Rows:    rows,
			Empty:   "No audit entries found",
		},
		Notes: []string{pagerLine(page.Pagination)},
		Data:  page,
	}
}

// AuditDetailReport renders one run with a page of its accounts
func AuditDetailReport(d *api.AuditDetail) *Report {
	rows := make([][]string, 0, len(d.Accounts))
	for _, a := range d.Accounts {
		rows = append(rows, []string{a.DLCode, a.Name, a.Address, a.Area})
	}
	return &Report{
		Title:  fmt.Sprintf("Audit #%d", d.AuditID),
		Symbol: "statistics",
		Summary: []Item{
			{Label: "Client", Value: d.Client},
			{Label: "Processed By", Value: d.ProcessedBy},
			{Label: "Processed At", Value: d.ProcessedAt},
			{Label: "Mode", Value: d.Mode},
			{Label: "Total Accounts", Value: formatNumber(d.TotalAccounts)},
		},
		Table: &Table{
			Columns: []string{"DL Code", "Name", "Address", "Area"},
			Rows:    rows,
			Empty:   "No accounts found",
		},
		Notes: []string{pagerLine(d.Pagination)},
		Data:  d,
	}
}

// RunReport summarizes a finished generation run
func RunReport(s wizard.Snapshot) *Report {
	summary := []Item{
		{Label: "Status", Value: s.Stage.String()},
		{Label: "Progress", Value: fmt.Sprintf("%.0f%%", s.Progress.Percent)},
		{Label: "Message", Value: s.Progress.Message},
	}
	if s.LastError != "" {
		summary = append(summary, Item{Label: "Error", Value: s.LastError})
	}
	if s.DownloadReady {
		summary = append(summary, Item{Label: "Download", Value: "ready"})
	}
	if s.PrintReady {
		summary = append(summary, Item{Label: "Print", Value: "ready", Children: itemsOf(s.Areas)})
	}
	return &Report{Title: "Generation", Symbol: "rocket", Summary: summary, Data: s}
}

func itemsOf(values []string) []Item {
	items := make([]Item, 0, len(values))
	for _, v := range values {
		items = append(items, Item{Label: v})
	}
	return items
}

// pagerLine renders the pagination controls as one line, e.g. "‹ 1 2 [3] 4 5 › page 3 of 10"
func pagerLine(p api.Pagination) string {
	c := audit.NewControls(p)
	var parts []string
	if c.PrevDisabled {
		parts = append(parts, "·")
	} else {
		parts = append(parts, "‹")
	}
	for _, n := range c.Pages {
		if n == c.Current {
			parts = append(parts, fmt.Sprintf("[%d]", n))
		} else {
			parts = append(parts, strconv.Itoa(n))
		}
	}
	if c.NextDisabled {
		parts = append(parts, "·")
	} else {
		parts = append(parts, "›")
	}
	return fmt.Sprintf("%s  page %d of %d (%s total)", strings.Join(parts, " "), p.CurrentPage, p.TotalPages, formatNumber(p.TotalCount))
}
