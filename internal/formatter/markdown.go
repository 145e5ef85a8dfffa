package formatter

import (
	"fmt"
	"strings"
	"time"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct {
	now func() time.Time
}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{now: time.Now}
}

func (f *markdownFormatter) Format(report *Report) ([]byte, error) {
	var b strings.Builder

	title := report.Title
	if title == "" {
		title = "Report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated: %s\n\n", f.now().Format("2006-01-02 15:04:05"))

	if len(report.Summary) > 0 {
		f.writeSummaryTable(&b, report.Summary)
	}
	for _, g := range report.Groups {
		f.writeGroup(&b, g)
	}
	if report.Table != nil {
		f.writeTable(&b, report.Table)
	}
	if len(report.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, note := range report.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeSummaryTable(b *strings.Builder, items []Item) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	for _, kv := range flatten(items, "") {
		fmt.Fprintf(b, "| %s | %s |\n", escapeCell(kv[0]), escapeCell(kv[1]))
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeGroup(b *strings.Builder, g Group) {
	fmt.Fprintf(b, "## %s\n\n", g.Title)
	if g.Note != "" {
		fmt.Fprintf(b, "*%s*\n\n", g.Note)
	}
	for _, item := range g.Items {
		fmt.Fprintf(b, "- `%s`\n", item)
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeTable(b *strings.Builder, t *Table) {
	if t.Title != "" {
		fmt.Fprintf(b, "## %s\n\n", t.Title)
	}
	if len(t.Rows) == 0 {
		empty := t.Empty
		if empty == "" {
			empty = "No rows"
		}
		fmt.Fprintf(b, "%s\n\n", empty)
		return
	}

	cols := make([]string, len(t.Columns))
	seps := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = escapeCell(c)
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Join(seps, "|") + "|\n")
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = escapeCell(row[i])
			}
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

// escapeCell keeps a value inside one table cell
func escapeCell(s string) string {
	return strings.ReplaceAll(singleLine(s), "|", "\\|")
}
