package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/yildizm/go-termfmt"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts  *termfmt.TerminalOptions
	color bool
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts, color: color}
}

func (f *terminalFormatter) Format(report *Report) ([]byte, error) {
	var b strings.Builder

	if report.Title != "" {
		f.writeHeader(&b, report.Title)
	}
	if len(report.Summary) > 0 {
		f.writeSummary(&b, report)
	}
	for _, g := range report.Groups {
		f.writeGroup(&b, report.Symbol, g)
	}
	if report.Table != nil {
		f.writeTable(&b, report.Table)
	}
	for _, note := range report.Notes {
		b.WriteString("• " + note + "\n")
	}

	return []byte(b.String()), nil
}

// writeHeader writes a boxed title
func (f *terminalFormatter) writeHeader(b *strings.Builder, title string) {
	width := lipgloss.Width(title)
	b.WriteString("╔" + strings.Repeat("═", width+2) + "╗\n")
	b.WriteString("║ " + title + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", width+2) + "╝\n\n")
}

// writeSummary writes the summary as a tree
func (f *terminalFormatter) writeSummary(b *strings.Builder, report *Report) {
	tree := termfmt.TreeViewWithOptions(treeItems(report.Summary), f.opts)
	b.WriteString(tree + "\n\n")
}

func treeItems(items []Item) []termfmt.TreeItem {
	out := make([]termfmt.TreeItem, 0, len(items))
	for i, item := range items {
		out = append(out, termfmt.TreeItem{
			Label:    item.Label,
			Value:    item.Value,
			Children: treeItems(item.Children),
			Last:     i == len(items)-1,
		})
	}
	return out
}

// writeGroup writes a titled list with tree connectors
func (f *terminalFormatter) writeGroup(b *strings.Builder, key string, g Group) {
	b.WriteString(symbol(key) + g.Title)
	if g.Note != "" {
		b.WriteString(" (" + g.Note + ")")
	}
	b.WriteString("\n")
	if len(g.Items) == 0 {
		b.WriteString("└─ (none)\n\n")
		return
	}
	for i, item := range g.Items {
		if i == len(g.Items)-1 {
			b.WriteString("└─ " + item + "\n")
		} else {
			b.WriteString("├─ " + item + "\n")
		}
	}
	b.WriteString("\n")
}

// writeTable writes a bordered table
func (f *terminalFormatter) writeTable(b *strings.Builder, t *Table) {
	if t.Title != "" {
		b.WriteString(t.Title + "\n")
	}
	if len(t.Rows) == 0 {
		empty := t.Empty
		if empty == "" {
			empty = "No rows"
		}
		b.WriteString(empty + "\n\n")
		return
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j := range cells {
			if j < len(row) {
				cells[j] = singleLine(row[j])
			}
		}
		rows[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Columns...).
		Rows(rows...)
	if f.color {
		header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
		cell := lipgloss.NewStyle().Padding(0, 1)
		tbl = tbl.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	} else {
		cell := lipgloss.NewStyle().Padding(0, 1)
		tbl = tbl.StyleFunc(func(row, col int) lipgloss.Style { return cell })
	}
	b.WriteString(tbl.String() + "\n\n")
}
