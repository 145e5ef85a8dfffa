package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yildizm/dlgen/internal/audit"
)

// Grid renders a bordered table of string cells. Only MaxRows rows are shown.
type Grid struct {
	Title   string
	Columns []string
	Rows    [][]string
	Empty   string
	MaxRows int
	Width   int
}

// Render renders the grid
func (g *Grid) Render() string {
	primaryColor := lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	secondaryColor := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	headerStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(secondaryColor)

	var out []string
	if g.Title != "" {
		out = append(out, headerStyle.Render(g.Title))
	}
	if len(g.Rows) == 0 {
		empty := g.Empty
		if empty == "" {
			empty = "No rows"
		}
		out = append(out, mutedStyle.Italic(true).Render(empty))
		return lipgloss.JoinVertical(lipgloss.Left, out...)
	}

	rows := g.Rows
	if g.MaxRows > 0 && len(rows) > g.MaxRows {
		rows = rows[:g.MaxRows]
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(g.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	if g.Width > 0 {
		tbl = tbl.Width(g.Width)
	}
	out = append(out, tbl.String())

	if len(rows) < len(g.Rows) {
		out = append(out, mutedStyle.Render(fmt.Sprintf("showing %d of %d rows", len(rows), len(g.Rows))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

// RenderPager renders audit pagination controls, marking the current page
// and dimming disabled arrows.
func RenderPager(c audit.Controls) string {
	primaryColor := lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	secondaryColor := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	current := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Underline(true)
	muted := lipgloss.NewStyle().Foreground(secondaryColor)

	if c.Total == 0 {
		return muted.Render("no pages")
	}

	parts := make([]string, 0, len(c.Pages)+2)
	parts = append(parts, arrow("‹ prev", c.PrevDisabled, muted))
	for _, p := range c.Pages {
		if p == c.Current {
			parts = append(parts, current.Render(strconv.Itoa(p)))
			continue
		}
		parts = append(parts, strconv.Itoa(p))
	}
	parts = append(parts, arrow("next ›", c.NextDisabled, muted))
	return strings.Join(parts, " ") + muted.Render(fmt.Sprintf("  page %d of %d", c.Current, c.Total))
}

func arrow(label string, disabled bool, muted lipgloss.Style) string {
	if disabled {
		return muted.Faint(true).Render(label)
	}
	return label
}
