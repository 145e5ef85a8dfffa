// Package formatter renders command results as text, JSON, CSV or Markdown.
package formatter

import "strings"

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// Report is a renderable command result
type Report struct {
	Title   string
	Symbol  string // emoji key shown before section titles
	Summary []Item
	Groups  []Group
	Table   *Table
	Notes   []string

	// Data is emitted as-is by the JSON formatter when set
	Data interface{}
}

// Item is one labelled value, optionally with nested items
type Item struct {
	Label    string
	Value    string
	Children []Item
}

// Group is a titled list of names
type Group struct {
	Title string
	Note  string
	Items []string
}

// Table is a tabular section
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
	Empty   string // shown when there are no rows
}

// Get returns the formatter for the given format name. Unknown names fall back to text.
func Get(format string, color bool) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return NewJSON()
	case "markdown", "md":
		return NewMarkdown()
	case "csv":
		return NewCSV()
	default:
		return NewTerminal(color)
	}
}
