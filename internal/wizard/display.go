package wizard

import (
	"strings"

	"github.com/yildizm/dlgen/internal/api"
)

// ImageMarkerPrefix marks placeholders that are filled with images, not text
const ImageMarkerPrefix = "«IMAGE_"

// Options is a dropdown: a fixed prompt followed by the fetched values
type Options struct {
	Prompt string   `json:"prompt"`
	Values []string `json:"values"`
}

func newOptions(prompt string, values []string) Options {
	return Options{Prompt: prompt, Values: append([]string(nil), values...)}
}

// Items returns the prompt entry followed by every value
func (o Options) Items() []string {
	if o.Prompt == "" && len(o.Values) == 0 {
		return nil
	}
	items := make([]string, 0, len(o.Values)+1)
	items = append(items, o.Prompt)
	return append(items, o.Values...)
}

// Contains reports whether v is one of the fetched values
func (o Options) Contains(v string) bool {
	for _, value := range o.Values {
		if value == v {
			return true
		}
	}
	return false
}

// Empty reports whether nothing has been fetched
func (o Options) Empty() bool {
	return len(o.Values) == 0
}

// PlaceholderGroup is a titled list of merge fields
type PlaceholderGroup struct {
	Title string   `json:"title"`
	Note  string   `json:"note,omitempty"`
	Names []string `json:"names"`
}

// DisplayPlaceholders drops image markers and strips the «» delimiters
func DisplayPlaceholders(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, ImageMarkerPrefix) {
			continue
		}
		name := strings.NewReplacer("«", "", "»", "").Replace(p)
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// NoRowsMessage is shown in place of an empty preview table
const NoRowsMessage = "No rows found"

// Preview is the tabular rendering of uploaded rows
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Empty   bool       `json:"empty"`
}

// BuildPreview uses the union of keys across all rows in first-seen order.
// Cells for keys a row lacks render empty.
func BuildPreview(rows []api.Row) Preview {
	if len(rows) == 0 {
		return Preview{Empty: true}
	}

	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for _, key := range row.Keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = row.Text(col)
		}
		table = append(table, cells)
	}

	return Preview{Columns: columns, Rows: table}
}
