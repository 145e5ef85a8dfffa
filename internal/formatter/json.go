package formatter

import (
	"encoding/json"
	"fmt"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// JSONOutput is the structure emitted for reports without raw data
type JSONOutput struct {
	Title   string              `json:"title,omitempty"`
	Summary map[string]string   `json:"summary,omitempty"`
	Groups  []JSONGroup         `json:"groups,omitempty"`
	Rows    []map[string]string `json:"rows,omitempty"`
	Notes   []string            `json:"notes,omitempty"`
}

// JSONGroup is a group in JSON output
type JSONGroup struct {
	Title string   `json:"title"`
	Note  string   `json:"note,omitempty"`
	Items []string `json:"items"`
}

func (f *jsonFormatter) Format(report *Report) ([]byte, error) {
	var payload interface{} = report.Data
	if payload == nil {
		payload = createJSONOutput(report)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func createJSONOutput(report *Report) *JSONOutput {
	out := &JSONOutput{Title: report.Title, Notes: report.Notes}
	if len(report.Summary) > 0 {
		out.Summary = make(map[string]string)
		for _, kv := range flatten(report.Summary, "") {
			out.Summary[kv[0]] = kv[1]
		}
	}
	for _, g := range report.Groups {
		out.Groups = append(out.Groups, JSONGroup{Title: g.Title, Note: g.Note, Items: g.Items})
	}
	if report.Table != nil {
		for _, row := range report.Table.Rows {
			record := make(map[string]string, len(report.Table.Columns))
			for i, col := range report.Table.Columns {
				if i < len(row) {
					record[col] = row[i]
				}
			}
			out.Rows = append(out.Rows, record)
		}
	}
	return out
}
