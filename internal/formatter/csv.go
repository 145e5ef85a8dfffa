package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// csvFormatter formats the report table as CSV
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

// Format writes the table when there is one, and the summary as
// field/value pairs otherwise.
func (f *csvFormatter) Format(report *Report) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	headers, records := csvRecords(report)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return b.Bytes(), nil
}

func csvRecords(report *Report) ([]string, [][]string) {
	if report.Table != nil {
		records := make([][]string, 0, len(report.Table.Rows))
		for _, row := range report.Table.Rows {
			record := make([]string, len(report.Table.Columns))
			for i := range record {
				if i < len(row) {
					record[i] = singleLine(row[i])
				}
			}
			records = append(records, record)
		}
		return report.Table.Columns, records
	}

	if len(report.Groups) > 0 {
		var records [][]string
		for _, g := range report.Groups {
			for _, item := range g.Items {
				records = append(records, []string{g.Title, item})
			}
		}
		return []string{"Group", "Item"}, records
	}

	var records [][]string
	for _, kv := range flatten(report.Summary, "") {
		records = append(records, []string{kv[0], singleLine(kv[1])})
	}
	return []string{"Field", "Value"}, records
}
