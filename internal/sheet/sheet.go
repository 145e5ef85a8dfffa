// Package sheet inspects spreadsheets locally before they are uploaded.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yildizm/dlgen/internal/api"
)

var (
	// ErrUnsupportedType is returned for files that are not Excel workbooks
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNoSheets is returned for a workbook without worksheets
	ErrNoSheets = errors.New("workbook has no sheets")

	// ErrEmpty is returned when the first sheet has no header row
	ErrEmpty = errors.New("sheet is empty")
)

// Extensions accepted for upload
var Extensions = []string{".xlsx", ".xlsm"}

// Sheet is the first worksheet of a workbook
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Supported reports whether path has a spreadsheet extension
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Check verifies that path is a readable workbook with a header row
func Check(path string) error {
	_, err := Open(path)
	return err
}

// Open reads the first worksheet of the workbook at path
func Open(path string) (*Sheet, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s (expected one of %s)", ErrUnsupportedType, filepath.Base(path), strings.Join(Extensions, ", "))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Read(file)
}

// Read parses a workbook. Empty header cells are named Column_N.
func Read(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, ErrNoSheets
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}

	s := &Sheet{Name: name, Headers: headers}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Records converts the data rows into keyed records in header order.
// Short rows yield empty strings for the missing cells.
func (s *Sheet) Records() []api.Row {
	records := make([]api.Row, 0, len(s.Rows))
	for _, row := range s.Rows {
		var rec api.Row
		for i, h := range s.Headers {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			rec.Set(h, value)
		}
		records = append(records, rec)
	}
	return records
}
