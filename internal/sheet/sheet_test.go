package sheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"accounts.xlsx", true},
		{"ACCOUNTS.XLSX", true},
		{"macro.xlsm", true},
		{"accounts.csv", false},
		{"accounts", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Supported(tt.path))
		})
	}
}

func TestOpenReadsFirstSheet(t *testing.T) {
	path := writeWorkbook(t, "accounts.xlsx", [][]interface{}{
		{"DL_CODE", "NAME", "", "AREA"},
		{"D1", "Ann", "x", "North"},
		{"", "", "", ""},
		{"D2", "Bob"},
	})

	s, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"DL_CODE", "NAME", "Column_3", "AREA"}, s.Headers)
	assert.Len(t, s.Rows, 2, "blank rows are skipped")

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, []string{"DL_CODE", "NAME", "Column_3", "AREA"}, records[0].Keys)
	assert.Equal(t, "North", records[0].Text("AREA"))
	assert.Equal(t, "", records[1].Text("AREA"))
}

func TestOpenRejectsOtherTypes(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "accounts.csv"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestOpenEmptySheet(t *testing.T) {
	path := writeWorkbook(t, "empty.xlsx", nil)
	err := Check(path)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestOpenMissingFile(t *testing.T) {
	err := Check(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open spreadsheet")
}
