package formatter

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/emoji"
	"github.com/yildizm/dlgen/internal/wizard"
)

func auditPage() *api.AuditPage {
	return &api.AuditPage{
		Entries: []api.AuditEntry{
			{ID: 12, Client: "Acme", ProcessedBy: "ann", ProcessedAt: "2024-05-01 10:00", TotalAccounts: 1500, Mode: "DL Only"},
			{ID: 11, Client: "Globex", ProcessedBy: "bob", ProcessedAt: "2024-04-30 09:00", TotalAccounts: 3, Mode: "Transmittal Only"},
		},
		Pagination: api.Pagination{CurrentPage: 3, TotalPages: 10, TotalCount: 98, Limit: 10, HasPrev: true, HasNext: true},
	}
}

func TestGetFallsBackToText(t *testing.T) {
	tests := map[string]string{
		"json":     "*formatter.jsonFormatter",
		"JSON":     "*formatter.jsonFormatter",
		"md":       "*formatter.markdownFormatter",
		"markdown": "*formatter.markdownFormatter",
		"csv":      "*formatter.csvFormatter",
		"text":     "*formatter.terminalFormatter",
		"":         "*formatter.terminalFormatter",
	}
	for format, want := range tests {
		if got := typeName(Get(format, false)); got != want {
			t.Errorf("Get(%q) = %s, want %s", format, got, want)
		}
	}
}

func typeName(f Formatter) string {
	switch f.(type) {
	case *jsonFormatter:
		return "*formatter.jsonFormatter"
	case *markdownFormatter:
		return "*formatter.markdownFormatter"
	case *csvFormatter:
		return "*formatter.csvFormatter"
	case *terminalFormatter:
		return "*formatter.terminalFormatter"
	}
	return "unknown"
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1,500"},
		{1234567, "1,234,567"},
		{-2500, "-2,500"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTerminalAuditPage(t *testing.T) {
	out, err := NewTerminal(false).Format(AuditPageReport(auditPage()))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	text := string(out)

	for _, want := range []string{"Audit Trail", "Acme", "1,500", "Transmittal Only", "‹ 1 2 [3] 4 5 ›", "page 3 of 10"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestTerminalEmptyTable(t *testing.T) {
	out, err := NewTerminal(false).Format(PreviewReport("empty.xlsx", wizard.BuildPreview(nil)))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(string(out), wizard.NoRowsMessage) {
		t.Errorf("expected empty state message, got:\n%s", out)
	}
}

func TestTerminalGroupsUseFallbackSymbols(t *testing.T) {
	emoji.SetEmojiDisabled(true)
	defer emoji.SetEmojiDisabled(false)

	report := PlaceholderReport("Template loaded", []wizard.PlaceholderGroup{
		{Title: "Template placeholders", Names: []string{"NAME", "ADDRESS"}},
		{Title: "Transmittal placeholders", Note: "combined into one template", Names: []string{"AREA"}},
	})
	out, err := NewTerminal(false).Format(report)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	text := string(out)

	if !strings.Contains(text, "[TPL] Transmittal placeholders (combined into one template)") {
		t.Errorf("group header missing:\n%s", text)
	}
	if !strings.Contains(text, "├─ NAME") || !strings.Contains(text, "└─ ADDRESS") {
		t.Errorf("tree connectors missing:\n%s", text)
	}
}

func TestPagerLineDisabledEnds(t *testing.T) {
	line := pagerLine(api.Pagination{CurrentPage: 1, TotalPages: 2, TotalCount: 12, HasNext: true})
	if !strings.HasPrefix(line, "· [1] 2 ›") {
		t.Errorf("pagerLine() = %q", line)
	}
}

func TestJSONUsesData(t *testing.T) {
	out, err := NewJSON().Format(AuditPageReport(auditPage()))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	var decoded api.AuditPage
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not an audit page: %v", err)
	}
	if len(decoded.Entries) != 2 || decoded.Pagination.TotalPages != 10 {
		t.Errorf("unexpected decoded page: %+v", decoded)
	}
}

func TestJSONWithoutData(t *testing.T) {
	report := &Report{
		Title:   "Result",
		Summary: []Item{{Label: "Status", Value: "ok", Children: []Item{{Label: "Detail", Value: "done"}}}},
	}
	out, err := NewJSON().Format(report)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	var decoded JSONOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Summary["Status.Detail"] != "done" {
		t.Errorf("nested summary not flattened: %+v", decoded.Summary)
	}
}

func TestCSVTable(t *testing.T) {
	out, err := NewCSV().Format(UsersReport([]api.User{
		{Email: "a@example.com", Access: "admin", Clients: []string{"Acme", "Globex"}},
	}))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	want := [][]string{{"Email", "Access", "Folders"}, {"a@example.com", "admin", "Acme, Globex"}}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("record[%d][%d] = %q, want %q", i, j, records[i][j], want[i][j])
			}
		}
	}
}

func TestCSVSummaryFallback(t *testing.T) {
	out, err := NewCSV().Format(&Report{Summary: []Item{{Label: "Status", Value: "line1\nline2"}}})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(string(out), "Status,line1 line2") {
		t.Errorf("unexpected CSV:\n%s", out)
	}
}

func TestMarkdownTable(t *testing.T) {
	f := &markdownFormatter{now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }}
	out, err := f.Format(AuditDetailReport(&api.AuditDetail{
		AuditID:    7,
		Client:     "Acme",
		Accounts:   []api.Account{{DLCode: "D1", Name: "Ann | Co", Area: "North"}},
		Pagination: api.Pagination{CurrentPage: 1, TotalPages: 1, TotalCount: 1},
	}))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	text := string(out)

	for _, want := range []string{"# Audit #7", "Generated: 2024-05-01 12:00:00", "| DL Code | Name | Address | Area |", `Ann \| Co`} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q:\n%s", want, text)
		}
	}
}
