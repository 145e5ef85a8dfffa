package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/xuri/excelize/v2"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/config"
	"github.com/yildizm/dlgen/internal/emoji"
	"github.com/yildizm/dlgen/internal/monitor"
	"github.com/yildizm/dlgen/internal/sheet"
	"github.com/yildizm/dlgen/internal/wizard"
)

func TestCreateProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		percent  float64
		noEmoji  bool
		expected string
	}{
		{"empty", 0, true, "[--------------------]   0%"},
		{"half", 50, true, "[##########----------]  50%"},
		{"clamped high", 150, true, "[####################] 100%"},
		{"clamped low", -10, true, "[--------------------]   0%"},
		{"unicode", 25, false, "█████░░░░░░░░░░░░░░░  25%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := noEmoji
			noEmoji = tt.noEmoji
			defer func() { noEmoji = old }()

			if got := CreateProgressBar(tt.percent); got != tt.expected {
				t.Errorf("CreateProgressBar(%v) = %q, want %q", tt.percent, got, tt.expected)
			}
		})
	}
}

func TestIsDroppedSpreadsheet(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/in/accounts.xlsx", true},
		{"/in/ACCOUNTS.XLSM", true},
		{"/in/~$accounts.xlsx", false},
		{"/in/.accounts.xlsx", false},
		{"/in/accounts.csv", false},
		{"/in/documents.zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isDroppedSpreadsheet(tt.path); got != tt.expected {
				t.Errorf("isDroppedSpreadsheet(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestHandleWatchEvent(t *testing.T) {
	pending := map[string]time.Time{}

	handleWatchEvent(fsnotify.Event{Name: "/in/a.xlsx", Op: fsnotify.Create}, pending)
	handleWatchEvent(fsnotify.Event{Name: "/in/b.xlsx", Op: fsnotify.Remove}, pending)
	handleWatchEvent(fsnotify.Event{Name: "/in/c.txt", Op: fsnotify.Write}, pending)
	handleWatchEvent(fsnotify.Event{Name: "/in/d.xlsx", Op: fsnotify.Write | fsnotify.Chmod}, pending)

	if len(pending) != 2 {
		t.Fatalf("pending = %v, want a.xlsx and d.xlsx", pending)
	}
	for _, name := range []string{"/in/a.xlsx", "/in/d.xlsx"} {
		if _, ok := pending[name]; !ok {
			t.Errorf("expected %s to be pending", name)
		}
	}
}

func TestValidateWatchDirPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "accounts.xlsx")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"directory", dir, false},
		{"empty", "  ", true},
		{"file", file, true},
		{"missing", filepath.Join(dir, "nope"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWatchDirPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateWatchDirPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestRunOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want monitor.Outcome
	}{
		{"success", nil, monitor.Succeeded},
		{"interrupted", fmt.Errorf("generate: %w", context.Canceled), monitor.Cancelled},
		{"superseded", wizard.ErrSuperseded, monitor.Cancelled},
		{"backend failure", errors.New("boom"), monitor.Failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runOutcome(tt.err); got != tt.want {
				t.Errorf("runOutcome(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseAuditID(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAuditID(tt.input)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("parseAuditID(%q) = %d, %v; want %d, wantErr %v", tt.input, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestFindUserIgnoresCase(t *testing.T) {
	list := []api.User{{Email: "ann@example.com"}, {Email: "Bob@Example.com"}}
	u, ok := findUser(list, "bob@example.com")
	if !ok || u.Email != "Bob@Example.com" {
		t.Errorf("findUser() = %v, %v", u, ok)
	}
	if _, ok := findUser(list, "cy@example.com"); ok {
		t.Error("expected no match")
	}
}

func TestLocalPreviewPadsRows(t *testing.T) {
	s := &sheet.Sheet{
		Headers: []string{"Name", "Address", "Area"},
		Rows:    [][]string{{"Ann", "1 Main St", "North"}, {"Bob"}},
	}
	p := localPreview(s)
	if len(p.Rows) != 2 || len(p.Rows[1]) != 3 || p.Rows[1][0] != "Bob" || p.Rows[1][2] != "" {
		t.Errorf("localPreview() rows = %v", p.Rows)
	}
	if p.Empty {
		t.Error("preview with rows should not be empty")
	}
}

func TestSampleConfigLoads(t *testing.T) {
	for _, minimal := range []bool{false, true} {
		t.Run(fmt.Sprintf("minimal=%v", minimal), func(t *testing.T) {
			data, err := sampleConfig(minimal)
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), "dlgen.yaml")
			if err := os.WriteFile(path, data, 0o600); err != nil {
				t.Fatal(err)
			}
			loaded, err := config.NewLoader().LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			defaults := config.DefaultConfig()
			if loaded.API.BaseURL != defaults.API.BaseURL || loaded.Generation.Timeout != defaults.Generation.Timeout {
				t.Errorf("loaded config differs from defaults: %+v", loaded)
			}
		})
	}
}

// fakeBackend serves the endpoints one generation run touches
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	deleted  []string
	uploaded string
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeBackend) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	handle := func(mux *http.ServeMux, name string, v interface{}) {
		mux.HandleFunc("/api/"+name, func(w http.ResponseWriter, r *http.Request) {
			f.record(name)
			writeJSON(w, v)
		})
	}

	mux := http.NewServeMux()
	handle(mux, api.EndpointCheckSession, map[string]interface{}{"success": true, "username": "ann", "access": api.AccessAdmin})
	handle(mux, api.EndpointSetOutputFormat, map[string]interface{}{"success": true, "format": api.FormatZip})
	handle(mux, api.EndpointSetMode, map[string]interface{}{"success": true, "mode": api.ModeDLOnly})
	handle(mux, api.EndpointFolders, []string{"Acme", "Globex"})
	handle(mux, api.EndpointAllFolders, []string{"Acme", "Globex", "Initech"})
	handle(mux, api.EndpointDLTypes, []string{"Standard"})
	handle(mux, api.EndpointTemplates, map[string]interface{}{"message": "2 templates", "templates": []string{"letter.docx"}})
	handle(mux, api.EndpointPlaceholders, map[string]interface{}{"message": "Template loaded", "placeholders": []string{"{{Name}}", "{{Area}}"}})
	handle(mux, api.EndpointCleanup, map[string]interface{}{"success": true})
	handle(mux, api.EndpointUsers, []api.User{{Email: "bob@example.com", Access: api.AccessUser, Clients: []string{"Acme"}}})

	mux.HandleFunc("/api/"+api.EndpointUploadExcel, func(w http.ResponseWriter, r *http.Request) {
		f.record(api.EndpointUploadExcel)
		if _, header, err := r.FormFile("file"); err == nil {
			f.mu.Lock()
			f.uploaded = header.Filename
			f.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"Name":"Ann","Area":"North"},{"Name":"Bob","Area":"South"}]}`))
	})
	mux.HandleFunc("/api/"+api.EndpointGeneratePDFs, func(w http.ResponseWriter, r *http.Request) {
		f.record(api.EndpointGeneratePDFs)
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte("{\"progress\": 50, \"message\": \"Rendering\"}\n{\"progress\": 100, \"message\": \"Done\", \"download_ready\": true}\n"))
	})
	mux.HandleFunc("/api/"+api.EndpointDownloadZip, func(w http.ResponseWriter, r *http.Request) {
		f.record(api.EndpointDownloadZip)
		w.Header().Set("Content-Disposition", `attachment; filename="documents.zip"`)
		_, _ = w.Write([]byte("PK-archive"))
	})
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			f.mu.Lock()
			f.deleted = append(f.deleted, strings.TrimPrefix(r.URL.Path, "/api/users/"))
			f.mu.Unlock()
		}
		writeJSON(w, map[string]interface{}{"success": true})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// writeTestConfig points a config file at server and returns its path
func writeTestConfig(t *testing.T, server *httptest.Server, downloadDir string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`api:
  base_url: %s/api
  timeout: 5s
  session_file: %s
generation:
  timeout: 5s
  download_dir: %s
`, server.URL, filepath.Join(dir, "session.json"), downloadDir)
	path := filepath.Join(dir, "dlgen.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheetName := f.GetSheetName(0)
	if err := f.SetSheetRow(sheetName, "A1", &[]string{"Name", "Area"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow(sheetName, "A2", &[]string{"Ann", "North"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	emoji.SetEmojiDisabled(true)
	root := NewRootCommand("test", "none", "unknown")
	root.SetArgs(args)
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	return root.Execute()
}

func TestGenerateCommandRunsWholeFlow(t *testing.T) {
	backend := &fakeBackend{}
	server := backend.server(t)
	downloads := t.TempDir()
	cfgPath := writeTestConfig(t, server, downloads)

	workbook := filepath.Join(t.TempDir(), "accounts.xlsx")
	writeWorkbook(t, workbook)

	err := runRoot(t, "--config", cfgPath, "--output", "json", "--no-emoji",
		"generate", "--format", "zip", "--mode", api.ModeDLOnly, "--folder", "Acme",
		"--doc-type", "Standard", "--template", "letter.docx", "--file", workbook, "--cleanup")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(downloads, "documents.zip"))
	if err != nil {
		t.Fatalf("archive not saved: %v", err)
	}
	if string(data) != "PK-archive" {
		t.Errorf("archive content = %q", data)
	}

	want := []string{
		api.EndpointCheckSession, api.EndpointFolders, api.EndpointSetOutputFormat, api.EndpointSetMode, api.EndpointFolders,
		api.EndpointDLTypes, api.EndpointTemplates, api.EndpointPlaceholders, api.EndpointUploadExcel,
		api.EndpointGeneratePDFs, api.EndpointDownloadZip, api.EndpointCleanup,
	}
	if got := backend.called(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v\nwant    %v", got, want)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.uploaded != "accounts.xlsx" {
		t.Errorf("uploaded = %q", backend.uploaded)
	}
}

func TestGenerateNamesAvailableChoices(t *testing.T) {
	backend := &fakeBackend{}
	server := backend.server(t)
	cfgPath := writeTestConfig(t, server, t.TempDir())

	workbook := filepath.Join(t.TempDir(), "accounts.xlsx")
	writeWorkbook(t, workbook)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown folder", []string{"--folder", "Nope"}, "choose from: Acme, Globex"},
		{"missing template", []string{"--folder", "Acme", "--doc-type", "Standard"}, "--template is required (choose from: letter.docx)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "-o", "json", "generate", "--file", workbook}, tt.args...)
			err := runRoot(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestDownloadDirDoesNotShadowOutputFormat(t *testing.T) {
	backend := &fakeBackend{}
	server := backend.server(t)
	cfgPath := writeTestConfig(t, server, t.TempDir())
	target := t.TempDir()

	err := runRoot(t, "--config", cfgPath, "-o", "json", "download", "--download-dir", target)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if outputFmt != "json" {
		t.Errorf("output format = %q, want json", outputFmt)
	}
	data, err := os.ReadFile(filepath.Join(target, "documents.zip"))
	if err != nil {
		t.Fatalf("archive not saved in --download-dir: %v", err)
	}
	if string(data) != "PK-archive" {
		t.Errorf("archive content = %q", data)
	}
}

func TestUsersDeleteWithYes(t *testing.T) {
	backend := &fakeBackend{}
	server := backend.server(t)
	cfgPath := writeTestConfig(t, server, t.TempDir())

	if err := runRoot(t, "--config", cfgPath, "users", "delete", "bob@example.com", "--yes"); err != nil {
		t.Fatalf("users delete failed: %v", err)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.deleted) != 1 || backend.deleted[0] != "bob@example.com" {
		t.Errorf("deleted = %v", backend.deleted)
	}
}

func TestUsersAddRejectsUnknownFolder(t *testing.T) {
	backend := &fakeBackend{}
	server := backend.server(t)
	cfgPath := writeTestConfig(t, server, t.TempDir())

	err := runRoot(t, "--config", cfgPath, "users", "add", "cy@example.com", "--folders", "Umbrella")
	if err == nil || !strings.Contains(err.Error(), "Acme, Globex, Initech") {
		t.Errorf("error = %v, want the offered folders", err)
	}
}
