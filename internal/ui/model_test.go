package ui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/app"
	"github.com/yildizm/dlgen/internal/users"
	"github.com/yildizm/dlgen/internal/wizard"
)

type backend struct {
	access   string
	signedIn atomic.Bool
	expired  atomic.Bool

	mu      sync.Mutex
	code    string
	deleted []string

	// release, when set, holds generate_pdfs open until closed
	release chan struct{}
}

func newBackend(access string, signedIn bool) *backend {
	b := &backend{access: access}
	b.signedIn.Store(signedIn)
	return b
}

func (b *backend) server(t *testing.T) *httptest.Server {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/check_session", func(w http.ResponseWriter, r *http.Request) {
		if !b.signedIn.Load() {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "username": "ann", "access": b.access, "clients": []string{"Acme"},
		})
	})
	mux.HandleFunc("/api/lark_callback", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.code = r.URL.Query().Get("code")
		b.mu.Unlock()
		b.signedIn.Store(true)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "username": "ann"})
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		b.signedIn.Store(false)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	mux.HandleFunc("/api/set_output_format", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "format": "zip"})
	})
	mux.HandleFunc("/api/set_mode", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "mode": api.ModeDLOnly})
	})
	mux.HandleFunc("/api/folders", func(w http.ResponseWriter, r *http.Request) {
		if b.expired.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		writeJSON(w, http.StatusOK, []string{"Acme", "Globex"})
	})
	mux.HandleFunc("/api/transmittal_placeholders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"placeholders": []string{"«AREA»"}, "folder": r.URL.Query().Get("folder")})
	})
	mux.HandleFunc("/api/upload_excel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": []map[string]string{{"Account": "A-1"}}})
	})
	mux.HandleFunc("/api/generate_pdfs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, `{"progress": 50, "message": "Rendering"}`+"\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if b.release != nil {
			select {
			case <-b.release:
			case <-r.Context().Done():
				return
			}
		}
		_, _ = io.WriteString(w, `{"progress": 100, "message": "Done", "download_ready": true}`+"\n")
	})
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []api.User{
			{Email: "bob@example.com", Access: api.AccessUser, Clients: []string{"Acme"}},
			{Email: "cy@example.com", Access: api.AccessAdmin, Clients: []string{"Globex"}},
		})
	})
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			b.mu.Lock()
			b.deleted = append(b.deleted, strings.TrimPrefix(r.URL.Path, "/api/users/"))
			b.mu.Unlock()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newModel(t *testing.T, b *backend) *Model {
	t.Helper()
	server := b.server(t)
	client, err := api.New(api.Options{BaseURL: server.URL + "/api", Timeout: time.Second})
	require.NoError(t, err)
	a := app.New(client, app.Config{GenerationTimeout: time.Second, NoticeTTL: time.Minute})

	m := New(context.Background(), a, Options{DownloadDir: t.TempDir()})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	settle(m, startCmd(context.Background(), a, ""))
	return m
}

// settle runs cmd and feeds its messages back until the chain ends
func settle(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case nil, tickMsg, tea.BatchMsg:
			return
		}
		_, cmd = m.Update(msg)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends keys and returns the command of the last one
func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

func TestRestoresSessionOnStart(t *testing.T) {
	m := newModel(t, newBackend(api.AccessUser, true))

	assert.Equal(t, ScreenGenerator, m.screen)
	assert.Empty(t, m.busy)
	view := m.View()
	assert.Contains(t, view, "ann")
	assert.Contains(t, view, wizard.PromptFormat)
	assert.NotContains(t, view, "3 Audit", "admin tabs are hidden from users")
}

func TestLoginAcceptsRedirectURL(t *testing.T) {
	b := newBackend(api.AccessUser, false)
	m := newModel(t, b)
	require.Equal(t, ScreenLogin, m.screen)
	assert.Nil(t, m.app.Notice(), "no notice when there is nothing to restore")
	assert.Contains(t, m.View(), "/api/login")

	press(m, "http://localhost:5000/callback?code=abc123")
	settle(m, press(m, "enter"))

	assert.Equal(t, ScreenGenerator, m.screen)
	b.mu.Lock()
	assert.Equal(t, "abc123", b.code)
	b.mu.Unlock()
}

func TestPickersDriveTheWizard(t *testing.T) {
	m := newModel(t, newBackend(api.AccessUser, true))

	// format picker: prompt, zip, print
	press(m, "enter")
	require.NotNil(t, m.picker)
	settle(m, press(m, "down", "enter"))
	assert.Nil(t, m.picker)
	assert.Equal(t, api.FormatZip, m.app.Wizard.Snapshot().OutputFormat)

	press(m, "down")
	assert.Equal(t, fieldMode, m.focus)
	press(m, "enter")
	settle(m, press(m, "down", "enter"))

	snap := m.app.Wizard.Snapshot()
	assert.Equal(t, api.ModeDLOnly, snap.Mode)
	assert.Equal(t, []string{"Acme", "Globex"}, snap.FolderOptions.Values)
	assert.Contains(t, m.View(), wizard.PromptFolder)

	// choosing the prompt clears the mode again
	press(m, "enter")
	settle(m, press(m, "up", "up", "enter"))
	assert.Equal(t, wizard.FormatSelected, m.app.Wizard.Snapshot().Stage)
	assert.Equal(t, fieldMode, m.focus)
}

func TestUsersViewRequiresAdmin(t *testing.T) {
	m := newModel(t, newBackend(api.AccessUser, true))

	press(m, "2")
	assert.Equal(t, ScreenGenerator, m.screen)
	notice := m.app.Notice()
	require.NotNil(t, notice)
	assert.Equal(t, app.MessageAdminRequired, notice.Text)
}

func TestUsersSearchAndDelete(t *testing.T) {
	b := newBackend(api.AccessAdmin, true)
	m := newModel(t, b)

	settle(m, press(m, "2"))
	require.Equal(t, ScreenUsers, m.screen)
	assert.Equal(t, 2, m.userList.Len())

	press(m, "/", "b", "o", "b", "enter")
	assert.Equal(t, "bob", m.userQuery)
	assert.Equal(t, 1, m.userList.Len())

	press(m, "D")
	assert.Equal(t, "bob@example.com", m.confirmEmail)
	assert.Contains(t, m.View(), "Delete bob@example.com?")

	settle(m, press(m, "y"))
	b.mu.Lock()
	assert.Equal(t, []string{"bob@example.com"}, b.deleted)
	b.mu.Unlock()
	notice := m.app.Notice()
	require.NotNil(t, notice)
	assert.Equal(t, app.NoticeSuccess, notice.Kind)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	b := newBackend(api.AccessAdmin, true)
	m := newModel(t, b)
	settle(m, press(m, "2"))

	press(m, "D")
	assert.Nil(t, press(m, "n"))
	assert.Empty(t, m.confirmEmail)
	b.mu.Lock()
	assert.Empty(t, b.deleted)
	b.mu.Unlock()
}

func TestUserFormRequiresFolders(t *testing.T) {
	m := newModel(t, newBackend(api.AccessAdmin, true))
	settle(m, press(m, "2"))

	// all_folders is not served, so opening the form fails with a notice
	settle(m, press(m, "n"))
	assert.Equal(t, ScreenUsers, m.screen)
	require.NotNil(t, m.app.Notice())
	assert.Equal(t, app.NoticeError, m.app.Notice().Kind)
	assert.NotEqual(t, users.MessageCreated, m.app.Notice().Text)
}

func TestSessionExpiryReturnsToLogin(t *testing.T) {
	b := newBackend(api.AccessAdmin, true)
	m := newModel(t, b)

	press(m, "enter")
	settle(m, press(m, "down", "enter"))
	b.expired.Store(true)

	press(m, "down", "enter")
	settle(m, press(m, "down", "enter"))

	assert.Equal(t, ScreenLogin, m.screen)
	assert.Equal(t, purposeCode, m.typing)
	notice := m.app.Notice()
	require.NotNil(t, notice)
	assert.Equal(t, app.MessageSessionExpired, notice.Text)
	assert.Equal(t, wizard.NoFormat, m.app.Wizard.Snapshot().Stage)
}

func TestResetKeyIgnoredWhileGenerating(t *testing.T) {
	b := newBackend(api.AccessUser, true)
	b.release = make(chan struct{})
	m := newModel(t, b)
	ctx := context.Background()
	w := m.app.Wizard

	require.NoError(t, w.SelectFormat(ctx, api.FormatZip))
	require.NoError(t, w.SelectMode(ctx, api.ModeTransmittalOnly))
	require.NoError(t, w.SelectFolder(ctx, "Acme"))
	path := filepath.Join(t.TempDir(), "accounts.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0o600))
	require.NoError(t, w.Upload(ctx, path))

	done := make(chan error, 1)
	go func() { done <- w.Generate(ctx, nil) }()
	require.Eventually(t, func() bool {
		s := w.Snapshot()
		return s.InputsDisabled && s.Progress.Percent == 50
	}, time.Second, 5*time.Millisecond)

	press(m, "r")
	assert.Equal(t, wizard.Generating, w.Snapshot().Stage, "reset waits for the run")
	close(b.release)

	require.NoError(t, <-done)
	snap := w.Snapshot()
	assert.Equal(t, wizard.Succeeded, snap.Stage)
	assert.True(t, snap.DownloadReady)
	assert.Equal(t, api.ModeTransmittalOnly, snap.Mode)
}

func TestLogoutShowsLogin(t *testing.T) {
	m := newModel(t, newBackend(api.AccessUser, true))

	settle(m, press(m, "L"))
	assert.Equal(t, ScreenLogin, m.screen)
	notice := m.app.Notice()
	require.NotNil(t, notice)
	assert.Equal(t, app.MessageLoggedOut, notice.Text)
}
