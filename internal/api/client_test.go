package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCheckSessionDecodesPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/check_session", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"username": "Ana Reyes",
			"role":     "ops",
			"access":   "admin",
			"clients":  []string{"ACME", "Globex"},
			"avatar": map[string]interface{}{
				"avatar_url":    "https://cdn.example.com/a.png",
				"avatar_origin": "https://cdn.example.com/a-origin.png",
			},
		})
	})
	c, _ := newTestClient(t, mux)

	s, err := c.CheckSession(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Success)
	assert.Equal(t, "Ana Reyes", s.Username)
	assert.Equal(t, AccessAdmin, s.Access)
	assert.Equal(t, []string{"ACME", "Globex"}, s.Clients)
	assert.Equal(t, "https://cdn.example.com/a.png", s.Avatar.URL)
}

func TestAvatarAcceptsBothShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object", `{"avatar":{"avatar_url":"x.png","open_id":"ou_1"}}`, "x.png"},
		{"plain url", `{"avatar":"y.png"}`, "y.png"},
		{"null", `{"avatar":null}`, ""},
		{"missing", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Session
			require.NoError(t, json.Unmarshal([]byte(tt.body), &s))
			assert.Equal(t, tt.want, s.Avatar.URL)
		})
	}

	var s Session
	assert.Error(t, json.Unmarshal([]byte(`{"avatar":42}`), &s))
}

func TestUnauthorizedInvokesHookForAnyEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	unauthorized := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
	}
	mux.HandleFunc("/api/folders", unauthorized)
	mux.HandleFunc("/api/audit_trail", unauthorized)
	mux.HandleFunc("/api/users", unauthorized)
	c, _ := newTestClient(t, mux)

	var calls int32
	var lastEndpoint atomic.Value
	c.OnUnauthorized(func(err *Error) {
		atomic.AddInt32(&calls, 1)
		lastEndpoint.Store(err.Endpoint)
	})

	_, err := c.Folders(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	_, err = c.AuditTrail(context.Background(), 1, 10)
	assert.True(t, IsUnauthorized(err))

	_, err = c.Users(context.Background())
	assert.True(t, IsUnauthorized(err))

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, EndpointUsers, lastEndpoint.Load())
}

func TestForbiddenKeepsSessionAndCarriesDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dl_types", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Access denied to folder"})
	})
	c, _ := newTestClient(t, mux)

	hooked := false
	c.OnUnauthorized(func(*Error) { hooked = true })

	_, err := c.DLTypes(context.Background(), "ACME")
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.False(t, hooked)
	assert.Equal(t, "Access denied to folder", Detail(err, "fallback"))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   *Error
		detail string
	}{
		{http.StatusBadRequest, ErrValidation, "Invalid mode"},
		{http.StatusNotFound, ErrNotFound, "User not found"},
		{http.StatusInternalServerError, ErrServer, "Failed to connect to FTP server"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/set_mode", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"detail": tt.detail})
			})
			c, _ := newTestClient(t, mux)

			_, err := c.SetMode(context.Background(), ModeDLOnly)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.Equal(t, tt.detail, Detail(err, ""))
		})
	}
}

func TestStructuredDetailIsKeptAsText(t *testing.T) {
	body := []byte(`{"detail":[{"loc":["body","folder"],"msg":"field required"}]}`)
	assert.Contains(t, decodeDetail(body), "field required")
	assert.Equal(t, "boom", decodeDetail([]byte(`{"error":"boom"}`)))
	assert.Equal(t, "", decodeDetail([]byte(`not json`)))
}

func TestNetworkErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url})
	require.NoError(t, err)

	_, err = c.Folders(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "generic", Detail(err, "generic"))
}

func TestCascadingRequestsSendExpectedBodies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/placeholders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req PlaceholderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, PlaceholderRequest{Folder: "ACME", DLType: "Demand", Template: "first.docx"}, req)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":           "Placeholders retrieved",
			"placeholders":      []string{"«NAME»", "«IMAGE_BARCODE»"},
			"template_combined": true,
		})
	})
	mux.HandleFunc("/api/transmittal_placeholders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ACME", r.URL.Query().Get("folder"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":      "ok",
			"placeholders": []string{"«AREA»"},
		})
	})
	c, _ := newTestClient(t, mux)

	resp, err := c.Placeholders(context.Background(), PlaceholderRequest{Folder: "ACME", DLType: "Demand", Template: "first.docx"})
	require.NoError(t, err)
	assert.True(t, resp.TemplateCombined)
	assert.Len(t, resp.Placeholders, 2)

	tr, err := c.TransmittalPlaceholders(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, []string{"«AREA»"}, tr.Placeholders)
}

func TestUploadSendsMultipartFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx-bytes"), 0o600))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload_excel", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "accounts.xlsx", hdr.Filename)
		assert.Equal(t, "xlsx-bytes", string(data))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": []map[string]interface{}{{"NAME": "A"}, {"NAME": "B"}},
		})
	})
	c, _ := newTestClient(t, mux)

	resp, err := c.UploadExcel(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "B", resp.Data[1].Text("NAME"))
}

func TestGeneratePDFsReturnsStreamBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate_pdfs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"progress":10,"message":"a"}`+"\n")
		_, _ = io.WriteString(w, `{"progress":100,"download_ready":true}`+"\n")
	})
	c, _ := newTestClient(t, mux)

	body, err := c.GeneratePDFs(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestDownloadZipUsesContentDisposition(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/download_zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="ACME_DL.zip"`)
		_, _ = w.Write([]byte("PK-zip-bytes"))
	})
	c, _ := newTestClient(t, mux)

	var buf bytes.Buffer
	d, err := c.DownloadZip(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, "ACME_DL.zip", d.Filename)
	assert.Equal(t, int64(len("PK-zip-bytes")), d.Size)
	assert.Equal(t, "PK-zip-bytes", buf.String())
}

func TestUserMutationsUseEmailPath(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "ok"})
	})
	c, _ := newTestClient(t, mux)

	_, err := c.UpdateUser(context.Background(), "ana@example.com", User{Email: "ana@example.com", Clients: []string{"ACME"}, Access: AccessUser})
	require.NoError(t, err)
	_, err = c.DeleteUser(context.Background(), "ana@example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"PUT /api/users/ana@example.com", "DELETE /api/users/ana@example.com"}, seen)
}

func TestAuditQueriesCarryPaging(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/audit_details/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"audit_id": 42,
			"client":   "ACME",
			"accounts": []map[string]string{{"dl_code": "DL-1", "name": "A", "address": "X", "area": "North"}},
			"pagination": map[string]interface{}{
				"current_page": 2, "total_pages": 3, "total_count": 120, "limit": 50,
				"has_next": true, "has_prev": true,
			},
		})
	})
	c, _ := newTestClient(t, mux)

	d, err := c.AuditDetails(context.Background(), 42, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 42, d.AuditID)
	assert.Equal(t, "North", d.Accounts[0].Area)
	assert.True(t, d.Pagination.HasNext)
	assert.Equal(t, 120, d.Pagination.TotalCount)
}

func TestSessionCookieIsPersisted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/lark_callback", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("code"))
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "s3cr3t", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "username": "Ana", "role": "ops"})
	})
	mux.HandleFunc("/api/check_session", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session_id")
		if err != nil || cookie.Value != "s3cr3t" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "username": "Ana"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")

	first, err := New(Options{BaseURL: srv.URL + "/api", SessionFile: sessionFile})
	require.NoError(t, err)
	_, err = first.ExchangeCode(context.Background(), "abc")
	require.NoError(t, err)
	require.FileExists(t, sessionFile)

	second, err := New(Options{BaseURL: srv.URL + "/api", SessionFile: sessionFile})
	require.NoError(t, err)
	s, err := second.CheckSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.Username)

	second.ClearSession()
	assert.NoFileExists(t, sessionFile)
}
