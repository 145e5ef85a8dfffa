package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/dlgen/internal/logger"
)

// RequestIDHeader carries a per-request correlation id
const RequestIDHeader = "X-Request-ID"

// Options configures a Client
type Options struct {
	BaseURL     string
	Timeout     time.Duration // per-request ceiling for non-streaming calls
	SessionFile string        // optional cookie persistence path
	Logger      *logger.Logger
	HTTPClient  *http.Client
}

// Client talks to the document-generation backend. Every 401 from any
// endpoint is reported to the unauthorized hook before being returned.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	jar     *resettableJar
	store   *cookieStore
	log     *logger.Logger

	mu             sync.RWMutex
	onUnauthorized func(*Error)
}

// New creates a backend client
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, NewError(ErrTypeValidation, "", "base URL must not be empty")
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return nil, NewErrorWithCause(ErrTypeValidation, "", "invalid base URL", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	jar := newResettableJar()
	httpClient.Jar = jar

	log := opts.Logger
	if log == nil {
		log = logger.Quiet("api")
	}

	c := &Client{
		baseURL: baseURL,
		http:    httpClient,
		jar:     jar,
		timeout: opts.Timeout,
		log:     log,
	}

	if opts.SessionFile != "" {
		c.store = &cookieStore{path: opts.SessionFile}
		if err := c.store.load(jar, baseURL); err != nil {
			log.Warn("Ignoring unreadable session file %s: %v", opts.SessionFile, err)
		}
	}

	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// URL resolves an endpoint path against the API root
func (c *Client) URL(endpoint string) string {
	return c.baseURL.JoinPath(endpoint).String()
}

// OnUnauthorized registers the hook invoked for every 401 response.
func (c *Client) OnUnauthorized(fn func(*Error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// ClearSession drops the persisted session cookie.
func (c *Client) ClearSession() {
	c.jar.reset()
	if c.store != nil {
		if err := c.store.clear(); err != nil {
			c.log.Warn("Failed to remove session file: %v", err)
		}
	}
}

func (c *Client) persistSession() {
	if c.store == nil {
		return
	}
	if err := c.store.save(c.jar, c.baseURL); err != nil {
		c.log.Warn("Failed to persist session: %v", err)
	}
}

// request describes one backend call
type request struct {
	method      string
	endpoint    string
	query       url.Values
	body        io.Reader
	contentType string
	stream      bool // caller owns the body; no per-request timeout
}

// do executes a request and returns the response on 2xx. The caller closes the body.
func (c *Client) do(ctx context.Context, r request) (*http.Response, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if !r.stream && c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	u := c.baseURL.JoinPath(r.endpoint)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		cancel()
		return nil, nil, NewErrorWithCause(ErrTypeValidation, r.endpoint, "failed to create request", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, NewErrorWithCause(ErrTypeTimeout, r.endpoint, "request timed out", err)
		}
		return nil, nil, NewErrorWithCause(ErrTypeNetwork, r.endpoint, "request failed", err)
	}

	c.log.DebugWithFields("%s %s", []logger.Field{
		logger.F("status", resp.StatusCode),
		logger.F("request_id", requestID),
		logger.Duration(time.Since(start)),
	}, r.method, r.endpoint)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer func() { _ = resp.Body.Close() }()
		apiErr := c.errorFromResponse(r.endpoint, resp)
		if apiErr.Type == ErrTypeUnauthorized {
			c.handleUnauthorized(apiErr)
		}
		return nil, nil, apiErr
	}

	return resp, cancel, nil
}

func (c *Client) handleUnauthorized(err *Error) {
	c.log.Info("Session rejected by %s", err.Endpoint)
	c.ClearSession()

	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

func (c *Client) errorFromResponse(endpoint string, resp *http.Response) *Error {
	errorType := errorForStatus(resp.StatusCode)
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	message := http.StatusText(resp.StatusCode)
	if detail := decodeDetail(body); detail != "" {
		message = detail
	}

	return &Error{
		Type:       errorType,
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// decodeDetail extracts {detail} or {error}; detail may be a string or a structured list.
func decodeDetail(body []byte) string {
	var raw struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	if len(raw.Detail) > 0 {
		var s string
		if err := json.Unmarshal(raw.Detail, &s); err == nil {
			return s
		}
		return string(raw.Detail)
	}
	return raw.Error
}

// getJSON performs a GET and decodes the JSON response into out
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, request{method: http.MethodGet, endpoint: endpoint, query: query}, out)
}

// sendJSON performs a request with a JSON body and decodes the response into out
func (c *Client) sendJSON(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return NewErrorWithCause(ErrTypeValidation, endpoint, "failed to encode request", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.doJSON(ctx, request{method: method, endpoint: endpoint, body: body, contentType: contentType}, out)
}

func (c *Client) doJSON(ctx context.Context, r request, out interface{}) error {
	resp, cancel, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewErrorWithCause(ErrTypeDecode, r.endpoint, "failed to decode response", err)
	}
	return nil
}

// multipartFile builds a single-file multipart body under the field name "file"
func multipartFile(path string) (*bytes.Buffer, string, error) {
	// #nosec G304 - path is supplied by the operator on purpose
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
