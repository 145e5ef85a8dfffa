// Package session establishes and tears down the authenticated session.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/guard"
	"github.com/yildizm/dlgen/internal/logger"
)

var (
	// ErrExchangeInFlight is returned when a code exchange is already running
	ErrExchangeInFlight = errors.New("authorization code exchange already in progress")

	// ErrNotAuthenticated is returned when the backend reports no valid session
	ErrNotAuthenticated = errors.New("not authenticated")
)

// User is the signed-in identity
type User struct {
	Username  string   `json:"username"`
	Role      string   `json:"role"`
	Access    string   `json:"access"`
	Clients   []string `json:"clients"`
	AvatarURL string   `json:"avatar_url,omitempty"`
}

// IsAdmin reports whether the user may manage users and read the audit trail
func (u *User) IsAdmin() bool {
	return u != nil && u.Access == api.AccessAdmin
}

func fromPayload(s *api.Session) *User {
	return &User{
		Username:  s.Username,
		Role:      s.Role,
		Access:    s.Access,
		Clients:   append([]string(nil), s.Clients...),
		AvatarURL: s.Avatar.URL,
	}
}

// Backend is the subset of the API client the controller needs
type Backend interface {
	CheckSession(ctx context.Context) (*api.Session, error)
	ExchangeCode(ctx context.Context, code string) (*api.Session, error)
	Logout(ctx context.Context) (*api.StatusResponse, error)
	LoginURL() string
}

// Controller runs login, probe and logout flows
type Controller struct {
	backend  Backend
	exchange *guard.Guard
	log      *logger.Logger
}

// NewController creates a session controller
func NewController(backend Backend, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Quiet("session")
	}
	return &Controller{
		backend:  backend,
		exchange: guard.New(),
		log:      log,
	}
}

// LoginURL is the address the user opens to sign in
func (c *Controller) LoginURL() string {
	return c.backend.LoginURL()
}

// Bootstrap exchanges code when one is given, then verifies the session.
// Without a code it probes the existing session directly. A second call
// made while an exchange is running returns ErrExchangeInFlight and does nothing.
func (c *Controller) Bootstrap(ctx context.Context, code string) (*User, error) {
	code = strings.TrimSpace(code)
	if code != "" {
		release, ok := c.exchange.TryEnter()
		if !ok {
			c.log.Debug("Ignoring re-entrant code exchange")
			return nil, ErrExchangeInFlight
		}
		defer release()

		resp, err := c.backend.ExchangeCode(ctx, code)
		if api.IsUnauthorized(err) {
			return nil, notAuthenticated(api.Detail(err, ""), "Authentication failed.")
		}
		if err != nil {
			return nil, fmt.Errorf("code exchange failed: %w", err)
		}
		if !resp.Success {
			return nil, notAuthenticated(resp.Detail, "Authentication failed.")
		}
		c.log.Info("Exchanged authorization code for %s", resp.Username)
	}

	return c.Probe(ctx)
}

// Probe checks the current session without exchanging anything
func (c *Controller) Probe(ctx context.Context) (*User, error) {
	resp, err := c.backend.CheckSession(ctx)
	if api.IsUnauthorized(err) {
		// the backend answers 401 when no session cookie was sent
		return nil, notAuthenticated(api.Detail(err, ""), "No active session.")
	}
	if err != nil {
		return nil, fmt.Errorf("session check failed: %w", err)
	}
	if !resp.Success {
		return nil, notAuthenticated(resp.Detail, "No active session.")
	}
	return fromPayload(resp), nil
}

// Logout ends the session server-side
func (c *Controller) Logout(ctx context.Context) error {
	resp, err := c.backend.Logout(ctx)
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	if !resp.Success {
		detail := resp.Detail
		if detail == "" {
			detail = "Logout failed."
		}
		return errors.New(detail)
	}
	return nil
}

// AuthError carries the backend's reason for refusing a session
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	return e.Detail
}

func (e *AuthError) Unwrap() error {
	return ErrNotAuthenticated
}

func notAuthenticated(detail, fallback string) error {
	if detail == "" {
		detail = fallback
	}
	return &AuthError{Detail: detail}
}

// ParseCode accepts either a bare authorization code or the full
// redirect URL the browser landed on, and returns the code.
func ParseCode(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.Contains(input, "code=") {
		return input
	}
	if u, err := url.Parse(input); err == nil {
		if code := u.Query().Get("code"); code != "" {
			return code
		}
	}
	if q, err := url.ParseQuery(strings.TrimPrefix(input, "?")); err == nil {
		return q.Get("code")
	}
	return ""
}
