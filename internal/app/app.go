// Package app owns the application state: the signed-in user, the active
// view, notices, and the wizard and admin panels. Every change goes through
// a named transition.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/audit"
	"github.com/yildizm/dlgen/internal/logger"
	"github.com/yildizm/dlgen/internal/session"
	"github.com/yildizm/dlgen/internal/users"
	"github.com/yildizm/dlgen/internal/wizard"
)

// User-facing messages
const (
	MessageSessionExpired = "Session expired. Please log in again."
	MessageAdminRequired  = "Access denied. Admin role required."
	MessageFolderDenied   = "Access denied to this template folder."
	MessageLoggedOut      = "Logged out successfully"
)

// ErrAdminRequired is returned when a non-admin switches to an admin view
var ErrAdminRequired = errors.New(MessageAdminRequired)

// View is the screen currently shown
type View int

const (
	ViewGenerator View = iota
	ViewUsers
	ViewAudit
)

var viewNames = map[View]string{
	ViewGenerator: "generator",
	ViewUsers:     "users",
	ViewAudit:     "audit",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "unknown"
}

// AdminOnly reports whether the view requires the admin role
func (v View) AdminOnly() bool {
	return v == ViewUsers || v == ViewAudit
}

// NoticeKind classifies a notice
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient message shown above the current view
type Notice struct {
	Kind NoticeKind
	Text string
	At   time.Time
}

// Client is the API surface the application needs
type Client interface {
	session.Backend
	wizard.Backend
	users.Backend
	audit.Backend
	OnUnauthorized(fn func(*api.Error))
}

// Config configures an App
type Config struct {
	GenerationTimeout time.Duration
	AuditPageSize     int
	AuditDetailSize   int
	NoticeTTL         time.Duration
	Preflight         func(path string) error
	Logger            *logger.Logger

	// OnChange is called after every transition that changes what is shown
	OnChange func()

	// Now is the clock used for notice expiry
	Now func() time.Time
}

// App is the application state
type App struct {
	Session *session.Controller
	Wizard  *wizard.Machine
	Users   *users.Panel
	Audit   *audit.Panel

	log       *logger.Logger
	noticeTTL time.Duration
	onChange  func()
	now       func() time.Time

	mu     sync.Mutex
	user   *session.User
	view   View
	notice *Notice
}

// New creates the application around client and registers the 401 hook
func New(client Client, cfg Config) *App {
	if cfg.Logger == nil {
		cfg.Logger = logger.Quiet("app")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	a := &App{
		Session: session.NewController(client, log.WithComponent("session")),
		Wizard: wizard.New(client, wizard.Config{
			Timeout:   cfg.GenerationTimeout,
			Preflight: cfg.Preflight,
			Logger:    log.WithComponent("wizard"),
		}),
		Users:     users.NewPanel(client, log.WithComponent("users")),
		Audit:     audit.NewPanel(client, cfg.AuditPageSize, cfg.AuditDetailSize, log.WithComponent("audit")),
		log:       log,
		noticeTTL: cfg.NoticeTTL,
		onChange:  cfg.OnChange,
		now:       cfg.Now,
	}
	client.OnUnauthorized(func(err *api.Error) {
		a.Expire()
	})
	return a
}

func (a *App) changed() {
	if a.onChange != nil {
		a.onChange()
	}
}

// Start restores or establishes the session. A non-empty code is exchanged first.
func (a *App) Start(ctx context.Context, code string) (*session.User, error) {
	user, err := a.Session.Bootstrap(ctx, code)
	if err != nil {
		if errors.Is(err, session.ErrExchangeInFlight) {
			return nil, err
		}
		var authErr *session.AuthError
		if errors.As(err, &authErr) && code == "" {
			// Nothing to restore; the login prompt stays up without a notice
			return nil, err
		}
		a.Fail(err)
		return nil, err
	}
	a.Login(user)

	if _, err := a.Wizard.LoadFolders(ctx); err != nil {
		if api.IsUnauthorized(err) {
			return nil, err
		}
		a.log.Warn("Failed to load folders: %v", err)
	}
	return user, nil
}

// Login installs the signed-in user and shows the generator
func (a *App) Login(user *session.User) {
	a.mu.Lock()
	a.user = user
	a.view = ViewGenerator
	a.notice = nil
	a.mu.Unlock()
	a.log.Info("Signed in as %s", user.Username)
	a.changed()
}

// Logout ends the session server-side and clears local state
func (a *App) Logout(ctx context.Context) error {
	if err := a.Session.Logout(ctx); err != nil {
		a.Fail(err)
		return err
	}
	a.clear()
	a.Notify(NoticeSuccess, MessageLoggedOut)
	return nil
}

// Expire tears the session down after the backend rejected it. It is
// installed as the client's 401 hook and is safe to call from any goroutine.
func (a *App) Expire() {
	a.mu.Lock()
	wasSignedIn := a.user != nil
	a.mu.Unlock()

	a.clear()
	if !wasSignedIn {
		// nobody was signed in, so there is nothing to announce
		return
	}
	a.log.Warn("Session expired")
	a.Notify(NoticeError, MessageSessionExpired)
}

func (a *App) clear() {
	a.Wizard.Reset()
	a.Users.Close()
	a.Audit.Close()

	a.mu.Lock()
	a.user = nil
	a.view = ViewGenerator
	a.mu.Unlock()
	a.changed()
}

// User returns the signed-in user, or nil
func (a *App) User() *session.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// LoginVisible reports whether the login prompt is shown instead of the application
func (a *App) LoginVisible() bool {
	return a.User() == nil
}

// View returns the active view
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// ShowView switches views. Admin views are refused to everyone else.
func (a *App) ShowView(v View) error {
	a.mu.Lock()
	if a.user == nil {
		a.mu.Unlock()
		return session.ErrNotAuthenticated
	}
	if v.AdminOnly() && !a.user.IsAdmin() {
		a.mu.Unlock()
		a.Notify(NoticeError, MessageAdminRequired)
		return ErrAdminRequired
	}
	a.view = v
	a.mu.Unlock()
	a.changed()
	return nil
}

// Notify replaces the current notice
func (a *App) Notify(kind NoticeKind, text string) {
	a.mu.Lock()
	a.notice = &Notice{Kind: kind, Text: text, At: a.now()}
	a.mu.Unlock()
	a.changed()
}

// Fail shows err as an error notice
func (a *App) Fail(err error) {
	if err == nil {
		return
	}
	a.Notify(NoticeError, Describe(err))
}

// Notice returns the current notice unless it has aged past the TTL
func (a *App) Notice() *Notice {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.notice == nil {
		return nil
	}
	if a.noticeTTL > 0 && a.now().Sub(a.notice.At) >= a.noticeTTL {
		a.notice = nil
		return nil
	}
	n := *a.notice
	return &n
}

// DismissNotice clears the current notice
func (a *App) DismissNotice() {
	a.mu.Lock()
	a.notice = nil
	a.mu.Unlock()
	a.changed()
}

// Describe maps an error to the text shown to the user
func Describe(err error) string {
	var authErr *session.AuthError
	switch {
	case err == nil:
		return ""
	case api.IsUnauthorized(err):
		return MessageSessionExpired
	case errors.As(err, &authErr):
		return authErr.Detail
	case api.IsForbidden(err):
		var apiErr *api.Error
		if errors.As(err, &apiErr) && isAdminEndpoint(apiErr.Endpoint) {
			return users.MessageAdminRequired
		}
		return MessageFolderDenied
	default:
		return api.Detail(err, err.Error())
	}
}

func isAdminEndpoint(endpoint string) bool {
	for _, prefix := range []string{api.EndpointUsers, api.EndpointAllFolders, api.EndpointAuditTrail, api.EndpointAuditDetails} {
		if strings.HasPrefix(endpoint, prefix) {
			return true
		}
	}
	return false
}
