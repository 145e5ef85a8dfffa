// Package users implements the administrator's user management panel.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/logger"
)

// User-facing messages
const (
	MessageIncomplete    = "Please fill in all fields and select at least one template folder"
	MessageAdminRequired = "Admin access required for user management."
	MessageCreated       = "User created successfully"
	MessageUpdated       = "User updated successfully"
	MessageDeleted       = "User deleted successfully"
)

var (
	// ErrIncomplete is returned by Submit when email or folders are missing
	ErrIncomplete = errors.New(MessageIncomplete)

	// ErrNoForm is returned when no form is open
	ErrNoForm = errors.New("no user form is open")

	// ErrUnknownFolder is returned when toggling a folder the form does not offer
	ErrUnknownFolder = errors.New("folder is not available")
)

// Backend is the subset of the API client the panel uses
type Backend interface {
	Users(ctx context.Context) ([]api.User, error)
	AllFolders(ctx context.Context) ([]string, error)
	CreateUser(ctx context.Context, u api.User) (*api.StatusResponse, error)
	UpdateUser(ctx context.Context, email string, u api.User) (*api.StatusResponse, error)
	DeleteUser(ctx context.Context, email string) (*api.StatusResponse, error)
}

// Mode distinguishes a create form from an edit form
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Form is an open create or edit form
type Form struct {
	Mode    Mode
	Email   string
	Access  string
	Folders []string
	Checked map[string]bool
}

// EmailLocked reports whether the email field is read-only
func (f *Form) EmailLocked() bool {
	return f.Mode == ModeEdit
}

// Selected returns the checked folders in offered order
func (f *Form) Selected() []string {
	var out []string
	for _, folder := range f.Folders {
		if f.Checked[folder] {
			out = append(out, folder)
		}
	}
	return out
}

// Validate checks the form before submission
func (f *Form) Validate() error {
	if strings.TrimSpace(f.Email) == "" || len(f.Selected()) == 0 {
		return ErrIncomplete
	}
	return nil
}

func (f *Form) clone() *Form {
	c := *f
	c.Folders = append([]string(nil), f.Folders...)
	c.Checked = make(map[string]bool, len(f.Checked))
	for k, v := range f.Checked {
		c.Checked[k] = v
	}
	return &c
}

// Panel holds the user list and the open form
type Panel struct {
	backend Backend
	log     *logger.Logger
	fold    cases.Caser

	mu    sync.Mutex
	users []api.User
	form  *Form
}

// NewPanel creates an empty panel
func NewPanel(backend Backend, log *logger.Logger) *Panel {
	if log == nil {
		log = logger.Quiet("users")
	}
	return &Panel{backend: backend, log: log, fold: cases.Fold()}
}

// Message maps an error to the notice shown to the administrator
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case api.IsForbidden(err):
		return MessageAdminRequired
	case errors.Is(err, ErrIncomplete):
		return MessageIncomplete
	default:
		return api.Detail(err, err.Error())
	}
}

// Refresh reloads the user list, keeping the order the server returned
func (p *Panel) Refresh(ctx context.Context) ([]api.User, error) {
	list, err := p.backend.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	p.mu.Lock()
	p.users = list
	p.mu.Unlock()
	p.log.Debug("Loaded %d users", len(list))
	return append([]api.User(nil), list...), nil
}

// Users returns the last loaded list
func (p *Panel) Users() []api.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.User(nil), p.users...)
}

// Filter returns users whose email or folders contain query, ignoring case,
// restricted to access when it is non-empty.
func (p *Panel) Filter(query, access string) []api.User {
	p.mu.Lock()
	defer p.mu.Unlock()

	needle := p.fold.String(strings.TrimSpace(query))
	var out []api.User
	for _, u := range p.users {
		if access != "" && u.Access != access {
			continue
		}
		if needle != "" && !p.matches(u, needle) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (p *Panel) matches(u api.User, needle string) bool {
	if strings.Contains(p.fold.String(u.Email), needle) {
		return true
	}
	for _, c := range u.Clients {
		if strings.Contains(p.fold.String(c), needle) {
			return true
		}
	}
	return false
}

// OpenCreate opens an empty form over a fresh folder list
func (p *Panel) OpenCreate(ctx context.Context) (*Form, error) {
	folders, err := p.backend.AllFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load folders: %w", err)
	}
	form := &Form{Mode: ModeCreate, Access: api.AccessUser, Folders: folders, Checked: map[string]bool{}}
	p.setForm(form)
	return form.clone(), nil
}

// OpenEdit opens a form for u with its folders pre-checked
func (p *Panel) OpenEdit(ctx context.Context, u api.User) (*Form, error) {
	folders, err := p.backend.AllFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load folders: %w", err)
	}
	form := &Form{Mode: ModeEdit, Email: u.Email, Access: u.Access, Folders: folders, Checked: map[string]bool{}}
	for _, c := range u.Clients {
		form.Checked[c] = true
	}
	if form.Access == "" {
		form.Access = api.AccessUser
	}
	p.setForm(form)
	return form.clone(), nil
}

func (p *Panel) setForm(f *Form) {
	p.mu.Lock()
	p.form = f
	p.mu.Unlock()
}

// Form returns a copy of the open form, or nil
func (p *Panel) Form() *Form {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.form == nil {
		return nil
	}
	return p.form.clone()
}

// Close discards the open form
func (p *Panel) Close() {
	p.setForm(nil)
}

func (p *Panel) edit(fn func(f *Form) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.form == nil {
		return ErrNoForm
	}
	return fn(p.form)
}

// SetEmail changes the email of a create form; edit forms keep theirs
func (p *Panel) SetEmail(email string) error {
	return p.edit(func(f *Form) error {
		if f.EmailLocked() {
			return nil
		}
		f.Email = strings.TrimSpace(email)
		return nil
	})
}

// SetAccess sets the access level
func (p *Panel) SetAccess(access string) error {
	if access != api.AccessAdmin && access != api.AccessUser {
		return fmt.Errorf("invalid access level: %s (must be one of: admin, user)", access)
	}
	return p.edit(func(f *Form) error {
		f.Access = access
		return nil
	})
}

// Toggle flips one folder checkbox
func (p *Panel) Toggle(folder string) error {
	return p.edit(func(f *Form) error {
		for _, offered := range f.Folders {
			if offered == folder {
				f.Checked[folder] = !f.Checked[folder]
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrUnknownFolder, folder)
	})
}

// SelectAll checks every folder
func (p *Panel) SelectAll() error {
	return p.edit(func(f *Form) error {
		for _, folder := range f.Folders {
			f.Checked[folder] = true
		}
		return nil
	})
}

// DeselectAll clears every folder
func (p *Panel) DeselectAll() error {
	return p.edit(func(f *Form) error {
		f.Checked = map[string]bool{}
		return nil
	})
}

// Submit creates or updates the user, closes the form and reloads the list.
// It returns the success notice.
func (p *Panel) Submit(ctx context.Context) (string, error) {
	form := p.Form()
	if form == nil {
		return "", ErrNoForm
	}
	if err := form.Validate(); err != nil {
		return "", err
	}

	u := api.User{Email: form.Email, Clients: form.Selected(), Access: form.Access}
	var (
		resp *api.StatusResponse
		err  error
		msg  string
	)
	if form.Mode == ModeEdit {
		resp, err = p.backend.UpdateUser(ctx, form.Email, u)
		msg = MessageUpdated
	} else {
		resp, err = p.backend.CreateUser(ctx, u)
		msg = MessageCreated
	}
	if err != nil {
		return "", err
	}
	if resp != nil && resp.Message != "" {
		msg = resp.Message
	}

	p.Close()
	p.log.Info("Saved user %s", u.Email)
	if _, err := p.Refresh(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}

// Delete removes a user and reloads the list
func (p *Panel) Delete(ctx context.Context, email string) (string, error) {
	resp, err := p.backend.DeleteUser(ctx, email)
	if err != nil {
		return "", err
	}
	msg := MessageDeleted
	if resp != nil && resp.Message != "" {
		msg = resp.Message
	}
	p.log.Info("Deleted user %s", email)
	if _, err := p.Refresh(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}
