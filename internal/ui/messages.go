package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/app"
	"github.com/yildizm/dlgen/internal/report"
	"github.com/yildizm/dlgen/internal/session"
	"github.com/yildizm/dlgen/internal/wizard"
)

// Message types produced by commands
type (
	tickMsg time.Time

	sessionMsg struct {
		user *session.User
		err  error
		code bool
	}

	// stepMsg reports a finished wizard transition; state is read from the snapshot
	stepMsg struct {
		err error
	}

	progressMsg struct {
		snap wizard.Snapshot
	}

	runDoneMsg struct {
		err error
	}

	resultMsg struct {
		text string
		err  error
	}

	usersMsg struct {
		err error
	}

	formMsg struct {
		err error
	}

	auditMsg struct {
		err error
	}

	logoutMsg struct {
		err error
	}
)

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func startCmd(ctx context.Context, a *app.App, code string) tea.Cmd {
	return func() tea.Msg {
		user, err := a.Start(ctx, code)
		return sessionMsg{user: user, err: err, code: code != ""}
	}
}

func logoutCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		return logoutMsg{err: a.Logout(ctx)}
	}
}

func stepCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return stepMsg{err: fn()}
	}
}

// generateCmd starts a run in the background. Snapshots are dropped when the
// UI falls behind; the latest state is always read back from the wizard.
func generateCmd(ctx context.Context, w *wizard.Machine, updates chan wizard.Snapshot, done chan error) tea.Cmd {
	go func() {
		done <- w.Generate(ctx, func(s wizard.Snapshot) {
			select {
			case updates <- s:
			default:
			}
		})
	}()
	return waitForRun(updates, done)
}

func waitForRun(updates <-chan wizard.Snapshot, done <-chan error) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-updates:
			return progressMsg{snap: s}
		case err := <-done:
			return runDoneMsg{err: err}
		}
	}
}

func downloadCmd(ctx context.Context, w *wizard.Machine, dir string, cleanup bool) tea.Cmd {
	return func() tea.Msg {
		path, err := w.Download(ctx, dir)
		if err != nil {
			return resultMsg{err: err}
		}
		text := "Saved " + path
		if cleanup {
			if err := w.Cleanup(ctx); err != nil {
				return resultMsg{text: text, err: err}
			}
		}
		return resultMsg{text: text}
	}
}

func printCmd(ctx context.Context, w *wizard.Machine, area, printer string) tea.Cmd {
	return func() tea.Msg {
		text, err := w.Print(ctx, area, printer)
		return resultMsg{text: text, err: err}
	}
}

func cleanupCmd(ctx context.Context, w *wizard.Machine) tea.Cmd {
	return func() tea.Msg {
		if err := w.Cleanup(ctx); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{text: "Server files cleaned up"}
	}
}

func loadUsersCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Users.Refresh(ctx)
		return usersMsg{err: err}
	}
}

func openFormCmd(ctx context.Context, a *app.App, edit *api.User) tea.Cmd {
	return func() tea.Msg {
		var err error
		if edit != nil {
			_, err = a.Users.OpenEdit(ctx, *edit)
		} else {
			_, err = a.Users.OpenCreate(ctx)
		}
		return formMsg{err: err}
	}
}

func submitFormCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		text, err := a.Users.Submit(ctx)
		return resultMsg{text: text, err: err}
	}
}

func deleteUserCmd(ctx context.Context, a *app.App, email string) tea.Cmd {
	return func() tea.Msg {
		text, err := a.Users.Delete(ctx, email)
		return resultMsg{text: text, err: err}
	}
}

func loadAuditCmd(ctx context.Context, a *app.App, page int) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Audit.Load(ctx, page)
		return auditMsg{err: err}
	}
}

func openAuditCmd(ctx context.Context, a *app.App, id, page int) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Audit.Open(ctx, id, page)
		return auditMsg{err: err}
	}
}

// exportAuditCmd writes the open detail page as a PDF into dir
func exportAuditCmd(a *app.App, dir string) tea.Cmd {
	return func() tea.Msg {
		detail := a.Audit.Detail()
		if detail == nil {
			return resultMsg{err: errors.New("no audit entry is open")}
		}
		author := ""
		if u := a.User(); u != nil {
			author = u.Username
		}
		data, err := report.AuditPDF(detail, detail.Accounts, report.Options{Author: author, GeneratedAt: time.Now()})
		if err != nil {
			return resultMsg{err: err}
		}
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, fmt.Sprintf("audit-%d-page-%d.pdf", detail.AuditID, detail.Pagination.CurrentPage))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return resultMsg{err: fmt.Errorf("failed to write %s: %w", path, err)}
		}
		return resultMsg{text: "Exported " + path}
	}
}
