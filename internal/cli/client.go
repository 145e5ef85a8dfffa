package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/app"
	"github.com/yildizm/dlgen/internal/config"
	"github.com/yildizm/dlgen/internal/session"
	"github.com/yildizm/dlgen/internal/sheet"
)

// errNotSignedIn is returned by commands that need a session when there is none
var errNotSignedIn = errors.New("not signed in (run 'dlgen login' first)")

// newClient builds the backend client from the loaded configuration
func newClient() (*api.Client, error) {
	client, err := api.New(api.Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		SessionFile: config.ExpandPath(cfg.API.SessionFile),
		Logger:      newLogger("api"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// newApp wires the application state around client
func newApp(client *api.Client) *app.App {
	return app.New(client, app.Config{
		GenerationTimeout: cfg.Generation.Timeout,
		AuditPageSize:     cfg.Audit.PageSize,
		AuditDetailSize:   cfg.Audit.DetailPageSize,
		NoticeTTL:         cfg.UI.NoticeTTL,
		Preflight:         sheet.Check,
		Logger:            newLogger("app"),
	})
}

// connect creates the client and application and restores the saved session
func connect(ctx context.Context) (*api.Client, *app.App, error) {
	client, err := newClient()
	if err != nil {
		return nil, nil, err
	}
	a := newApp(client)
	if _, err := a.Start(ctx, ""); err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			return nil, nil, errNotSignedIn
		}
		return nil, nil, describe(err)
	}
	return client, a, nil
}

// describe turns err into the message shown to the user
func describe(err error) error {
	if err == nil {
		return nil
	}
	if msg := app.Describe(err); msg != "" && msg != err.Error() {
		if isVerbose() {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return errors.New(msg)
	}
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
