package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/app"
	"github.com/yildizm/dlgen/internal/formatter"
	"github.com/yildizm/dlgen/internal/session"
)

var loginCode string

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		Long: `Sign in through the identity provider.

Without --code, dlgen prints the sign-in address and waits for you to paste
the authorization code or the full redirect URL the browser landed on.
The session cookie is saved so later commands stay signed in.`,
		Example: `  dlgen login
  dlgen login --code abc123
  dlgen login --code "http://localhost:5000/callback?code=abc123"`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
	cmd.Flags().StringVar(&loginCode, "code", "", "authorization code or redirect URL")
	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	client, err := newClient()
	if err != nil {
		return err
	}
	a := newApp(client)

	input := loginCode
	if input == "" {
		status("lock", "Open this address in a browser and sign in:")
		fmt.Printf("   %s\n\n", a.Session.LoginURL())
		fmt.Print("Paste the authorization code or redirect URL: ")
		input, err = readLine(cmd)
		if err != nil {
			return err
		}
	}

	code := session.ParseCode(input)
	if code == "" {
		return fmt.Errorf("no authorization code found in %q", strings.TrimSpace(input))
	}

	user, err := a.Start(ctx, code)
	if err != nil {
		return describe(err)
	}
	status("success", "Signed in as %s (%s)", user.Username, user.Access)
	return nil
}

func readLine(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			a := newApp(client)
			if err := a.Logout(commandContext(cmd)); err != nil {
				return describe(err)
			}
			status("door", "%s", app.MessageLoggedOut)
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long:  "Show the signed-in user, their access level and the template folders they may use.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := connect(commandContext(cmd))
			if err != nil {
				return err
			}
			return printReport(formatter.SessionReport(a.User()))
		},
	}
}

// commandContext returns the command's context, or a background one in tests
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
