package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/formatter"
	"github.com/yildizm/dlgen/internal/users"
)

var (
	usersSearch string
	usersAccess string

	userAccess     string
	userFolders    []string
	userAllFolders bool

	deleteYes bool
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users (admin only)",
		Long: `List, add, edit and delete the users allowed to generate documents,
and the template folders each of them may use.`,
	}
	cmd.AddCommand(newUsersListCommand())
	cmd.AddCommand(newUsersAddCommand())
	cmd.AddCommand(newUsersEditCommand())
	cmd.AddCommand(newUsersDeleteCommand())
	return cmd
}

func newUsersListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Example: `  dlgen users list
  dlgen users list --search acme --access admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}
			if _, err := a.Users.Refresh(ctx); err != nil {
				return describe(err)
			}
			return printReport(formatter.UsersReport(a.Users.Filter(usersSearch, usersAccess)))
		},
	}
	cmd.Flags().StringVarP(&usersSearch, "search", "s", "", "match email or folder, ignoring case")
	cmd.Flags().StringVar(&usersAccess, "access", "", "only show users with this access (admin, user)")
	return cmd
}

func addUserFormFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&userAccess, "access", "", "access level (admin, user)")
	cmd.Flags().StringSliceVar(&userFolders, "folders", nil, "template folders the user may use (comma separated)")
	cmd.Flags().BoolVar(&userAllFolders, "all-folders", false, "grant every template folder")
}

func newUsersAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add a user",
		Example: `  dlgen users add ann@example.com --folders Acme,Globex
  dlgen users add cy@example.com --access admin --all-folders`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}
			if _, err := a.Users.OpenCreate(ctx); err != nil {
				return describe(err)
			}
			defer a.Users.Close()
			if err := a.Users.SetEmail(args[0]); err != nil {
				return err
			}
			return submitUserForm(ctx, a.Users, true)
		},
	}
	addUserFormFlags(cmd)
	return cmd
}

func newUsersEditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <email>",
		Short: "Change a user's access or folders",
		Long: `Change a user's access level or template folders. Folders given with
--folders replace the current ones; without it the folders stay as they are.`,
		Example: `  dlgen users edit ann@example.com --access admin
  dlgen users edit ann@example.com --folders Acme`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}
			list, err := a.Users.Refresh(ctx)
			if err != nil {
				return describe(err)
			}
			u, ok := findUser(list, args[0])
			if !ok {
				return fmt.Errorf("user %s not found", args[0])
			}
			if _, err := a.Users.OpenEdit(ctx, u); err != nil {
				return describe(err)
			}
			defer a.Users.Close()
			replace := cmd.Flags().Changed("folders") || userAllFolders
			return submitUserForm(ctx, a.Users, replace)
		},
	}
	addUserFormFlags(cmd)
	return cmd
}

// submitUserForm applies the form flags to the open form and saves it
func submitUserForm(ctx context.Context, p *users.Panel, replaceFolders bool) error {
	if userAccess != "" {
		if err := p.SetAccess(userAccess); err != nil {
			return err
		}
	}
	if replaceFolders {
		if err := p.DeselectAll(); err != nil {
			return err
		}
		if userAllFolders {
			if err := p.SelectAll(); err != nil {
				return err
			}
		}
		for _, folder := range userFolders {
			if err := p.Toggle(strings.TrimSpace(folder)); err != nil {
				if errors.Is(err, users.ErrUnknownFolder) {
					return fmt.Errorf("%w%s", err, choices(p.Form().Folders))
				}
				return err
			}
		}
	}

	msg, err := p.Submit(ctx)
	if err != nil {
		if msg != "" {
			// saved, but the list did not reload
			status("success", "%s", msg)
		}
		return errors.New(users.Message(err))
	}
	status("success", "%s", msg)
	return nil
}

func findUser(list []api.User, email string) (api.User, bool) {
	for _, u := range list {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return api.User{}, false
}

func newUsersDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <email>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			if !deleteYes {
				fmt.Printf("Delete %s? (y/N): ", email)
				answer, err := readLine(cmd)
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					status("info", "Cancelled")
					return nil
				}
			}

			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}
			msg, err := a.Users.Delete(ctx, email)
			if err != nil && msg == "" {
				return errors.New(users.Message(err))
			}
			status("success", "%s", msg)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
