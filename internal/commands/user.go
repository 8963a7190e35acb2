package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/store"
)

func newUserCommand(opts *options) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	userCmd.AddCommand(newUserAddCommand(opts), newUserPasswdCommand(opts), newUserListCommand(opts))
	return userCmd
}

func newUserAddCommand(opts *options) *cobra.Command {
	var u model.User
	var password, role string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			u.Username = args[0]
			u.Role = model.Role(role)
			created, err := a.Users.Create(cmd.Context(), opts.user, u, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", created.Username, created.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "initial password (required)")
	_ = cmd.MarkFlagRequired("password")
	cmd.Flags().StringVar(&role, "role", string(model.RoleViewer), "admin, accountant or viewer")
	cmd.Flags().StringVar(&u.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&u.Email, "email", "", "email address")

	return cmd
}

func newUserPasswdCommand(opts *options) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			name := strings.ToLower(args[0])
			for _, u := range users {
				if u.Username == name {
					if err := a.Users.SetPassword(cmd.Context(), opts.user, u.ID, password); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Password changed for %s\n", u.Username)
					return nil
				}
			}
			return fmt.Errorf("user %s: %w", name, store.ErrNotFound)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "new password (required)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newUserListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				status := "active"
				if !u.Active {
					status = "inactive"
				}
				rows = append(rows, []string{u.Username, u.FullName, string(u.Role), status})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Username", "Name", "Role", "Status"}, rows, nil))
			return nil
		},
	}
}
