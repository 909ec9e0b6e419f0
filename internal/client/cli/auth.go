package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/aiaccountant/internal/client/client"
	"github.com/dmitrijs2005/aiaccountant/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// credentials takes the username from args or asks for it, then asks for the
// password.
func credentials(cmd *cobra.Command, app *App, args []string) (string, []byte, error) {
	username := ""
	if len(args) > 0 {
		username = args[0]
	} else {
		u, err := getSimpleText(app.reader, "Enter username", cmd.OutOrStdout())
		if err != nil {
			return "", nil, err
		}
		username = u
	}

	password, err := getPassword(app.reader, cmd.OutOrStdout())
	if err != nil {
		return "", nil, err
	}
	return username, password, nil
}

func newRegisterCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account and log in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}

			username, password, err := credentials(cmd, app, args)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			if err := app.auth.Register(cmd.Context(), username, string(password)); err != nil {
				if errors.Is(err, client.ErrUsernameTaken) {
					return fmt.Errorf("username %q is already taken", username)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Registered and logged in as "+username))
			return nil
		},
	}
}

func newLoginCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Log in to an existing account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}

			username, password, err := credentials(cmd, app, args)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			if err := app.auth.Login(cmd.Context(), username, string(password)); err != nil {
				if errors.Is(err, client.ErrUnauthorized) {
					return errors.New("invalid username or password")
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Logged in as "+username))
			return nil
		},
	}
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			if err := app.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoAmICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			username, err := app.requireLogin(cmd.Context())
			if err != nil {
				return err
			}

			status := okStyle.Render("online")
			if err := app.auth.Ping(cmd.Context()); err != nil {
				status = ErrorStyle.Render("offline")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s @ %s (%s)\n", titleStyle.Render(username), app.config.ServerURL, status)
			return nil
		},
	}
}

func newDeleteAccountCmd(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the account with all its sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("this removes every session and message; pass --yes to confirm")
			}
			app, err := e.open(cmd)
			if err != nil {
				return err
			}
			if err := app.auth.DeleteAccount(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}
