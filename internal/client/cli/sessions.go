package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/aiaccountant/internal/client/client"
)

// loggedIn opens the App and restores the stored session.
func loggedIn(cmd *cobra.Command, e *env) (*App, error) {
	app, err := e.open(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := app.requireLogin(cmd.Context()); err != nil {
		return nil, err
	}
	return app, nil
}

// sessionErr adds the session id to not-found errors.
func sessionErr(id string, err error) error {
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("session %s not found", id)
	}
	return err
}

func newSessionsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List your sessions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}
			sessions, err := app.api.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func newNewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title...]",
		Short: "Start a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}

			var title *string
			if len(args) > 0 {
				t := strings.Join(args, " ")
				title = &t
			}

			s, err := app.api.CreateSession(cmd.Context(), title)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newRenameCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session-id> <title...>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}
			s, err := app.api.RenameSession(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return sessionErr(args[0], err)
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newRmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}
			if err := app.api.DeleteSession(cmd.Context(), args[0]); err != nil {
				return sessionErr(args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
			return nil
		},
	}
}

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session with its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}
			return showSession(cmd.Context(), app.api, args[0], cmd)
		},
	}
}

func showSession(ctx context.Context, api client.Client, id string, cmd *cobra.Command) error {
	s, err := api.GetSession(ctx, id)
	if err != nil {
		return sessionErr(id, err)
	}
	msgs, err := api.ListMessages(ctx, id)
	if err != nil {
		return sessionErr(id, err)
	}

	w := cmd.OutOrStdout()
	printSession(w, s)
	fmt.Fprintln(w)
	printMessages(w, msgs)
	return nil
}

func newAskCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <session-id> <question...>",
		Short: "Ask one question within a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}
			answer, err := app.api.Ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return sessionErr(args[0], err)
			}
			printAnswer(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
