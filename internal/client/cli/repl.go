package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/aiaccountant/internal/client/client"
	"github.com/dmitrijs2005/aiaccountant/internal/client/models"
)

// chatter is the part of the API the chat loop needs.
type chatter interface {
	Ask(ctx context.Context, sessionID, message string) (string, error)
	ListMessages(ctx context.Context, sessionID string) ([]models.Message, error)
}

const chatHelp = "Type a question and press Enter. Commands: /history, /help, /exit"

// runChat is the read-eval-print loop behind the chat command. Each line is
// sent to the session; the loop ends on EOF or /exit. Authentication and
// missing-session errors end the loop, other failures are printed and the
// user may retry.
func runChat(ctx context.Context, c chatter, sessionID string, scanner *bufio.Scanner, w io.Writer) error {
	fmt.Fprintln(w, dateStyle.Render(chatHelp))

	for {
		fmt.Fprint(w, userMessageStyle.Render("you")+"> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/exit", "/quit", "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return nil

		case "/help":
			fmt.Fprintln(w, chatHelp)

		case "/history":
			msgs, err := c.ListMessages(ctx, sessionID)
			if err != nil {
				if fatalChatErr(err) {
					return sessionErr(sessionID, err)
				}
				fmt.Fprintln(w, ErrorStyle.Render(err.Error()))
				continue
			}
			printMessages(w, msgs)

		default:
			answer, err := c.Ask(ctx, sessionID, line)
			if err != nil {
				if fatalChatErr(err) || ctx.Err() != nil {
					return sessionErr(sessionID, err)
				}
				fmt.Fprintln(w, ErrorStyle.Render(err.Error()))
				continue
			}
			printAnswer(w, answer)
		}
	}
}

func fatalChatErr(err error) bool {
	return errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrNotFound) || errors.Is(err, client.ErrNotLoggedIn)
}

func newChatCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <session-id>",
		Short: "Chat interactively within a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}

			s, err := app.api.GetSession(cmd.Context(), args[0])
			if err != nil {
				return sessionErr(args[0], err)
			}
			printSession(cmd.OutOrStdout(), s)

			return runChat(cmd.Context(), app.api, s.ID, bufio.NewScanner(app.reader), cmd.OutOrStdout())
		},
	}
}
