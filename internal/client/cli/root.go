package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/aiaccountant/internal/client/config"
)

// env carries the configuration into the commands and opens the App on
// first use, after cobra has applied the flags.
type env struct {
	cfg *config.Config
	app *App
}

func (e *env) open(cmd *cobra.Command) (*App, error) {
	if e.app != nil {
		return e.app, nil
	}
	app, err := NewApp(cmd.Context(), e.cfg, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	e.app = app
	return app, nil
}

func (e *env) close() {
	if e.app != nil {
		_ = e.app.Close()
		e.app = nil
	}
}

// NewRootCmd builds the command tree. The returned cleanup closes the App if
// a command opened it.
func NewRootCmd(cfg *config.Config) (*cobra.Command, func()) {
	e := &env{cfg: cfg}

	root := &cobra.Command{
		Use:   "aiaccountant",
		Short: "Talk to your AI accountant from the terminal",
		Long: `A terminal client for the AI accountant service.

Quick Start:
  aiaccountant register alice           # create an account and log in
  aiaccountant new "Q3 taxes"           # start a conversation
  aiaccountant chat <session-id>        # chat interactively
  aiaccountant export <session-id> --format yaml --out q3.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to JSON config file")
	flags.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Base URL of the AI accountant API")
	flags.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Directory holding the local login state")
	flags.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Timeout of a single API request")

	root.AddCommand(
		newRegisterCmd(e),
		newLoginCmd(e),
		newLogoutCmd(e),
		newWhoAmICmd(e),
		newDeleteAccountCmd(e),
		newSessionsCmd(e),
		newNewCmd(e),
		newRenameCmd(e),
		newRmCmd(e),
		newShowCmd(e),
		newAskCmd(e),
		newChatCmd(e),
		newExportCmd(e),
	)

	return root, e.close
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context, cfg *config.Config) error {
	root, cleanup := NewRootCmd(cfg)
	defer cleanup()
	return root.ExecuteContext(ctx)
}

