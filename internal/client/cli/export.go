package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/aiaccountant/internal/client/client"
	"github.com/dmitrijs2005/aiaccountant/internal/netx"
	"github.com/dmitrijs2005/aiaccountant/internal/transcript"
)

var downloadPresignedURL = netx.DownloadPresignedURL

type exportOptions struct {
	format  string
	out     string
	local   bool
	archive bool
}

func newExportCmd(e *env) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session transcript",
		Long: `Export a session transcript as Markdown, YAML or JSON.

By default the server renders the transcript and it is written to --out or
stdout. --local renders it on this machine from the session's messages.
--archive stores a copy in the server's object storage and prints a
download link; with --out the archived copy is downloaded as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.local && opts.archive {
				return fmt.Errorf("--local and --archive cannot be combined")
			}
			if _, err := transcript.NewExporter(opts.format); err != nil {
				return err
			}

			app, err := loggedIn(cmd, e)
			if err != nil {
				return err
			}

			id := args[0]
			if opts.archive {
				return exportArchive(cmd, app.api, id, opts)
			}

			var body []byte
			if opts.local {
				body, err = renderLocal(cmd.Context(), app.api, id, opts.format)
			} else {
				body, err = app.api.Transcript(cmd.Context(), id, opts.format)
			}
			if err != nil {
				return sessionErr(id, err)
			}
			return writeOutput(cmd, opts.out, body)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", transcript.DefaultFormat, "Output format: md, yaml or json")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Render the transcript locally")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Store the transcript in the server archive")
	return cmd
}

// renderLocal builds the transcript from the session and its messages.
func renderLocal(ctx context.Context, api client.Client, id, format string) ([]byte, error) {
	exp, err := transcript.NewExporter(format)
	if err != nil {
		return nil, err
	}

	s, err := api.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := api.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	t := &transcript.Transcript{
		SessionID: s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		Messages:  make([]transcript.Entry, 0, len(msgs)),
	}
	for _, m := range msgs {
		t.Messages = append(t.Messages, transcript.Entry{Role: m.Role, Text: m.Text, CreatedAt: m.CreatedAt})
	}

	var buf bytes.Buffer
	if err := exp.Export(t, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportArchive(cmd *cobra.Command, api client.Client, id string, opts exportOptions) error {
	res, err := api.Export(cmd.Context(), id, opts.format)
	if err != nil {
		return sessionErr(id, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", okStyle.Render("Archived as"), res.Key)
	fmt.Fprintln(w, res.URL)

	if opts.out == "" {
		return nil
	}

	f, err := os.OpenFile(opts.out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := downloadPresignedURL(cmd.Context(), res.URL, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(w, "Saved to", opts.out)
	return nil
}

func writeOutput(cmd *cobra.Command, path string, body []byte) error {
	if path == "" {
		_, err := io.Copy(cmd.OutOrStdout(), bytes.NewReader(body))
		return err
	}
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Saved to", path)
	return nil
}
