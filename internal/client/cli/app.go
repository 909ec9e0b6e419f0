package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dmitrijs2005/aiaccountant/internal/client/client"
	"github.com/dmitrijs2005/aiaccountant/internal/client/config"
	"github.com/dmitrijs2005/aiaccountant/internal/client/models"
	"github.com/dmitrijs2005/aiaccountant/internal/client/services"
	"github.com/dmitrijs2005/aiaccountant/internal/filex"
)

// App bundles what the commands need: the API client, the auth service and
// the local state database.
type App struct {
	config *config.Config
	api    client.Client
	auth   services.AuthService
	db     *sql.DB
	reader *bufio.Reader
}

// NewApp opens the state database under c.StateDir and wires an HTTP API
// client for c.ServerURL. Token pairs handed out by the server are persisted
// as they arrive.
func NewApp(ctx context.Context, c *config.Config, in io.Reader) (*App, error) {
	dir, err := filex.EnsureDir(c.StateDir)
	if err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}

	db, err := client.InitDatabase(ctx, filepath.Join(dir, config.StateFile))
	if err != nil {
		return nil, fmt.Errorf("state database: %w", err)
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	auth := services.NewAuthService(api, db)
	api.OnTokens(func(t models.Tokens) {
		// Register and login persist the pair themselves; this catches
		// transparent refreshes.
		_ = auth.SaveTokens(context.Background(), t)
	})

	return &App{config: c, api: api, auth: auth, db: db, reader: bufio.NewReader(in)}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// requireLogin loads the stored session and returns its username.
func (a *App) requireLogin(ctx context.Context) (string, error) {
	username, err := a.auth.Restore(ctx)
	if errors.Is(err, client.ErrNotLoggedIn) {
		return "", fmt.Errorf("%w: run 'login' or 'register' first", err)
	}
	return username, err
}
