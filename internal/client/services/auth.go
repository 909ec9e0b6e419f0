// Package services contains application services for the AI accountant
// client. This file defines the authentication service: register, login,
// logout and account deletion, with the token pair kept in the local state
// database between CLI invocations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/aiaccountant/internal/client/client"
	"github.com/dmitrijs2005/aiaccountant/internal/client/models"
	"github.com/dmitrijs2005/aiaccountant/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	// Restore loads the stored session into the API client and returns the
	// username it belongs to, or client.ErrNotLoggedIn.
	Restore(ctx context.Context) (string, error)
	SaveTokens(ctx context.Context, t models.Tokens) error
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) Register(ctx context.Context, username, password string) error {
	tokens, err := a.client.Register(ctx, username, password)
	if err != nil {
		return err
	}
	return a.saveSession(ctx, username, tokens)
}

func (a *authService) Login(ctx context.Context, username, password string) error {
	tokens, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return a.saveSession(ctx, username, tokens)
}

// saveSession persists username and tokens in a single transaction.
func (a *authService) saveSession(ctx context.Context, username string, t models.Tokens) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, metadata.KeyUsername, username); err != nil {
			return err
		}
		return setTokens(ctx, repo, t)
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SaveTokens replaces the stored pair, e.g. after a transparent refresh.
func (a *authService) SaveTokens(ctx context.Context, t models.Tokens) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return setTokens(ctx, metadata.NewSQLiteRepository(tx), t)
	})
}

func setTokens(ctx context.Context, repo metadata.Repository, t models.Tokens) error {
	if err := repo.Set(ctx, metadata.KeyAccessToken, t.AccessToken); err != nil {
		return err
	}
	return repo.Set(ctx, metadata.KeyRefreshToken, t.RefreshToken)
}

func (a *authService) Restore(ctx context.Context) (string, error) {
	repo := metadata.NewSQLiteRepository(a.db)

	stored, err := repo.List(ctx)
	if err != nil {
		return "", err
	}

	username := stored[metadata.KeyUsername]
	access := stored[metadata.KeyAccessToken]
	if username == "" || access == "" {
		return "", client.ErrNotLoggedIn
	}

	a.client.SetTokens(models.Tokens{AccessToken: access, RefreshToken: stored[metadata.KeyRefreshToken]})
	return username, nil
}

// Logout revokes the refresh token on the server and wipes local state. A
// server that no longer accepts the tokens still results in a local logout.
func (a *authService) Logout(ctx context.Context) error {
	if _, err := a.Restore(ctx); err != nil {
		return err
	}

	if err := a.client.Logout(ctx); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return a.clear(ctx)
}

func (a *authService) DeleteAccount(ctx context.Context) error {
	if _, err := a.Restore(ctx); err != nil {
		return err
	}

	if err := a.client.DeleteAccount(ctx); err != nil {
		return err
	}
	return a.clear(ctx)
}

func (a *authService) clear(ctx context.Context) error {
	a.client.SetTokens(models.Tokens{})
	return metadata.NewSQLiteRepository(a.db).Clear(ctx)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
