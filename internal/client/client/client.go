package client

import (
	"context"

	"github.com/dmitrijs2005/aiaccountant/internal/client/models"
)

// Client is the API contract used by the CLI. HTTPClient implements it.
type Client interface {
	SetTokens(t models.Tokens)
	Tokens() models.Tokens

	Register(ctx context.Context, username, password string) (models.Tokens, error)
	Login(ctx context.Context, username, password string) (models.Tokens, error)
	Refresh(ctx context.Context) (models.Tokens, error)
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Ping(ctx context.Context) error

	ListSessions(ctx context.Context) ([]models.Session, error)
	CreateSession(ctx context.Context, title *string) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	RenameSession(ctx context.Context, id, title string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListMessages(ctx context.Context, sessionID string) ([]models.Message, error)
	Ask(ctx context.Context, sessionID, message string) (string, error)
	Transcript(ctx context.Context, sessionID, format string) ([]byte, error)
	Export(ctx context.Context, sessionID, format string) (*models.ExportResult, error)
}
