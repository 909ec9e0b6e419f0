// Package messages persists the turns of chat sessions.
package messages

import (
	"context"

	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
)

type Repository interface {
	// Add inserts msg and fills in ID, Seq and CreatedAt. The caller is
	// trusted to own the session; a session that no longer exists yields
	// common.ErrorNotFound.
	Add(ctx context.Context, msg *models.Message) (*models.Message, error)

	// ListForOwner returns all messages of sessionID in chronological order,
	// or an empty slice when the session is not owned by userID.
	ListForOwner(ctx context.Context, userID string, sessionID string) ([]*models.Message, error)

	// Recent returns the last n messages of sessionID in chronological order.
	Recent(ctx context.Context, sessionID string, n int) ([]*models.Message, error)
}
