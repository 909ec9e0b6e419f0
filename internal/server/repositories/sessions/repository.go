// Package sessions persists chat sessions. Every query is scoped by the
// owning user, so a session that belongs to someone else is reported as
// common.ErrorNotFound, exactly like one that does not exist.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, title string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)
	Get(ctx context.Context, userID string, id string) (*models.Session, error)
	Rename(ctx context.Context, userID string, id string, title string) (*models.Session, error)
	Delete(ctx context.Context, userID string, id string) error
}
