// Package refreshtokens stores the opaque refresh tokens handed out at login
// and registration.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
)

// Repository defines operations for issuing, consuming and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID expiring at expires.
	Create(ctx context.Context, userID string, token string, expires time.Time) error

	// Find looks up a refresh token without consuming it. Returns
	// common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Take deletes the token and returns the row it removed, so a token can
	// be redeemed at most once even under concurrent requests. Returns
	// common.ErrorNotFound when the token is absent.
	Take(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token owned by userID. Deleting a token that
	// does not exist is not an error.
	Delete(ctx context.Context, userID string, token string) error
}
