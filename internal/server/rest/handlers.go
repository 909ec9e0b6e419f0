package rest

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
	"github.com/dmitrijs2005/aiaccountant/internal/server/services"
	"github.com/dmitrijs2005/aiaccountant/internal/transcript"
)

// UserService is the account side of the API.
type UserService interface {
	UserChecker
	Register(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	DeleteAccount(ctx context.Context, userID string) error
}

type HistoryService interface {
	CreateSession(ctx context.Context, caller string, title *string) (*models.Session, error)
	ListSessions(ctx context.Context, caller string) ([]*models.Session, error)
	GetSession(ctx context.Context, caller, id string) (*models.Session, error)
	RenameSession(ctx context.Context, caller, id, title string) (*models.Session, error)
	DeleteSession(ctx context.Context, caller, id string) error
	ListMessages(ctx context.Context, caller, sessionID string) ([]*models.Message, error)
}

type ChatService interface {
	Ask(ctx context.Context, caller, sessionID, message string) (*services.Answer, error)
}

type ExportService interface {
	Render(ctx context.Context, caller, sessionID, format string, w io.Writer) (transcript.Exporter, error)
	Export(ctx context.Context, caller, sessionID, format string) (*services.ExportResult, error)
}

// --- request and response bodies ---

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "bearer"}
}

type statusResponse struct {
	Status string `json:"status"`
}

type createSessionRequest struct {
	Title *string `json:"title"`
}

type renameSessionRequest struct {
	Title string `json:"title"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func newSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt}
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

type exportResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
