package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aiaccountant/internal/transcript"
	"github.com/google/uuid"
)

// HistoryService manages sessions and their messages. Every caller-facing
// method takes the authenticated user id and treats sessions owned by
// someone else as absent.
type HistoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewHistoryService(db *sql.DB, m repomanager.RepositoryManager) *HistoryService {
	return &HistoryService{db: db, repomanager: m}
}

// validSessionID rejects ids that cannot exist. They are reported as
// not found rather than invalid, like any other unknown session.
func validSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}
	return nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title must not be blank", common.ErrorValidation)
	}
	if utf8.RuneCountInString(title) > models.MaxSessionTitleLen {
		return "", fmt.Errorf("%w: title longer than %d characters", common.ErrorValidation, models.MaxSessionTitleLen)
	}
	return title, nil
}

// CreateSession creates a session for caller. A nil or blank title becomes
// models.DefaultSessionTitle.
func (s *HistoryService) CreateSession(ctx context.Context, caller string, title *string) (*models.Session, error) {
	t := models.DefaultSessionTitle
	if title != nil && strings.TrimSpace(*title) != "" {
		var err error
		if t, err = normalizeTitle(*title); err != nil {
			return nil, err
		}
	}
	return s.repomanager.Sessions(s.db).Create(ctx, caller, t)
}

// ListSessions returns the sessions of caller, newest first.
func (s *HistoryService) ListSessions(ctx context.Context, caller string) ([]*models.Session, error) {
	return s.repomanager.Sessions(s.db).ListByUser(ctx, caller)
}

func (s *HistoryService) GetSession(ctx context.Context, caller, id string) (*models.Session, error) {
	if err := validSessionID(id); err != nil {
		return nil, err
	}
	return s.repomanager.Sessions(s.db).Get(ctx, caller, id)
}

func (s *HistoryService) RenameSession(ctx context.Context, caller, id, title string) (*models.Session, error) {
	if err := validSessionID(id); err != nil {
		return nil, err
	}
	t, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Sessions(s.db).Rename(ctx, caller, id, t)
}

// DeleteSession removes the session and, through the schema cascade, all of
// its messages.
func (s *HistoryService) DeleteSession(ctx context.Context, caller, id string) error {
	if err := validSessionID(id); err != nil {
		return err
	}
	return s.repomanager.Sessions(s.db).Delete(ctx, caller, id)
}

// AppendMessage stores a message in sessionID using db, which may be a
// transaction. Ownership is the caller's responsibility.
func (s *HistoryService) AppendMessage(ctx context.Context, db dbx.DBTX, sessionID string, role models.Role, text string) (*models.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	return s.repomanager.Messages(db).Add(ctx, &models.Message{SessionID: sessionID, Role: role, Text: text})
}

// ListMessages returns the messages of a session owned by caller in
// chronological order.
func (s *HistoryService) ListMessages(ctx context.Context, caller, sessionID string) ([]*models.Message, error) {
	if _, err := s.GetSession(ctx, caller, sessionID); err != nil {
		return nil, err
	}
	return s.repomanager.Messages(s.db).ListForOwner(ctx, caller, sessionID)
}

// RecentMessages returns the last n messages of sessionID in chronological
// order. The caller must have checked ownership.
func (s *HistoryService) RecentMessages(ctx context.Context, sessionID string, n int) ([]*models.Message, error) {
	return s.repomanager.Messages(s.db).Recent(ctx, sessionID, n)
}

// Transcript loads a session owned by caller together with its messages.
func (s *HistoryService) Transcript(ctx context.Context, caller, sessionID string) (*transcript.Transcript, error) {
	sess, err := s.GetSession(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repomanager.Messages(s.db).ListForOwner(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}

	t := &transcript.Transcript{
		SessionID: sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		Messages:  make([]transcript.Entry, 0, len(msgs)),
	}
	for _, m := range msgs {
		t.Messages = append(t.Messages, transcript.Entry{Role: string(m.Role), Text: m.Text, CreatedAt: m.CreatedAt})
	}
	return t, nil
}
