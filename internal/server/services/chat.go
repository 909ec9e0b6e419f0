package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/dmitrijs2005/aiaccountant/internal/server/assistant"
	"github.com/dmitrijs2005/aiaccountant/internal/server/config"
	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
	"github.com/dmitrijs2005/aiaccountant/internal/syncx"
)

// FallbackAnswer is returned, and stored, whenever the assistant cannot answer.
const FallbackAnswer = "AI assistant is temporarily unavailable. Please try again later."

// Answer is the orchestrator's reply to a question.
type Answer struct {
	Text     string
	Fallback bool
}

// ChatService answers questions within a session: it loads recent history,
// asks the assistant under a timeout and records the exchange.
type ChatService struct {
	db           *sql.DB
	history      *HistoryService
	assistant    assistant.Asker
	historyLimit int
	timeout      time.Duration
	logger       logging.Logger

	// one in-flight question per session, so pairs never interleave
	sessionLocks syncx.KeyedMutex
}

func NewChatService(db *sql.DB, history *HistoryService, asker assistant.Asker, cfg *config.Config, logger logging.Logger) *ChatService {
	return &ChatService{
		db:           db,
		history:      history,
		assistant:    asker,
		historyLimit: cfg.ChatHistoryLimit,
		timeout:      cfg.AITimeout,
		logger:       logger.With("module", "chat"),
	}
}

func validateQuestion(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message must not be blank", common.ErrorValidation)
	}
	if utf8.RuneCountInString(message) > models.MaxMessageLen {
		return "", fmt.Errorf("%w: message longer than %d characters", common.ErrorValidation, models.MaxMessageLen)
	}
	return message, nil
}

// Ask answers message in sessionID on behalf of caller. Assistant failures
// never fail the call: they produce FallbackAnswer, which is stored like any
// other answer. The user message is always stored before the assistant's.
func (s *ChatService) Ask(ctx context.Context, caller, sessionID, message string) (*Answer, error) {
	message, err := validateQuestion(message)
	if err != nil {
		return nil, err
	}

	if _, err := s.history.GetSession(ctx, caller, sessionID); err != nil {
		return nil, err
	}

	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	recent, err := s.history.RecentMessages(ctx, sessionID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	turns := make([]assistant.Turn, 0, len(recent))
	for _, m := range recent {
		turns = append(turns, assistant.Turn{Role: string(m.Role), Content: m.Text})
	}

	answer := s.askAssistant(ctx, sessionID, message, turns)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.history.AppendMessage(ctx, tx, sessionID, models.RoleUser, message); err != nil {
			return err
		}
		_, err := s.history.AppendMessage(ctx, tx, sessionID, models.RoleAssistant, answer.Text)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "question answered", "session_id", sessionID, "history", len(turns), "fallback", answer.Fallback)
	return answer, nil
}

func (s *ChatService) askAssistant(ctx context.Context, sessionID, message string, turns []assistant.Turn) *Answer {
	actx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.assistant.Ask(actx, assistant.NewRequest(sessionID, message, turns))
	if err != nil {
		s.logger.Warn(ctx, "assistant unavailable, using fallback", "session_id", sessionID, "err", err)
		return &Answer{Text: FallbackAnswer, Fallback: true}
	}
	if strings.TrimSpace(resp.Answer) == "" {
		s.logger.Warn(ctx, "assistant returned an empty answer, using fallback", "session_id", sessionID)
		return &Answer{Text: FallbackAnswer, Fallback: true}
	}
	return &Answer{Text: resp.Answer}
}
