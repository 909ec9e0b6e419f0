package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/dmitrijs2005/aiaccountant/internal/server/auth"
	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
	"github.com/dmitrijs2005/aiaccountant/internal/server/services"
	"github.com/dmitrijs2005/aiaccountant/internal/transcript"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- users ---

type fakeUsers struct {
	mu        sync.Mutex
	tokens    *auth.TokenService
	passwords map[string]string // username -> password
	ids       map[string]string // username -> id
	refresh   map[string]string // refresh token -> user id
	existsErr error

	// registerErr fails Register without storing anything, as a rolled
	// back transaction would.
	registerErr error
}

func newFakeUsers(tokens *auth.TokenService) *fakeUsers {
	return &fakeUsers{
		tokens:    tokens,
		passwords: map[string]string{},
		ids:       map[string]string{},
		refresh:   map[string]string{},
	}
}

func (f *fakeUsers) Exists(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, id := range f.ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) Register(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(username) < 3 || password == "" {
		return nil, nil, fmt.Errorf("%w: bad credentials", common.ErrorValidation)
	}
	if _, ok := f.ids[username]; ok {
		return nil, nil, common.ErrorAlreadyExists
	}
	if f.registerErr != nil {
		return nil, nil, f.registerErr
	}
	id := uuid.NewString()
	pair, err := f.pair(id)
	if err != nil {
		return nil, nil, err
	}
	f.ids[username] = id
	f.passwords[username] = password
	return &models.User{ID: id, UserName: username}, pair, nil
}

func (f *fakeUsers) pair(userID string) (*services.TokenPair, error) {
	access, err := f.tokens.Issue(userID)
	if err != nil {
		return nil, err
	}
	refresh := uuid.NewString()
	f.refresh[refresh] = userID
	return &services.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[username]; !ok || pw != password {
		return nil, common.ErrorUnauthorized
	}
	return f.pair(f.ids[username])
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.refresh[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	delete(f.refresh, token)
	return f.pair(userID)
}

func (f *fakeUsers) Logout(ctx context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refresh[token] == userID {
		delete(f.refresh, token)
	}
	return nil
}

func (f *fakeUsers) DeleteAccount(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, id := range f.ids {
		if id == userID {
			delete(f.ids, name)
			delete(f.passwords, name)
			return nil
		}
	}
	return common.ErrorNotFound
}

// --- history, chat and exports share one in-memory store ---

type fakeHistory struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	messages map[string][]*models.Message
	clock    time.Time
	listErr  error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		sessions: map[string]*models.Session{},
		messages: map[string][]*models.Message{},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeHistory) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeHistory) owned(caller, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != caller {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (f *fakeHistory) CreateSession(ctx context.Context, caller string, title *string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.DefaultSessionTitle
	if title != nil && *title != "" {
		t = *title
	}
	s := &models.Session{ID: uuid.NewString(), UserID: caller, Title: t, CreatedAt: f.tick()}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeHistory) ListSessions(ctx context.Context, caller string) ([]*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*models.Session{}
	for _, s := range f.sessions {
		if s.UserID == caller {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeHistory) GetSession(ctx context.Context, caller, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owned(caller, id)
}

func (f *fakeHistory) RenameSession(ctx context.Context, caller, id, title string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.owned(caller, id)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be blank", common.ErrorValidation)
	}
	s.Title = title
	return s, nil
}

func (f *fakeHistory) DeleteSession(ctx context.Context, caller, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(caller, id); err != nil {
		return err
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeHistory) ListMessages(ctx context.Context, caller, id string) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(caller, id); err != nil {
		return nil, err
	}
	return append([]*models.Message{}, f.messages[id]...), nil
}

// Ask implements ChatService on the same store; answer overrides the
// generated reply and fallback simulates an assistant outage.
type fakeChat struct {
	h        *fakeHistory
	fallback bool
	err      error
}

func (f *fakeChat) Ask(ctx context.Context, caller, sessionID, message string) (*services.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	if message == "" {
		return nil, fmt.Errorf("%w: message must not be blank", common.ErrorValidation)
	}
	f.h.mu.Lock()
	defer f.h.mu.Unlock()
	if _, err := f.h.owned(caller, sessionID); err != nil {
		return nil, err
	}
	ans := &services.Answer{Text: "echo: " + message}
	if f.fallback {
		ans = &services.Answer{Text: services.FallbackAnswer, Fallback: true}
	}
	f.h.messages[sessionID] = append(f.h.messages[sessionID],
		&models.Message{ID: uuid.NewString(), SessionID: sessionID, Role: models.RoleUser, Text: message, CreatedAt: f.h.tick()},
		&models.Message{ID: uuid.NewString(), SessionID: sessionID, Role: models.RoleAssistant, Text: ans.Text, CreatedAt: f.h.tick()},
	)
	return ans, nil
}

type fakeExports struct {
	h        *fakeHistory
	disabled bool
}

func (f *fakeExports) Render(ctx context.Context, caller, sessionID, format string, w io.Writer) (transcript.Exporter, error) {
	exp, err := transcript.NewExporter(format)
	if err != nil {
		return nil, err
	}
	f.h.mu.Lock()
	s, err := f.h.owned(caller, sessionID)
	if err != nil {
		f.h.mu.Unlock()
		return nil, err
	}
	t := &transcript.Transcript{SessionID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt, Messages: []transcript.Entry{}}
	for _, m := range f.h.messages[sessionID] {
		t.Messages = append(t.Messages, transcript.Entry{Role: string(m.Role), Text: m.Text, CreatedAt: m.CreatedAt})
	}
	f.h.mu.Unlock()
	return exp, exp.Export(t, w)
}

func (f *fakeExports) Export(ctx context.Context, caller, sessionID, format string) (*services.ExportResult, error) {
	if f.disabled {
		return nil, common.ErrExportDisabled
	}
	exp, err := f.Render(ctx, caller, sessionID, format, io.Discard)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("users/%s/sessions/%s/t.%s", caller, sessionID, exp.Extension())
	return &services.ExportResult{Key: key, URL: "http://s3.local/" + key}, nil
}

// --- router fixture ---

type fixture struct {
	t       *testing.T
	router  *gin.Engine
	tokens  *auth.TokenService
	users   *fakeUsers
	history *fakeHistory
	chat    *fakeChat
	exports *fakeExports
}

func newFixture(t *testing.T, rateLimit int, trustedProxies ...string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenService([]byte("secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	h := newFakeHistory()
	f := &fixture{
		t:       t,
		tokens:  tokens,
		users:   newFakeUsers(tokens),
		history: h,
		chat:    &fakeChat{h: h},
		exports: &fakeExports{h: h},
	}
	f.router = NewRouter(Deps{
		Users:          f.users,
		History:        f.history,
		Chat:           f.chat,
		Exports:        f.exports,
		Tokens:         tokens,
		Logger:         discardLogger(),
		RecheckUser:    true,
		AuthRateLimit:  rateLimit,
		TrustedProxies: trustedProxies,
	})
	return f
}

// do sends a JSON request; token may be empty.
func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	return f.doFrom("", "", method, path, token, body)
}

// doFrom is do with the peer address and X-Forwarded-For set when non-empty.
func (f *fixture) doFrom(remoteAddr, forwardedFor, method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

// register creates a user and returns its access token.
func (f *fixture) register(username string) tokenResponse {
	f.t.Helper()
	w := f.do(http.MethodPost, "/auth/register", "", credentialsRequest{Username: username, Password: "pw123"})
	expectStatus(f.t, w, http.StatusOK)
	return decode[tokenResponse](f.t, w)
}
