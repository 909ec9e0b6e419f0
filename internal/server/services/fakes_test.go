package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/messages"
	refreshtokensrepo "github.com/dmitrijs2005/aiaccountant/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/sessions"
	usersrepo "github.com/dmitrijs2005/aiaccountant/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClock advances by one millisecond per call so creation order is visible.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byName map[string]*models.User

	createErr error
	getErr    error
	existsErr error
	deleteErr error

	// onDelete lets the repo manager cascade like the schema does
	onDelete func(userID string)
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	if f.deleteErr != nil {
		f.mu.Unlock()
		return f.deleteErr
	}
	found := false
	for name, u := range f.byName {
		if u.ID == id {
			delete(f.byName, name)
			found = true
		}
	}
	f.mu.Unlock()
	if !found {
		return common.ErrorNotFound
	}
	if f.onDelete != nil {
		f.onDelete(id)
	}
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken

	createErr error
	takeErr   error
	deleteErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{ID: uuid.NewString(), UserID: userID, Token: token, Expires: expires}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rt, nil
}

func (f *fakeRefreshRepo) Take(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.takeErr != nil {
		return nil, f.takeErr
	}
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, token)
	return rt, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if rt, ok := f.tokens[token]; ok && rt.UserID == userID {
		delete(f.tokens, token)
	}
	return nil
}

// --- sessions ---

type fakeSessionsRepo struct {
	mu    sync.Mutex
	clock *fakeClock
	byID  map[string]*models.Session

	createErr error
	listErr   error
	getErr    error
}

func (f *fakeSessionsRepo) Create(ctx context.Context, userID, title string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	s := &models.Session{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: f.clock.Now()}
	f.byID[s.ID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeSessionsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Session, 0)
	for _, s := range f.byID {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSessionsRepo) Get(ctx context.Context, userID, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.byID[id]
	if !ok || s.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionsRepo) Rename(ctx context.Context, userID, id, title string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.UserID != userID {
		return nil, common.ErrorNotFound
	}
	s.Title = title
	cp := *s
	return &cp, nil
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.UserID != userID {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeSessionsRepo) owner(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return "", false
	}
	return s.UserID, true
}

// --- messages ---

type fakeMessagesRepo struct {
	mu       sync.Mutex
	clock    *fakeClock
	sessions *fakeSessionsRepo
	rows     []*models.Message
	seq      int64

	// addErrOn fails Add for the given role
	addErrOn  models.Role
	addErr    error
	recentErr error
	recentN   []int
}

func (f *fakeMessagesRepo) Add(ctx context.Context, m *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil && (f.addErrOn == "" || f.addErrOn == m.Role) {
		return nil, f.addErr
	}
	if _, ok := f.sessions.owner(m.SessionID); !ok {
		return nil, common.ErrorNotFound
	}
	f.seq++
	m.ID = uuid.NewString()
	m.Seq = f.seq
	m.CreatedAt = f.clock.Now()
	cp := *m
	f.rows = append(f.rows, &cp)
	return m, nil
}

func (f *fakeMessagesRepo) bySession(sessionID string) []*models.Message {
	out := make([]*models.Message, 0)
	for _, m := range f.rows {
		if m.SessionID == sessionID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeMessagesRepo) ListForOwner(ctx context.Context, userID, sessionID string) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if owner, ok := f.sessions.owner(sessionID); !ok || owner != userID {
		return []*models.Message{}, nil
	}
	return f.bySession(sessionID), nil
}

func (f *fakeMessagesRepo) Recent(ctx context.Context, sessionID string, n int) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentN = append(f.recentN, n)
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	all := f.bySession(sessionID)
	if n < len(all) {
		all = all[len(all)-n:]
	}
	return all, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	s *fakeSessionsRepo
	m *fakeMessagesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	clock := newFakeClock()
	s := &fakeSessionsRepo{clock: clock, byID: map[string]*models.Session{}}
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byName: map[string]*models.User{}},
		r: &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}},
		s: s,
		m: &fakeMessagesRepo{clock: clock, sessions: s},
	}
	rm.u.onDelete = rm.cascadeUser
	return rm
}

func (m *fakeRepoManager) cascadeUser(userID string) {
	m.r.mu.Lock()
	for k, rt := range m.r.tokens {
		if rt.UserID == userID {
			delete(m.r.tokens, k)
		}
	}
	m.r.mu.Unlock()

	m.s.mu.Lock()
	for id, s := range m.s.byID {
		if s.UserID == userID {
			delete(m.s.byID, id)
		}
	}
	m.s.mu.Unlock()
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessions.Repository               { return m.s }
func (m *fakeRepoManager) Messages(db dbx.DBTX) messages.Repository               { return m.m }
