package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeSession struct {
	id, owner, title string
	created          time.Time
	messages         []map[string]any
}

// fakeAPI is an in-memory stand-in for the REST API, enough for the CLI.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	passwords map[string]string
	access    map[string]string // token -> username
	refresh   map[string]string
	sessions  map[string]*fakeSession
	seq       int
	refreshes int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:         t,
		passwords: map[string]string{},
		access:    map[string]string{},
		refresh:   map[string]string{},
		sessions:  map[string]*fakeSession{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /auth/register", f.register)
	mux.HandleFunc("POST /auth/login", f.login)
	mux.HandleFunc("POST /auth/refresh", f.refreshTokens)
	mux.HandleFunc("POST /auth/logout", f.authed(func(w http.ResponseWriter, r *http.Request, user string) {
		reply(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}))
	mux.HandleFunc("DELETE /auth/account", f.authed(f.deleteAccount))
	mux.HandleFunc("GET /history/sessions", f.authed(f.list))
	mux.HandleFunc("POST /history/sessions/create", f.authed(f.create))
	mux.HandleFunc("GET /history/sessions/{id}", f.authed(f.owned(func(w http.ResponseWriter, r *http.Request, s *fakeSession) {
		reply(w, http.StatusOK, sessionJSON(s))
	})))
	mux.HandleFunc("PUT /history/sessions/{id}/title", f.authed(f.owned(f.rename)))
	mux.HandleFunc("DELETE /history/sessions/{id}", f.authed(f.owned(func(w http.ResponseWriter, r *http.Request, s *fakeSession) {
		delete(f.sessions, s.id)
		reply(w, http.StatusOK, map[string]string{"status": "deleted"})
	})))
	mux.HandleFunc("GET /history/sessions/{id}/messages", f.authed(f.owned(func(w http.ResponseWriter, r *http.Request, s *fakeSession) {
		reply(w, http.StatusOK, s.messages)
	})))
	mux.HandleFunc("GET /history/sessions/{id}/transcript", f.authed(f.owned(func(w http.ResponseWriter, r *http.Request, s *fakeSession) {
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprintf(w, "# %s (%s, %d messages)\n", s.title, r.URL.Query().Get("format"), len(s.messages))
	})))
	mux.HandleFunc("POST /history/sessions/{id}/export", f.authed(f.owned(func(w http.ResponseWriter, r *http.Request, s *fakeSession) {
		key := "transcripts/" + s.id + "." + r.URL.Query().Get("format")
		reply(w, http.StatusOK, map[string]string{"key": key, "url": f.srv.URL + "/objects/" + s.id})
	})))
	mux.HandleFunc("GET /objects/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "archived %s\n", r.PathValue("id"))
	})
	mux.HandleFunc("POST /api/v1/chat/query", f.authed(f.chat))

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func replyErr(w http.ResponseWriter, status int, code, msg string) {
	reply(w, status, map[string]string{"code": code, "error": msg})
}

func (f *fakeAPI) issue(user string) map[string]string {
	f.seq++
	access := fmt.Sprintf("access-%d", f.seq)
	refresh := fmt.Sprintf("refresh-%d", f.seq)
	f.access[access] = user
	f.refresh[refresh] = user
	return map[string]string{"access_token": access, "refresh_token": refresh, "token_type": "bearer"}
}

// expireAccessTokens invalidates every access token; refresh tokens stay.
func (f *fakeAPI) expireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = map[string]string{}
}

func (f *fakeAPI) decode(r *http.Request, v any) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		f.t.Errorf("decode %s: %v", r.URL.Path, err)
	}
}

func (f *fakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var in struct{ Username, Password string }
	f.decode(r, &in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[in.Username]; ok {
		replyErr(w, http.StatusBadRequest, "username_taken", "username already registered")
		return
	}
	f.passwords[in.Username] = in.Password
	reply(w, http.StatusOK, f.issue(in.Username))
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Username, Password string }
	f.decode(r, &in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[in.Username]; !ok || pw != in.Password {
		replyErr(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}
	reply(w, http.StatusOK, f.issue(in.Username))
}

func (f *fakeAPI) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	f.decode(r, &in)

	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.refresh[in.RefreshToken]
	if !ok {
		replyErr(w, http.StatusUnauthorized, "unauthorized", "invalid authentication token")
		return
	}
	delete(f.refresh, in.RefreshToken)
	f.refreshes++
	reply(w, http.StatusOK, f.issue(user))
}

func (f *fakeAPI) authed(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		defer f.mu.Unlock()
		user, ok := f.access[token]
		if !ok {
			replyErr(w, http.StatusUnauthorized, "unauthorized", "invalid authentication token")
			return
		}
		next(w, r, user)
	}
}

func (f *fakeAPI) owned(next func(http.ResponseWriter, *http.Request, *fakeSession)) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, user string) {
		s, ok := f.sessions[r.PathValue("id")]
		if !ok || s.owner != user {
			replyErr(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		next(w, r, s)
	}
}

func sessionJSON(s *fakeSession) map[string]any {
	return map[string]any{"id": s.id, "title": s.title, "created_at": s.created}
}

func (f *fakeAPI) list(w http.ResponseWriter, r *http.Request, user string) {
	out := []map[string]any{}
	for _, s := range f.sessions {
		if s.owner == user {
			out = append(out, sessionJSON(s))
		}
	}
	reply(w, http.StatusOK, out)
}

func (f *fakeAPI) create(w http.ResponseWriter, r *http.Request, user string) {
	var in struct {
		Title *string `json:"title"`
	}
	f.decode(r, &in)

	f.seq++
	s := &fakeSession{
		id:       fmt.Sprintf("sess-%d", f.seq),
		owner:    user,
		title:    "Untitled",
		created:  time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		messages: []map[string]any{},
	}
	if in.Title != nil {
		s.title = *in.Title
	}
	f.sessions[s.id] = s
	reply(w, http.StatusCreated, sessionJSON(s))
}

func (f *fakeAPI) rename(w http.ResponseWriter, r *http.Request, s *fakeSession) {
	var in struct{ Title string }
	f.decode(r, &in)
	s.title = in.Title
	reply(w, http.StatusOK, sessionJSON(s))
}

func (f *fakeAPI) deleteAccount(w http.ResponseWriter, r *http.Request, user string) {
	delete(f.passwords, user)
	for id, s := range f.sessions {
		if s.owner == user {
			delete(f.sessions, id)
		}
	}
	for tok, u := range f.access {
		if u == user {
			delete(f.access, tok)
		}
	}
	reply(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (f *fakeAPI) chat(w http.ResponseWriter, r *http.Request, user string) {
	var in struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	f.decode(r, &in)

	s, ok := f.sessions[in.SessionID]
	if !ok || s.owner != user {
		replyErr(w, http.StatusNotFound, "not_found", "session not found")
		return
	}

	answer := "You asked: " + in.Message
	now := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	s.messages = append(s.messages,
		map[string]any{"id": fmt.Sprintf("m%d", len(s.messages)+1), "role": "user", "text": in.Message, "created_at": now},
		map[string]any{"id": fmt.Sprintf("m%d", len(s.messages)+2), "role": "assistant", "text": answer, "created_at": now},
	)
	reply(w, http.StatusOK, map[string]string{"answer": answer})
}
