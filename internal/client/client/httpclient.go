package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/client/models"
	"github.com/dmitrijs2005/aiaccountant/internal/common"
)

// maxErrorBody bounds how much of a failed response is read into APIError.
const maxErrorBody = 4 << 10

// HTTPClient talks to the AI accountant REST API. It holds the current token
// pair and, when a request comes back 401 while a refresh token is known,
// rotates the pair once and retries the request.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu       sync.Mutex
	tokens   models.Tokens
	onTokens func(models.Tokens)
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// OnTokens registers fn to be called whenever the server hands out a new
// token pair (register, login or a transparent refresh).
func (c *HTTPClient) OnTokens(fn func(models.Tokens)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTokens = fn
}

func (c *HTTPClient) SetTokens(t models.Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = t
}

func (c *HTTPClient) Tokens() models.Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *HTTPClient) storeTokens(t models.Tokens) {
	c.mu.Lock()
	c.tokens = t
	fn := c.onTokens
	c.mu.Unlock()

	if fn != nil {
		fn(t)
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) (models.Tokens, error) {
	return c.authenticate(ctx, "/auth/register", credentials{Username: username, Password: password})
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (models.Tokens, error) {
	return c.authenticate(ctx, "/auth/login", credentials{Username: username, Password: password})
}

func (c *HTTPClient) authenticate(ctx context.Context, path string, in credentials) (models.Tokens, error) {
	var out models.Tokens
	if err := c.do(ctx, http.MethodPost, path, in, &out, false); err != nil {
		return models.Tokens{}, err
	}
	c.storeTokens(out)
	return out, nil
}

// Refresh exchanges the held refresh token for a new pair.
func (c *HTTPClient) Refresh(ctx context.Context) (models.Tokens, error) {
	refresh := c.Tokens().RefreshToken
	if refresh == "" {
		return models.Tokens{}, ErrNotLoggedIn
	}

	var out models.Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", refreshBody{RefreshToken: refresh}, &out, false); err != nil {
		return models.Tokens{}, err
	}
	c.storeTokens(out)
	return out, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	body := refreshBody{RefreshToken: c.Tokens().RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/logout", body, nil, true); err != nil {
		return err
	}
	c.SetTokens(models.Tokens{})
	return nil
}

func (c *HTTPClient) DeleteAccount(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/auth/account", nil, nil, true); err != nil {
		return err
	}
	c.SetTokens(models.Tokens{})
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out, false); err != nil {
		return err
	}
	if !out.OK {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) ListSessions(ctx context.Context) ([]models.Session, error) {
	var out []models.Session
	if err := c.do(ctx, http.MethodGet, "/history/sessions", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateSession(ctx context.Context, title *string) (*models.Session, error) {
	in := struct {
		Title *string `json:"title,omitempty"`
	}{Title: title}

	var out models.Session
	if err := c.do(ctx, http.MethodPost, "/history/sessions/create", in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var out models.Session
	if err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RenameSession(ctx context.Context, id, title string) (*models.Session, error) {
	in := struct {
		Title string `json:"title"`
	}{Title: title}

	var out models.Session
	if err := c.do(ctx, http.MethodPut, sessionPath(id, "/title"), in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil, true)
}

func (c *HTTPClient) ListMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	var out []models.Message
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/messages"), nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Ask sends one chat message and returns the assistant's answer. The server
// answers 200 with a fallback text when the assistant is unreachable.
func (c *HTTPClient) Ask(ctx context.Context, sessionID, message string) (string, error) {
	in := struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}{SessionID: sessionID, Message: message}

	var out struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/query", in, &out, true); err != nil {
		return "", err
	}
	return out.Answer, nil
}

// Transcript downloads the rendered transcript as raw bytes.
func (c *HTTPClient) Transcript(ctx context.Context, sessionID, format string) ([]byte, error) {
	var out []byte
	err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/transcript")+formatQuery(format), nil, &out, true)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Export(ctx context.Context, sessionID, format string) (*models.ExportResult, error) {
	var out models.ExportResult
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/export")+formatQuery(format), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func sessionPath(id, suffix string) string {
	return "/history/sessions/" + url.PathEscape(id) + suffix
}

func formatQuery(format string) string {
	if format == "" {
		return ""
	}
	return "?" + url.Values{"format": {format}}.Encode()
}

// do performs one API call. in is JSON-encoded when non-nil; out is decoded
// from JSON, or receives the raw body when it is a *[]byte. With auth set the
// bearer token is attached and a single refresh-and-retry happens on 401.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, auth bool) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	token := ""
	if auth {
		token = c.Tokens().AccessToken
		if token == "" {
			return ErrNotLoggedIn
		}
	}

	status, body, err := c.roundTrip(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && auth && c.Tokens().RefreshToken != "" {
		tokens, rerr := c.Refresh(ctx)
		if rerr != nil {
			if errors.Is(rerr, ErrUnauthorized) {
				return apiError(status, body)
			}
			return rerr
		}

		status, body, err = c.roundTrip(ctx, method, path, payload, tokens.AccessToken)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return apiError(status, body)
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst = body
		return nil
	default:
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return resp.StatusCode, b, nil
}

func apiError(status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	var payload struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	e := &APIError{Status: status}
	if json.Unmarshal(body, &payload) == nil {
		e.Code = payload.Code
		e.Message = payload.Error
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}
