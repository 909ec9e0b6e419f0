// Package assistant is the HTTP client for the external AI assistant
// service that answers accounting questions.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
)

// QueryPath is the assistant endpoint relative to the base URL.
const QueryPath = "/assistant/query"

// maxErrorBody bounds how much of a failed response ends up in the error.
const maxErrorBody = 512

// Turn is one prior message sent as context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the query body. Query and Question carry the same text; both
// are sent because assistant deployments differ in which one they read.
type Request struct {
	Query     string `json:"query"`
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	History   []Turn `json:"history"`
}

type Response struct {
	Answer     string `json:"answer"`
	TokensUsed int    `json:"tokens_used"`
	Category   string `json:"category"`
}

// Asker is what the chat orchestrator needs from the assistant.
type Asker interface {
	Ask(ctx context.Context, req *Request) (*Response, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewRequest builds a Request for question with history in chronological order.
func NewRequest(sessionID, question string, history []Turn) *Request {
	if history == nil {
		history = []Turn{}
	}
	return &Request{Query: question, Question: question, SessionID: sessionID, History: history}
}

// Ask posts req to the assistant. Transport failures, non-2xx statuses and
// undecodable bodies all wrap common.ErrAssistantUnavailable.
func (c *Client) Ask(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+QueryPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set(common.APIKeyHeaderName, c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAssistantUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", common.ErrAssistantUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := string(respBody)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", common.ErrAssistantUnavailable, resp.StatusCode, excerpt)
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", common.ErrAssistantUnavailable, err)
	}
	return &result, nil
}
