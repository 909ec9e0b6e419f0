package mockai

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/server/assistant"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type Handler struct {
	apiKey string
	delay  time.Duration
}

func NewHandler(cfg *Config) *Handler {
	return &Handler{apiKey: cfg.APIKey, delay: cfg.Delay}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST(assistant.QueryPath, h.Query)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
}

// Query answers with a fixed reply echoing the question.
// POST /assistant/query
func (h *Handler) Query(c echo.Context) error {
	if h.apiKey != "" && c.Request().Header.Get(common.APIKeyHeaderName) != h.apiKey {
		return c.JSON(http.StatusUnauthorized, errorResponse{Detail: "invalid api key"})
	}

	var req assistant.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
	}

	question := req.Query
	if strings.TrimSpace(question) == "" {
		question = req.Question
	}
	if strings.TrimSpace(question) == "" {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: "query is required"})
	}

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	return c.JSON(http.StatusOK, assistant.Response{
		Answer:     fmt.Sprintf("[Mock AI] You asked: %s. History messages: %d.", question, len(req.History)),
		TokensUsed: 0,
		Category:   "mock",
	})
}
