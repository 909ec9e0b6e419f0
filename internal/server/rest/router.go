// Package rest is the HTTP API of the accountant server, built on gin.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/gin-gonic/gin"
)

// RateLimitWindow is the window of the credential endpoint limiter.
const RateLimitWindow = time.Minute

type Deps struct {
	Users   UserService
	History HistoryService
	Chat    ChatService
	Exports ExportService
	Tokens  TokenValidator
	Logger  logging.Logger

	// RecheckUser makes the guard confirm the token subject still exists.
	RecheckUser bool
	// AuthRateLimit is requests per client per RateLimitWindow on
	// register, login and refresh; zero disables limiting.
	AuthRateLimit int
	// TrustedProxies lists proxies whose X-Forwarded-For names the client.
	// Empty means the peer address is the client.
	TrustedProxies []string
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Logger.Error(context.Background(), "invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello from AI-accountant!"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	guard := RequireAuth(deps.Tokens, deps.Users, deps.RecheckUser, deps.Logger)
	limiter := RateLimitMiddleware(NewRateLimiter(deps.AuthRateLimit, RateLimitWindow))

	authHandler := &AuthHandler{Users: deps.Users, Logger: deps.Logger.With("module", "auth")}
	authGroup := r.Group("/auth")
	authGroup.POST("/register", limiter, authHandler.Register)
	authGroup.POST("/login", limiter, authHandler.Login)
	authGroup.POST("/refresh", limiter, authHandler.Refresh)
	authGroup.POST("/logout", guard, authHandler.Logout)
	authGroup.DELETE("/account", guard, authHandler.DeleteAccount)

	historyHandler := &HistoryHandler{History: deps.History, Exports: deps.Exports, Logger: deps.Logger.With("module", "history")}
	history := r.Group("/history/sessions")
	history.Use(guard)
	history.GET("", historyHandler.List)
	history.POST("/create", historyHandler.Create)
	history.GET("/:id", historyHandler.Get)
	history.PUT("/:id/title", historyHandler.Rename)
	history.DELETE("/:id", historyHandler.Delete)
	history.GET("/:id/messages", historyHandler.Messages)
	history.GET("/:id/transcript", historyHandler.Transcript)
	history.POST("/:id/export", historyHandler.Export)

	chatHandler := &ChatHandler{Chat: deps.Chat, Logger: deps.Logger.With("module", "chat_api")}
	api := r.Group("/api/v1/chat")
	api.Use(guard)
	api.POST("/query", chatHandler.Query)

	return r
}
