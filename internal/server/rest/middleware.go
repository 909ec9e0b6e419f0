package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDContextKey    = "userID"
	requestIDContextKey = "requestID"
)

// TokenValidator resolves an access token to its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// UserChecker reports whether an account still exists.
type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Get(userIDContextKey)
	if !ok {
		return "", false
	}
	value, ok := userID.(string)
	return value, ok && value != ""
}

func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// RequireAuth admits requests carrying "Authorization: Bearer <token>" with a
// valid access token. With recheck set the token subject must also still
// exist. All rejections look the same to the client; the reason is logged.
func RequireAuth(tokens TokenValidator, users UserChecker, recheck bool, logger logging.Logger) gin.HandlerFunc {
	logger = logger.With("module", "auth_guard")

	reject := func(c *gin.Context, reason string, err error) {
		logger.Debug(c.Request.Context(), "request rejected", "reason", reason, "err", err, "path", c.Request.URL.Path)
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, msgInvalidToken)
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeaderName)
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], common.BearerScheme) || strings.TrimSpace(parts[1]) == "" {
			reject(c, "missing bearer token", nil)
			return
		}

		userID, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			reason := "malformed token"
			if errors.Is(err, common.ErrTokenExpired) {
				reason = "expired token"
			}
			reject(c, reason, err)
			return
		}

		if recheck {
			ok, err := users.Exists(c.Request.Context(), userID)
			if err != nil {
				writeError(c, logger, err)
				return
			}
			if !ok {
				reject(c, "unknown subject", nil)
				return
			}
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// RequestID propagates X-Request-ID or assigns a fresh one. The id also rides
// on the request context, so every log line of the request carries it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeaderName)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(common.RequestIDHeaderName, id)
		c.Request = c.Request.WithContext(logging.ContextWith(c.Request.Context(), "request_id", id))
		c.Next()
	}
}

// RequestLogger writes one line per request through logger.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	logger = logger.With("module", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(c.Request.Context(), "request", args...)
		case status >= http.StatusBadRequest:
			logger.Warn(c.Request.Context(), "request", args...)
		default:
			logger.Info(c.Request.Context(), "request", args...)
		}
	}
}
