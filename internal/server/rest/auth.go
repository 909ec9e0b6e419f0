package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Users  UserService
	Logger logging.Logger
}

// bindJSON decodes the body into v and answers 400 on failure. An empty body
// is accepted only when optional is set.
func bindJSON(c *gin.Context, v any, optional bool) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		abortWithError(c, http.StatusBadRequest, CodeValidation, msgInvalidBody)
		return false
	}
	return true
}

func callerID(c *gin.Context) (string, bool) {
	userID, ok := UserIDFromContext(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, msgInvalidToken)
	}
	return userID, ok
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body credentialsRequest
	if !bindJSON(c, &body, false) {
		return
	}

	ctx := c.Request.Context()
	user, pair, err := h.Users.Register(ctx, body.Username, body.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	h.Logger.Info(ctx, "user registered", "user_id", user.ID)
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body credentialsRequest
	if !bindJSON(c, &body, false) {
		return
	}

	pair, err := h.Users.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, msgInvalidCredentials)
			return
		}
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var body refreshRequest
	if !bindJSON(c, &body, false) {
		return
	}
	if body.RefreshToken == "" {
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid refresh token")
		return
	}

	pair, err := h.Users.RefreshToken(c.Request.Context(), body.RefreshToken)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var body refreshRequest
	if !bindJSON(c, &body, true) {
		return
	}

	if body.RefreshToken != "" {
		if err := h.Users.Logout(c.Request.Context(), userID, body.RefreshToken); err != nil {
			writeError(c, h.Logger, err)
			return
		}
	}
	c.JSON(http.StatusOK, statusResponse{Status: "logged_out"})
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.Users.DeleteAccount(c.Request.Context(), userID); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Logger.Info(c.Request.Context(), "account deleted", "user_id", userID)
	c.JSON(http.StatusOK, statusResponse{Status: "deleted"})
}
