package rest

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	Chat   ChatService
	Logger logging.Logger
}

// Query answers a question within a session. Assistant outages still
// produce 200 with the fallback answer.
func (h *ChatHandler) Query(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var body chatRequest
	if !bindJSON(c, &body, false) {
		return
	}
	if strings.TrimSpace(body.SessionID) == "" {
		abortWithError(c, http.StatusBadRequest, CodeValidation, "session_id is required")
		return
	}

	ans, err := h.Chat.Ask(c.Request.Context(), userID, body.SessionID, body.Message)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Answer: ans.Text})
}
