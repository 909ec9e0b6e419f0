package rest

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	History HistoryService
	Exports ExportService
	Logger  logging.Logger
}

func (h *HistoryHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	sessions, err := h.History.ListSessions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, newSessionResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HistoryHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var body createSessionRequest
	if !bindJSON(c, &body, true) {
		return
	}

	sess, err := h.History.CreateSession(c.Request.Context(), userID, body.Title)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (h *HistoryHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	sess, err := h.History.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (h *HistoryHandler) Rename(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var body renameSessionRequest
	if !bindJSON(c, &body, false) {
		return
	}

	sess, err := h.History.RenameSession(c.Request.Context(), userID, c.Param("id"), body.Title)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.History.DeleteSession(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Status: "deleted"})
}

func (h *HistoryHandler) Messages(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	msgs, err := h.History.ListMessages(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{ID: m.ID, Role: string(m.Role), Text: m.Text, CreatedAt: m.CreatedAt})
	}
	c.JSON(http.StatusOK, resp)
}

// Transcript renders the session in the format given by ?format= (md by
// default) and serves it as an attachment.
func (h *HistoryHandler) Transcript(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var buf bytes.Buffer
	exp, err := h.Exports.Render(c.Request.Context(), userID, id, c.Query("format"), &buf)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, id, exp.Extension()))
	c.Data(http.StatusOK, exp.ContentType(), buf.Bytes())
}

func (h *HistoryHandler) Export(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	res, err := h.Exports.Export(c.Request.Context(), userID, c.Param("id"), c.Query("format"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, exportResponse{Key: res.Key, URL: res.URL})
}
