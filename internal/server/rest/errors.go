package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/gin-gonic/gin"
)

// Stable error codes returned in the "code" field.
const (
	CodeValidation        = "validation_error"
	CodeUsernameTaken     = "username_taken"
	CodeUnauthorized      = "unauthorized"
	CodeNotFound          = "not_found"
	CodeRateLimited       = "rate_limited"
	CodeExportUnavailable = "export_unavailable"
	CodeStorageFailure    = "storage_failure"
)

const (
	msgInvalidToken       = "invalid authentication token"
	msgInvalidCredentials = "invalid username or password"
	msgInvalidBody        = "invalid request body"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Error: msg})
}

// classify maps a domain error to its HTTP status, code and client message.
// Storage and other unexpected errors never leak their text.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest, CodeUsernameTaken, "username already taken"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, CodeUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, CodeNotFound, "not found"
	case errors.Is(err, common.ErrExportDisabled):
		return http.StatusServiceUnavailable, CodeExportUnavailable, "transcript export is not configured"
	default:
		return http.StatusInternalServerError, CodeStorageFailure, "internal error"
	}
}

// writeError answers with the mapped error and logs anything that is a
// server fault.
func writeError(c *gin.Context, logger logging.Logger, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err)
	}
	abortWithError(c, status, code, msg)
}
