package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrValidation    = errors.New("invalid request")
	ErrRateLimited   = errors.New("too many requests")
	ErrServer        = errors.New("server error")
	ErrNotLoggedIn   = errors.New("not logged in")
)

// APIError is a non-2xx answer from the server. It unwraps to one of the
// sentinel errors above so callers can match with errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("%s (http %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "username_taken":
		return ErrUsernameTaken
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status == http.StatusServiceUnavailable:
		return ErrUnavailable
	case e.Status >= 500:
		return ErrServer
	case e.Status >= 400:
		return ErrValidation
	}
	return nil
}
