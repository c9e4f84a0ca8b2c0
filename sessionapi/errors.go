package sessionapi

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-server-session/internal/errors"
)

// Error is returned by HTTPClient for non-2xx responses.
type Error struct {
	StatusCode int
	Message    string
	RequestID  string
	err        error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("session api: %d %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// ErrorBody is the JSON body of an error response.
type ErrorBody struct {
	Error string `json:"error"`
}

func newError(status int, message, requestID string) *Error {
	var err error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err = errors.ErrUnauthorized
	case status == http.StatusNotFound:
		err = errors.ErrSessionNotFound
	case status == http.StatusGone:
		err = errors.ErrSessionExpired
	case status == http.StatusBadRequest:
		err = errors.ErrInvalidRequest
	default:
		err = errors.ErrInternal
	}
	return &Error{StatusCode: status, Message: message, RequestID: requestID, err: err}
}

// StatusCode maps an API error to the HTTP status a server should answer with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errors.ErrUnauthorized),
		errors.Is(err, errors.ErrInvalidToken),
		errors.Is(err, errors.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, errors.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
