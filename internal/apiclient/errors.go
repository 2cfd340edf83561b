package apiclient

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when a successful envelope carries no result but one
// was expected.
var ErrEmptyResult = errors.New("empty result")

// Error is a rejected call: either the envelope statusCode was non-zero or the
// body was not an envelope at all.
type Error struct {
	HTTPStatus int
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d (http %d)", e.StatusCode, e.HTTPStatus)
	}
	return fmt.Sprintf("api error %d (http %d): %s", e.StatusCode, e.HTTPStatus, e.Message)
}

// UserMessage is the server-supplied text, suitable for a toast.
func (e *Error) UserMessage() string {
	return e.Message
}

// IsStatus reports whether err is an *Error carrying code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
