package api

import (
	"fmt"
	"net/http"
)

// BackendError is a non-2xx response. Message is the backend's own text and
// is shown to the user verbatim.
type BackendError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *BackendError) Error() string {
	return e.Message
}

// Unauthorized reports whether the backend rejected the bearer token.
func (e *BackendError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusUnprocessableEntity
}

// TransportError is a network failure or an undecodable response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorBody covers both the backend's {"error": ...} convention and the
// {"msg": ...} bodies its JWT layer returns for missing or expired tokens.
type errorBody struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

func (b errorBody) message(status int) string {
	switch {
	case b.Error != "":
		return b.Error
	case b.Msg != "":
		return b.Msg
	default:
		return http.StatusText(status)
	}
}
