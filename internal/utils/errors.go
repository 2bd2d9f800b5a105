package utils

import "net/http"

// APIError is a failure with an HTTP status attached. Handlers return these
// and the app-level error handler renders the failure envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(code int, msg string) *APIError {
	return &APIError{Code: code, Message: msg}
}

func ErrBadRequest(msg string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: msg}
}

func ErrUnauthorized(msg string) *APIError {
	return &APIError{Code: http.StatusUnauthorized, Message: msg}
}

func ErrNotFound(msg string) *APIError {
	return &APIError{Code: http.StatusNotFound, Message: msg}
}

func ErrConflict(msg string) *APIError {
	return &APIError{Code: http.StatusConflict, Message: msg}
}

func ErrInternal(msg string) *APIError {
	if msg == "" {
		msg = "something went wrong"
	}
	return &APIError{Code: http.StatusInternalServerError, Message: msg}
}
