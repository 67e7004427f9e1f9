package errs

import "errors"

// Error is a domain failure with a stable reason code, mapped to an HTTP
// status by the handlers.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotFound   = &Error{Code: "not_found", Message: "invalid token", Status: 404}
	ErrExpired    = &Error{Code: "expired", Message: "expired session", Status: 410}
	ErrEnded      = &Error{Code: "ended", Message: "session ended", Status: 410}
	ErrForbidden  = &Error{Code: "forbidden", Message: "not allowed", Status: 403}
	ErrBadRequest = &Error{Code: "bad_request", Message: "invalid payload", Status: 400}
)

// BadRequest returns a bad_request error with a specific message.
func BadRequest(message string) *Error {
	return &Error{Code: ErrBadRequest.Code, Message: message, Status: ErrBadRequest.Status}
}

// Forbidden returns a forbidden error with a specific message.
func Forbidden(message string) *Error {
	return &Error{Code: ErrForbidden.Code, Message: message, Status: ErrForbidden.Status}
}

// From extracts the domain error from an error chain. Anything that is not a
// domain error is reported as an internal failure.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: "internal", Message: err.Error(), Status: 500}
}
