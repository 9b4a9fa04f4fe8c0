package apierror

import (
	"errors"
	"fmt"
)

// Error is an application error carrying a taxonomy code, an optional wrapped
// cause, and optional structured details surfaced to the client.
type Error struct {
	Code    Code
	Details map[string]interface{}
	cause   error
	status  int
}

// New creates an Error for the given code.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Wrap creates an Error for the given code wrapping a cause.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, cause: cause}
}

// WithDetails attaches structured details and returns the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithStatus overrides the HTTP status derived from the code, for transport
// errors whose status is decided upstream (routing 404/405).
func (e *Error) WithStatus(status int) *Error {
	e.status = status
	return e
}

func (e *Error) Error() string {
	d := describe(e.Code)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, d.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, d.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Title returns the user-facing title for the error's code.
func (e *Error) Title() string { return describe(e.Code).Title }

// Message returns the user-facing message for the error's code.
func (e *Error) Message() string { return describe(e.Code).Message }

// Suggestion returns the user-facing suggestion for the error's code.
func (e *Error) Suggestion() string { return describe(e.Code).Suggestion }

// Category returns the taxonomy category for the error's code.
func (e *Error) Category() string { return describe(e.Code).Category }

// HTTPStatus returns the HTTP status for the error's code, honoring any
// WithStatus override.
func (e *Error) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}
	return describe(e.Code).Status
}

// CodeOf extracts the taxonomy code from err, or InternalError when err does
// not carry one.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// AsError returns err as an *Error, wrapping it under InternalError when it
// is not one already.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(InternalError, err)
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
