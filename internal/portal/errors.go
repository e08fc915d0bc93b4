package portal

import (
	"errors"
	"fmt"
)

// Tier tells whether a failure was caught before any network call or came
// back from the server.
type Tier string

const (
	TierLocal  Tier = "local"
	TierRemote Tier = "remote"
)

// Local error codes.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidState     = "INVALID_STATE"
	CodeUploadInProgress = "UPLOAD_IN_PROGRESS"
	CodeClosed           = "VIEW_CLOSED"
	CodeSuperseded       = "SUPERSEDED"
	CodeTransport        = "TRANSPORT_ERROR"
)

// Error is returned by every portal operation. Remote errors carry the
// server's code, status and message.
type Error struct {
	Tier    Tier
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tier, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tier, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func localError(code, message string) *Error {
	return &Error{Tier: TierLocal, Code: code, Message: message}
}

func invalidState(action string, state fmt.Stringer) *Error {
	return localError(CodeInvalidState, fmt.Sprintf("cannot %s from %s", action, state))
}

// IsLocal reports whether err was raised before reaching the server.
func IsLocal(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Tier == TierLocal
}

// CodeOf returns the portal error code of err, or "" when err is not a portal error.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
