package views

import (
	"errors"

	"github.com/dvloznov/bankx-client/internal/gateway"
)

// ErrLoginRequired is returned by protected views when no session exists.
var ErrLoginRequired = errors.New("login required")

// NeedsLogin reports whether err should send the user to the login route.
func NeedsLogin(err error) bool {
	return errors.Is(err, ErrLoginRequired) || errors.Is(err, gateway.ErrUnauthenticated)
}

// UserMessage picks the text shown to the user for err: the server's message
// for API errors, fallback for everything else.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if NeedsLogin(err) {
		return "Please log in to continue"
	}
	return gateway.ServerMessage(err, fallback)
}

// ValidationError is a form check that failed before any request was sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// ActionError wraps a failed mutation with the message to show the user.
type ActionError struct {
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func actionError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &ActionError{Message: UserMessage(err, fallback), Err: err}
}
