package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnauthenticated is returned after the server answered 401. The
	// session has already been expired when the caller sees it.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNetwork covers connection failures and timeouts.
	ErrNetwork = errors.New("network error")
)

const maxMessageLen = 512

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
}

// ServerMessage returns the message from err if it is an APIError carrying
// one, or fallback otherwise.
func ServerMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Fallback fills in msg as the message of an APIError that has none and
// returns err. Other errors pass through untouched.
func Fallback(err error, msg string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message == "" {
		apiErr.Message = msg
	}
	return err
}

// extractMessage finds the human readable message in an error body: a JSON
// "message" field, then "error", then a bare JSON string, then plain text.
// In the framework's default error body "error" is only the status reason
// phrase, so it is ignored there.
func extractMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		keys := []string{"message", "error"}
		if isDefaultErrorBody(obj) {
			keys = keys[:1]
		}
		for _, key := range keys {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				return truncate(strings.TrimSpace(s))
			}
		}
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return truncate(strings.TrimSpace(s))
	}

	if body[0] == '<' || body[0] == '[' || !utf8.Valid(body) {
		return ""
	}
	return truncate(string(body))
}

// isDefaultErrorBody matches {"timestamp","status","error","message","path"}.
func isDefaultErrorBody(obj map[string]any) bool {
	_, hasStatus := obj["status"]
	_, hasPath := obj["path"]
	return hasStatus || hasPath
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
