package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the backend reports a missing workflow, node or connection.
	ErrNotFound = errors.New("resource not found")

	// ErrRejected is returned when the backend refuses a request as invalid or conflicting.
	ErrRejected = errors.New("request rejected")

	// ErrUnavailable is returned on transport failures and server errors.
	ErrUnavailable = errors.New("backend unavailable")
)

// Error is a failed gateway call. Message is the backend's human-readable explanation, if any.
type Error struct {
	Op         string
	StatusCode int
	Type       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the human-readable explanation carried by err, or err.Error() when there is none.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}

	return err.Error()
}

// IsNotFound reports whether err means the target entity no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// classifyStatus maps an HTTP status code onto a gateway sentinel.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return ErrRejected
	default:
		return ErrUnavailable
	}
}
