package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
)

var ErrInvalidSessionID = errors.New("session id must be 1-100 characters of letters, digits, '-' or '_'")

type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

type SessionNotConnectedError struct {
	ID     string
	Status Status
}

func (e *SessionNotConnectedError) Error() string {
	return fmt.Sprintf("session %s is not connected (status %s)", e.ID, e.Status)
}

// CreationInProgressError is returned to a concurrent create that gave up
// waiting for the in-flight one. Retry after a backoff.
type CreationInProgressError struct {
	ID string
}

func (e *CreationInProgressError) Error() string {
	return fmt.Sprintf("session %s is already being created, retry later", e.ID)
}

// SessionTakenError is returned when the id already belongs to another
// owner.
type SessionTakenError struct {
	ID string
}

func (e *SessionTakenError) Error() string {
	return fmt.Sprintf("session %s belongs to another user", e.ID)
}

// ErrSessionEvicted is returned by a create whose session was torn down
// before initialization finished.
var ErrSessionEvicted = errors.New("session was torn down while initializing")

type InitKind string

const (
	InitKindNetwork InitKind = "network"
	InitKindProxy   InitKind = "proxy"
	InitKindTimeout InitKind = "timeout"
	InitKindUnknown InitKind = "unknown"
)

// InitializationError is a classified launch failure. It is not retried
// automatically; the session needs an explicit restart.
type InitializationError struct {
	SessionID string
	Kind      InitKind
	Guidance  string
	Err       error
}

func (e *InitializationError) Error() string {
	if e.Guidance == "" {
		return fmt.Sprintf("initialize session %s: %v", e.SessionID, e.Err)
	}
	return fmt.Sprintf("initialize session %s: %s: %v", e.SessionID, e.Guidance, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

func classifyInitError(sessionID string, err error) *InitializationError {
	msg := strings.ToLower(err.Error())
	out := &InitializationError{SessionID: sessionID, Kind: InitKindUnknown, Err: err}

	switch {
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED),
		strings.Contains(msg, "econnreset"), strings.Contains(msg, "econnrefused"),
		strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"):
		out.Kind = InitKindNetwork
		out.Guidance = "network connection failed; check internet connectivity and firewall rules"
	case strings.Contains(msg, "proxy"):
		out.Kind = InitKindProxy
		out.Guidance = "proxy connection failed; check the proxy address and credentials"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		out.Kind = InitKindTimeout
		out.Guidance = "initialization timed out; the network or proxy may be too slow"
	}
	return out
}
