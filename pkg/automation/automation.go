// Package automation describes the capability surface the gateway needs from
// a messaging automation backend. The session lifecycle only talks to this
// interface, so backends can be swapped without touching it.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventQR            EventKind = "qr"
	EventAuthenticated EventKind = "authenticated"
	EventReady         EventKind = "ready"
	EventMessage       EventKind = "message"
	EventMessageAck    EventKind = "message_ack"
	EventDisconnected  EventKind = "disconnected"
	EventAuthFailure   EventKind = "auth_failure"
)

// ReasonLogout marks a disconnect caused by the account being unlinked.
const ReasonLogout = "LOGOUT"

// Event is a callback raised by a backend client.
type Event struct {
	Kind     EventKind
	QR       string
	Phone    string
	PushName string
	Reason   string
	Message  *Message
	Ack      *Ack
}

type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Chat      string    `json:"chat"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	FromMe    bool      `json:"fromMe"`
	IsGroup   bool      `json:"isGroup"`
	PushName  string    `json:"pushName,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Ack struct {
	MessageIDs []string  `json:"messageIds"`
	Chat       string    `json:"chat"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
}

type SentMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

type Contact struct {
	JID          string `json:"jid"`
	PushName     string `json:"pushName"`
	FirstName    string `json:"firstName"`
	FullName     string `json:"fullName"`
	BusinessName string `json:"businessName"`
}

type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
}

// Proxy is the outbound proxy a client dials through.
type Proxy struct {
	Server   string
	Username string
	Password string
}

// LaunchOptions carries everything a backend needs to start one client.
// DataDir is the credential directory exclusively owned by the session.
type LaunchOptions struct {
	SessionID string
	DataDir   string
	Args      []string
	Proxy     Proxy
	Logger    zerolog.Logger
	OnEvent   func(Event)
}

// Client is one automated messaging account.
type Client interface {
	// Initialize launches the client and starts authentication. It returns
	// once the backend is running; authentication progress is reported
	// through OnEvent.
	Initialize(ctx context.Context) error
	// Destroy releases every resource held by the client. Safe to call more
	// than once.
	Destroy(ctx context.Context) error
	// Logout unlinks the account on the remote side.
	Logout(ctx context.Context) error
	// IsOpen reports whether the underlying automation surface is still up.
	IsOpen() bool

	SendText(ctx context.Context, to, body string) (SentMessage, error)
	Contacts(ctx context.Context) ([]Contact, error)
	Channels(ctx context.Context) ([]Channel, error)
}

// Factory builds a client for one session.
type Factory func(opts LaunchOptions) (Client, error)

// NotSupportedError is returned by operations the active backend does not
// implement.
type NotSupportedError struct {
	Operation string
	Backend   string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by the %s backend", e.Operation, e.Backend)
}
