// Package events defines the closed set of domain events emitted by the
// gateway and the translation between that set and the external vocabulary
// accepted from webhook subscribers.
package events

import (
	"errors"
	"fmt"
	"strings"
)

// Type is a canonical domain event. Values are the legacy upper-case names.
type Type string

const (
	SessionStatus   Type = "SESSION_STATUS"
	QRUpdated       Type = "QR_UPDATED"
	Authenticated   Type = "AUTHENTICATED"
	AuthFailure     Type = "AUTH_FAILURE"
	Ready           Type = "READY"
	Disconnected    Type = "DISCONNECTED"
	MessageReceived Type = "MESSAGE_RECEIVED"
	MessageSent     Type = "MESSAGE_SENT"
	MessageAck      Type = "MESSAGE_ACK"
	MessageRevoked  Type = "MESSAGE_REVOKED"
	GroupJoin       Type = "GROUP_JOIN"
	GroupLeave      Type = "GROUP_LEAVE"
	CallReceived    Type = "CALL_RECEIVED"
)

const (
	Wildcard    = "*"
	WildcardAll = "ALL"

	internalSep = "_"
	externalSep = "."
)

var all = []Type{
	SessionStatus,
	QRUpdated,
	Authenticated,
	AuthFailure,
	Ready,
	Disconnected,
	MessageReceived,
	MessageSent,
	MessageAck,
	MessageRevoked,
	GroupJoin,
	GroupLeave,
	CallReceived,
}

var known = func() map[Type]struct{} {
	m := make(map[Type]struct{}, len(all))
	for _, t := range all {
		m[t] = struct{}{}
	}
	return m
}()

// ErrNoEvents is returned when a subscription names no events at all.
var ErrNoEvents = errors.New("at least one event is required")

// UnknownEventError lists the tokens that matched no canonical event.
type UnknownEventError struct {
	Tokens []string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown events: %s", strings.Join(e.Tokens, ", "))
}

// All returns a copy of the full canonical set in declaration order.
func All() []Type {
	out := make([]Type, len(all))
	copy(out, all)
	return out
}

// Valid reports whether t is a canonical member.
func (t Type) Valid() bool {
	_, ok := known[t]
	return ok
}

// External returns the dotted, lower-case name used on the wire.
func (t Type) External() string {
	return ToExternal(t)
}

func (t Type) String() string {
	return string(t)
}

// ToExternal maps a canonical event to its dotted form, e.g.
// MESSAGE_RECEIVED -> message.received.
func ToExternal(t Type) string {
	return strings.ReplaceAll(strings.ToLower(string(t)), internalSep, externalSep)
}

// Parse resolves a single token. Legacy upper-case names are accepted as-is,
// anything else has its dotted segments converted to the internal form.
func Parse(token string) (Type, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	if t := Type(token); t.Valid() {
		return t, true
	}
	t := Type(strings.ToUpper(strings.ReplaceAll(token, externalSep, internalSep)))
	if t.Valid() {
		return t, true
	}
	return "", false
}

// IsWildcard reports whether token means "every event".
func IsWildcard(token string) bool {
	token = strings.TrimSpace(token)
	return token == Wildcard || strings.EqualFold(token, WildcardAll)
}

// Normalize converts caller supplied tokens into a de-duplicated canonical
// set. A wildcard anywhere expands to the full set. Unknown tokens are
// reported together in an *UnknownEventError, and an empty list yields
// ErrNoEvents; nothing is silently dropped or widened.
func Normalize(tokens []string) ([]Type, error) {
	if len(tokens) == 0 {
		return nil, ErrNoEvents
	}
	for _, token := range tokens {
		if IsWildcard(token) {
			return All(), nil
		}
	}

	seen := make(map[Type]struct{}, len(tokens))
	out := make([]Type, 0, len(tokens))
	var unknown []string
	for _, token := range tokens {
		t, ok := Parse(token)
		if !ok {
			unknown = append(unknown, token)
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(unknown) > 0 {
		return nil, &UnknownEventError{Tokens: unknown}
	}
	if len(out) == 0 {
		return nil, ErrNoEvents
	}
	return out, nil
}

// Strings converts a canonical set to its stored representation.
func Strings(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// ExternalNames converts a canonical set to dotted names for API responses.
func ExternalNames(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = ToExternal(t)
	}
	return out
}

// Contains reports whether set includes t.
func Contains(set []Type, t Type) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}
