package session

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInitializing   Status = "INITIALIZING"
	StatusQRReady        Status = "QR_READY"
	StatusAuthenticating Status = "AUTHENTICATING"
	StatusConnected      Status = "CONNECTED"
	StatusDisconnected   Status = "DISCONNECTED"
	StatusFailed         Status = "FAILED"
	StatusLoggedOut      Status = "LOGGED_OUT"
)

var transitions = map[Status][]Status{
	StatusInitializing:   {StatusQRReady, StatusAuthenticating, StatusConnected, StatusDisconnected, StatusFailed, StatusLoggedOut},
	StatusQRReady:        {StatusQRReady, StatusAuthenticating, StatusConnected, StatusDisconnected, StatusFailed, StatusLoggedOut},
	StatusAuthenticating: {StatusQRReady, StatusConnected, StatusDisconnected, StatusFailed, StatusLoggedOut},
	StatusConnected:      {StatusDisconnected, StatusFailed, StatusLoggedOut},
}

// Terminal statuses can only be left through an explicit restart.
func (s Status) Terminal() bool {
	switch s {
	case StatusDisconnected, StatusFailed, StatusLoggedOut:
		return true
	}
	return false
}

// CanTransition reports whether a live session may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusInitializing, StatusQRReady, StatusAuthenticating, StatusConnected,
		StatusDisconnected, StatusFailed, StatusLoggedOut:
		return true
	}
	return false
}
