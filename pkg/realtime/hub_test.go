package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wagate/pkg/config"
	"github.com/wagate/pkg/eventbus"
	"github.com/wagate/pkg/events"
)

// dialHub starts a server registering each connection on the channels named
// by the "ch" query values.
func dialHub(t *testing.T, h *Hub, channels ...string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.Serve(w, r, r.URL.Query()["ch"]...); err != nil {
			t.Errorf("serve: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	q := make([]string, len(channels))
	for i, ch := range channels {
		q[i] = "ch=" + ch
	}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + strings.Join(q, "&")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func TestHub_RoutesBySessionAndOwner(t *testing.T) {
	h := NewHub(config.Realtime{SendBuffer: 8}, zerolog.Nop())
	defer h.Close()

	sessionConn := dialHub(t, h, SessionChannel("alpha"))
	ownerConn := dialHub(t, h, UserChannel(7))
	bothConn := dialHub(t, h, SessionChannel("alpha"), UserChannel(7))
	otherConn := dialHub(t, h, SessionChannel("bravo"))
	waitClients(t, h, 4)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.Publish(eventbus.Event{Type: events.QRUpdated, SessionID: "alpha", OwnerID: 7, Timestamp: ts, Data: map[string]string{"qr": "x"}})
	h.Publish(eventbus.Event{Type: events.Ready, SessionID: "bravo", OwnerID: 8, Timestamp: ts})

	for name, conn := range map[string]*websocket.Conn{"session": sessionConn, "owner": ownerConn, "both": bothConn} {
		env := readEnvelope(t, conn)
		if env.Event != "qr.updated" || env.SessionID != "alpha" || !env.Timestamp.Equal(ts) {
			t.Fatalf("%s got %+v", name, env)
		}
	}

	// the dual subscriber must not see the alpha event twice
	_ = bothConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := bothConn.ReadMessage(); err == nil {
		t.Fatalf("duplicate frame: %s", data)
	}

	if env := readEnvelope(t, otherConn); env.Event != "ready" || env.SessionID != "bravo" {
		t.Fatalf("other got %+v", env)
	}
}

func TestHub_AttachToBus(t *testing.T) {
	h := NewHub(config.Realtime{}, zerolog.Nop())
	defer h.Close()
	bus := eventbus.New(zerolog.Nop())
	defer bus.Close()
	h.Attach(bus)

	conn := dialHub(t, h, SessionChannel("alpha"))
	waitClients(t, h, 1)

	bus.Publish(eventbus.Event{Type: events.SessionStatus, SessionID: "alpha", OwnerID: 1})
	if env := readEnvelope(t, conn); env.Event != "session.status" {
		t.Fatalf("got %+v", env)
	}
}

func TestHub_RemovesDisconnectedClient(t *testing.T) {
	h := NewHub(config.Realtime{}, zerolog.Nop())
	defer h.Close()

	conn := dialHub(t, h, SessionChannel("alpha"))
	waitClients(t, h, 1)
	conn.Close()
	waitClients(t, h, 0)

	// publishing to an empty channel is a no-op
	h.Publish(eventbus.Event{Type: events.Ready, SessionID: "alpha"})
}

func TestHub_CheckOrigin(t *testing.T) {
	h := NewHub(config.Realtime{AllowedOrigins: []string{"https://dash.example"}}, zerolog.Nop())

	cases := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "api.example", true},
		{"https://dash.example", "api.example", true},
		{"https://api.example", "api.example", true},
		{"https://evil.example", "api.example", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = tc.host
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if got := h.checkOrigin(r); got != tc.want {
			t.Fatalf("checkOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}
