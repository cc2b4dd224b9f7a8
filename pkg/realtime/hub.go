// Package realtime pushes domain events to websocket clients subscribed to a
// session or to every session of an owner.
package realtime

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wagate/pkg/config"
	"github.com/wagate/pkg/eventbus"
	"github.com/wagate/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Envelope is the frame written for every event.
type Envelope struct {
	Event     string    `json:"event"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func SessionChannel(id string) string {
	return "session:" + id
}

func UserChannel(ownerID uint) string {
	return "user:" + strconv.FormatUint(uint64(ownerID), 10)
}

type Subscriber interface {
	Subscribe(name string, h eventbus.Handler) func()
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	channels []string
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans events out to websocket clients by channel. A client that cannot
// keep up with its send buffer is disconnected.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*client]struct{}
	clients  map[*client]struct{}

	buffer   int
	origins  map[string]bool
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHub(cfg config.Realtime, log zerolog.Logger) *Hub {
	h := &Hub{
		channels: make(map[string]map[*client]struct{}),
		clients:  make(map[*client]struct{}),
		buffer:   cfg.SendBuffer,
		origins:  make(map[string]bool),
		log:      log.With().Str("component", "realtime").Logger(),
	}
	if h.buffer <= 0 {
		h.buffer = 64
	}
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			h.origins[o] = true
		}
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// checkOrigin allows same-host and configured origins. Requests without an
// Origin header are not browsers and pass.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.origins["*"] || h.origins[origin] {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	return parsed.Host == r.Host
}

// Attach subscribes the hub to bus and returns the unsubscribe func.
func (h *Hub) Attach(bus Subscriber) func() {
	return bus.Subscribe("realtime", h.Publish)
}

// Serve upgrades the request and registers the connection on channels. It
// returns once the upgrade is done; the connection is served in the
// background until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, channels ...string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn:     conn,
		send:     make(chan []byte, h.buffer),
		channels: channels,
	}
	h.add(c)
	go c.writePump()
	go h.readPump(c)

	h.log.Debug().Str("remote", r.RemoteAddr).Strs("channels", channels).Msg("realtime client connected")
	return nil
}

// readPump only watches for the peer going away; clients do not send
// commands.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	for _, ch := range c.channels {
		set, ok := h.channels[ch]
		if !ok {
			set = make(map[*client]struct{})
			h.channels[ch] = set
		}
		set[c] = struct{}{}
	}
	metrics.RealtimeClients.Set(float64(len(h.clients)))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for _, ch := range c.channels {
		if set, ok := h.channels[ch]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	c.close()
	metrics.RealtimeClients.Set(float64(len(h.clients)))
}

// Publish writes evt to every client on the event's session channel or its
// owner's channel. A client on both receives it once.
func (h *Hub) Publish(evt eventbus.Event) {
	data, err := json.Marshal(Envelope{
		Event:     evt.Type.External(),
		SessionID: evt.SessionID,
		Timestamp: evt.Timestamp,
		Data:      evt.Data,
	})
	if err != nil {
		h.log.Error().Err(err).Str("event", string(evt.Type)).Msg("encode realtime envelope")
		return
	}

	targets := []string{SessionChannel(evt.SessionID)}
	if evt.OwnerID != 0 {
		targets = append(targets, UserChannel(evt.OwnerID))
	}

	// sends happen under the read lock so remove cannot close a channel
	// mid-send
	var slow []*client
	h.mu.RLock()
	seen := make(map[*client]struct{})
	for _, ch := range targets {
		for c := range h.channels[ch] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			select {
			case c.send <- data:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("session_id", evt.SessionID).Msg("realtime client too slow, disconnecting")
		h.remove(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}
