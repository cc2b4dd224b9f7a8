package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wagate/pkg/automation"
	"github.com/wagate/pkg/cache"
	"github.com/wagate/pkg/entities"
	"github.com/wagate/pkg/eventbus"
	"github.com/wagate/pkg/events"
)

type fakeClient struct {
	opts automation.LaunchOptions

	initialize func(ctx context.Context) error
	destroy    func(ctx context.Context) error
	logout     func(ctx context.Context) error

	open      atomic.Bool
	destroyed atomic.Int32
	loggedOut atomic.Int32
}

func (c *fakeClient) Initialize(ctx context.Context) error {
	if c.initialize != nil {
		if err := c.initialize(ctx); err != nil {
			return err
		}
	}
	c.open.Store(true)
	return nil
}

func (c *fakeClient) Destroy(ctx context.Context) error {
	c.destroyed.Add(1)
	c.open.Store(false)
	if c.destroy != nil {
		return c.destroy(ctx)
	}
	return nil
}

func (c *fakeClient) Logout(ctx context.Context) error {
	c.loggedOut.Add(1)
	if c.logout != nil {
		return c.logout(ctx)
	}
	return nil
}

func (c *fakeClient) IsOpen() bool { return c.open.Load() }

func (c *fakeClient) SendText(_ context.Context, to, _ string) (automation.SentMessage, error) {
	return automation.SentMessage{ID: "msg-1", To: to, Timestamp: time.Unix(1700000000, 0).UTC()}, nil
}

func (c *fakeClient) Contacts(context.Context) ([]automation.Contact, error) {
	return []automation.Contact{{JID: "15550001111@s.whatsapp.net", PushName: "Ann"}}, nil
}

func (c *fakeClient) Channels(context.Context) ([]automation.Channel, error) {
	return nil, &automation.NotSupportedError{Operation: "channels", Backend: "fake"}
}

func (c *fakeClient) emit(evt automation.Event) {
	c.opts.OnEvent(evt)
}

// fakeFactory records every client it builds. configure, when set, runs on
// each new client before it is returned.
type fakeFactory struct {
	mu        sync.Mutex
	clients   []*fakeClient
	err       error
	configure func(*fakeClient)
	gate      chan struct{}
}

func (f *fakeFactory) build(opts automation.LaunchOptions) (automation.Client, error) {
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeClient{opts: opts}
	if f.configure != nil {
		f.configure(c)
	}
	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *fakeFactory) last() *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[len(f.clients)-1]
}

type memRepo struct {
	mu   sync.Mutex
	rows map[string]entities.Session
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]entities.Session)}
}

func (r *memRepo) Upsert(_ context.Context, row entities.Session) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[row.ID]
	if !ok {
		row.CreatedAt = time.Now().UTC()
		r.rows[row.ID] = row
		return true, nil
	}
	existing.UserID = row.UserID
	existing.Config = row.Config
	existing.Status = row.Status
	r.rows[row.ID] = existing
	return false, nil
}

func (r *memRepo) Find(_ context.Context, id string) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotPersisted
	}
	return &row, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID uint) ([]entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Session
	for _, row := range r.rows {
		if row.UserID == ownerID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memRepo) ListByStatus(_ context.Context, statuses ...Status) ([]entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Session
	for _, row := range r.rows {
		for _, s := range statuses {
			if row.Status == string(s) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (r *memRepo) modify(id string, fn func(*entities.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil
	}
	fn(&row)
	r.rows[id] = row
	return nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	return r.modify(id, func(row *entities.Session) { row.Status = string(status) })
}

func (r *memRepo) SaveQR(_ context.Context, id, qr string, at time.Time) error {
	return r.modify(id, func(row *entities.Session) {
		row.Status = string(StatusQRReady)
		row.QRCode = qr
		row.LastQRAt = &at
	})
}

func (r *memRepo) MarkConnected(_ context.Context, id, phone, pushName string, at time.Time) error {
	return r.modify(id, func(row *entities.Session) {
		row.Status = string(StatusConnected)
		row.Phone = phone
		row.PushName = pushName
		row.QRCode = ""
		row.ConnectedAt = &at
		row.DisconnectedAt = nil
	})
}

func (r *memRepo) MarkDisconnected(_ context.Context, id string, status Status, at time.Time) error {
	return r.modify(id, func(row *entities.Session) {
		row.Status = string(status)
		row.DisconnectedAt = &at
	})
}

func (r *memRepo) ResetConnection(_ context.Context, id string, status Status) error {
	return r.modify(id, func(row *entities.Session) {
		row.Status = string(status)
		row.Phone, row.PushName, row.ProfilePicURL, row.QRCode = "", "", "", ""
		row.ConnectedAt, row.DisconnectedAt, row.LastQRAt = nil, nil, nil
	})
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *memRepo) row(t *testing.T, id string) entities.Session {
	t.Helper()
	row, err := r.Find(context.Background(), id)
	if err != nil {
		t.Fatalf("row %s: %v", id, err)
	}
	return *row
}

type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recorder) Publish(evt eventbus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) ofType(typ events.Type) []eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventbus.Event
	for _, evt := range r.events {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func (r *recorder) statuses() []Status {
	var out []Status
	for _, evt := range r.ofType(events.SessionStatus) {
		out = append(out, evt.Data.(StatusData).Status)
	}
	return out
}

type harness struct {
	lc      *Lifecycle
	store   *Store
	repo    *memRepo
	bus     *recorder
	qr      *cache.MemoryQRCache
	factory *fakeFactory
	dataDir string
}

func newHarness(t *testing.T, tweak func(*Options)) *harness {
	t.Helper()
	opts := Options{
		DataDir:         t.TempDir(),
		InitTimeout:     time.Second,
		LogoutTimeout:   100 * time.Millisecond,
		DestroyTimeout:  100 * time.Millisecond,
		ShutdownTimeout: 100 * time.Millisecond,
		CreationWait:    time.Second,
	}
	if tweak != nil {
		tweak(&opts)
	}

	h := &harness{
		store:   NewStore(),
		repo:    newMemRepo(),
		bus:     &recorder{},
		qr:      cache.NewMemoryQRCache(time.Minute),
		factory: &fakeFactory{},
		dataDir: opts.DataDir,
	}
	h.lc = NewLifecycle(h.store, h.repo, h.bus, h.qr, h.factory.build, opts, zerolog.Nop())
	h.lc.sleep = func(time.Duration) {}
	return h
}

func (h *harness) create(t *testing.T, id string) *Session {
	t.Helper()
	s, err := h.lc.Create(context.Background(), id, 7, entities.SessionConfig{})
	if err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	return s
}

func (h *harness) connect(t *testing.T, id string) *fakeClient {
	t.Helper()
	h.create(t, id)
	c := h.factory.last()
	c.emit(automation.Event{Kind: automation.EventReady, Phone: "15550001111", PushName: "Ann"})
	if st, _ := h.lc.Status(context.Background(), id); st != StatusConnected {
		t.Fatalf("status after ready = %s, want CONNECTED", st)
	}
	return c
}

var errBoom = errors.New("boom")
