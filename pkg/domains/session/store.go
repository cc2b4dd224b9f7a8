package session

import (
	"sort"
	"sync"
	"time"

	"github.com/wagate/pkg/automation"
	"github.com/wagate/pkg/entities"
)

// Session is the live in-memory record of one linked account. Fields set at
// construction are immutable; mutable state is guarded by mu.
type Session struct {
	ID      string
	OwnerID uint
	Config  entities.SessionConfig
	DataDir string

	mu             sync.RWMutex
	client         automation.Client
	status         Status
	qr             string
	phone          string
	pushName       string
	createdAt      time.Time
	connectedAt    time.Time
	disconnectedAt time.Time
	lastQRAt       time.Time
}

// Info is a point-in-time copy of a session safe to hand to callers.
type Info struct {
	ID             string                 `json:"id"`
	OwnerID        uint                   `json:"owner_id"`
	Status         Status                 `json:"status"`
	Live           bool                   `json:"live"`
	HasQR          bool                   `json:"has_qr"`
	Phone          string                 `json:"phone,omitempty"`
	PushName       string                 `json:"push_name,omitempty"`
	Config         entities.SessionConfig `json:"config"`
	HasProxyAuth   bool                   `json:"has_proxy_auth"`
	CreatedAt      time.Time              `json:"created_at"`
	ConnectedAt    *time.Time             `json:"connected_at,omitempty"`
	DisconnectedAt *time.Time             `json:"disconnected_at,omitempty"`
	LastQRAt       *time.Time             `json:"last_qr_at,omitempty"`
}

func newSession(id string, ownerID uint, cfg entities.SessionConfig, dataDir string, now time.Time) *Session {
	return &Session{
		ID:        id,
		OwnerID:   ownerID,
		Config:    cfg,
		DataDir:   dataDir,
		status:    StatusInitializing,
		createdAt: now,
	}
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) QR() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qr
}

func (s *Session) Client() automation.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Session) setClient(c automation.Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

// transition moves the session to next and applies mutate under the same
// lock. It reports the previous status and whether the move was allowed.
func (s *Session) transition(next Status, mutate func(*Session)) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.status
	if !prev.CanTransition(next) {
		return prev, false
	}
	s.status = next
	if mutate != nil {
		mutate(s)
	}
	return prev, true
}

func (s *Session) Snapshot() Info {
	cfg, hasAuth := s.Config.Redacted()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		Status:         s.status,
		Live:           true,
		HasQR:          s.qr != "",
		Phone:          s.phone,
		PushName:       s.pushName,
		Config:         cfg,
		HasProxyAuth:   hasAuth,
		CreatedAt:      s.createdAt,
		ConnectedAt:    timePtr(s.connectedAt),
		DisconnectedAt: timePtr(s.disconnectedAt),
		LastQRAt:       timePtr(s.lastQRAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Store is the registry of live sessions plus the set of ids whose creation
// is in flight. Reads run concurrently, writes are serialized.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	creating map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		creating: make(map[string]struct{}),
	}
}

func (st *Store) Has(id string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.sessions[id]
	return ok
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetSafe is Get that fails with *SessionNotFoundError.
func (st *Store) GetSafe(id string) (*Session, error) {
	if s, ok := st.Get(id); ok {
		return s, nil
	}
	return nil, &SessionNotFoundError{ID: id}
}

func (st *Store) Set(id string, s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[id] = s
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// DeleteIf removes id only while it still maps to s, so a stale teardown
// cannot evict a newer record.
func (st *Store) DeleteIf(id string, s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur, ok := st.sessions[id]; ok && cur == s {
		delete(st.sessions, id)
		return true
	}
	return false
}

// Entries returns the live sessions ordered by id.
func (st *Store) Entries() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *Store) Size() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions = make(map[string]*Session)
}

// TryLockCreation adds id to the creation lock set. It returns false when a
// creation for id is already in flight.
func (st *Store) TryLockCreation(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, busy := st.creating[id]; busy {
		return false
	}
	st.creating[id] = struct{}{}
	return true
}

func (st *Store) UnlockCreation(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.creating, id)
}

func (st *Store) IsCreating(id string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, busy := st.creating[id]
	return busy
}
