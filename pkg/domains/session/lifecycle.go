package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wagate/pkg/automation"
	"github.com/wagate/pkg/cache"
	"github.com/wagate/pkg/config"
	"github.com/wagate/pkg/entities"
	"github.com/wagate/pkg/eventbus"
	"github.com/wagate/pkg/events"
	"github.com/wagate/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Options struct {
	DataDir         string
	InitTimeout     time.Duration
	LogoutTimeout   time.Duration
	DestroyTimeout  time.Duration
	ShutdownTimeout time.Duration
	CreationWait    time.Duration
	CleanupGrace    time.Duration
}

func OptionsFromConfig(c config.Sessions) Options {
	return Options{
		DataDir:         c.DataDir,
		InitTimeout:     c.InitTimeout,
		LogoutTimeout:   c.LogoutTimeout,
		DestroyTimeout:  c.DestroyTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
		CreationWait:    c.CreationWait,
		CleanupGrace:    c.CleanupGrace,
	}
}

// Payloads attached to the domain events the lifecycle publishes.
type (
	StatusData struct {
		Status   Status `json:"status"`
		Previous Status `json:"previous,omitempty"`
		Phone    string `json:"phone,omitempty"`
		PushName string `json:"pushName,omitempty"`
	}
	QRData struct {
		QR string `json:"qr"`
	}
	ReadyData struct {
		Phone    string `json:"phone"`
		PushName string `json:"pushName"`
	}
	ReasonData struct {
		Reason string `json:"reason"`
	}
)

// Manager is the session surface the HTTP layer depends on.
type Manager interface {
	Create(ctx context.Context, id string, ownerID uint, cfg entities.SessionConfig) (*Session, error)
	Destroy(ctx context.Context, id string, logout bool) error
	Restart(ctx context.Context, id string) (*Session, error)
	Status(ctx context.Context, id string) (Status, error)
	Get(ctx context.Context, id string) (Info, error)
	List(ctx context.Context, ownerID uint) ([]Info, error)
	QR(ctx context.Context, id string) (string, error)
	SendText(ctx context.Context, id, to, body string) (automation.SentMessage, error)
	Contacts(ctx context.Context, id string) ([]automation.Contact, error)
	Channels(ctx context.Context, id string) ([]automation.Channel, error)
}

var _ Manager = (*Lifecycle)(nil)

// Lifecycle owns every live session: it creates, restarts and destroys them,
// tracks their status and publishes the resulting domain events.
type Lifecycle struct {
	store   *Store
	repo    Repository
	bus     eventbus.Publisher
	qr      cache.QRCache
	factory automation.Factory
	opts    Options
	log     zerolog.Logger

	flight singleflight.Group
	now    func() time.Time
	sleep  func(time.Duration)

	// keys serializes create, destroy and restart teardown per id, so one
	// lifecycle at a time owns a session's credential directory and row.
	keys keyedMutex
}

func NewLifecycle(
	store *Store,
	repo Repository,
	bus eventbus.Publisher,
	qr cache.QRCache,
	factory automation.Factory,
	opts Options,
	log zerolog.Logger,
) *Lifecycle {
	return &Lifecycle{
		store:   store,
		repo:    repo,
		bus:     bus,
		qr:      qr,
		factory: factory,
		opts:    opts,
		log:     log.With().Str("component", "session_lifecycle").Logger(),
		now: func() time.Time {
			return time.Now().UTC()
		},
		sleep: time.Sleep,
	}
}

// Create returns the live session for id, starting it if needed. Concurrent
// calls for the same id share one creation. A caller that arrives while a
// creation is already in flight waits at most CreationWait before giving up
// with *CreationInProgressError.
func (l *Lifecycle) Create(ctx context.Context, id string, ownerID uint, cfg entities.SessionConfig) (*Session, error) {
	if !entities.ValidSessionID(id) {
		return nil, ErrInvalidSessionID
	}
	if s, ok := l.store.Get(id); ok {
		return owned(s, ownerID)
	}

	duplicate := l.store.IsCreating(id)
	ch := l.flight.DoChan(id, func() (interface{}, error) {
		return l.create(context.WithoutCancel(ctx), id, ownerID, cfg)
	})

	var wait <-chan time.Time
	if duplicate {
		timer := time.NewTimer(l.opts.CreationWait)
		defer timer.Stop()
		wait = timer.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return owned(res.Val.(*Session), ownerID)
	case <-wait:
		if s, ok := l.store.Get(id); ok {
			return owned(s, ownerID)
		}
		return nil, &CreationInProgressError{ID: id}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lifecycle) create(ctx context.Context, id string, ownerID uint, cfg entities.SessionConfig) (*Session, error) {
	if !l.store.TryLockCreation(id) {
		return nil, &CreationInProgressError{ID: id}
	}
	defer l.store.UnlockCreation(id)
	unlock := l.keys.Lock(id)
	defer unlock()

	if s, ok := l.store.Get(id); ok {
		return s, nil
	}

	switch row, err := l.repo.Find(ctx, id); {
	case err == nil && row.UserID != ownerID:
		return nil, &SessionTakenError{ID: id}
	case err != nil && !errors.Is(err, ErrNotPersisted):
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	log := l.log.With().Str("session_id", id).Logger()
	sess := newSession(id, ownerID, cfg, credentialDir(l.opts.DataDir, id), l.now())

	created, err := l.repo.Upsert(ctx, entities.Session{
		ID:     id,
		UserID: ownerID,
		Status: string(StatusInitializing),
		Config: cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("persist session %s: %w", id, err)
	}

	args := launchArgs(cfg)
	client, err := l.factory(automation.LaunchOptions{
		SessionID: id,
		DataDir:   sess.DataDir,
		Args:      args,
		Proxy:     launchProxy(cfg),
		Logger:    log,
		OnEvent: func(evt automation.Event) {
			l.handleEvent(sess, evt)
		},
	})
	if err != nil {
		l.rollback(ctx, id, created, log)
		return nil, l.initFailed(sess, StatusInitializing, err, log)
	}
	sess.setClient(client)

	l.store.Set(id, sess)
	metrics.SessionsLive.Set(float64(l.store.Size()))
	l.statusChanged(sess, "", StatusInitializing)

	log.Info().Strs("args", args).Str("data_dir", sess.DataDir).Msg("initializing session")
	if err := runBounded(ctx, l.opts.InitTimeout, client.Initialize); err != nil {
		prev, _ := sess.transition(StatusFailed, nil)
		l.store.DeleteIf(id, sess)
		metrics.SessionsLive.Set(float64(l.store.Size()))
		if derr := runBounded(ctx, l.opts.DestroyTimeout, client.Destroy); derr != nil {
			log.Warn().Err(derr).Msg("destroy after failed initialization")
		}
		l.rollback(ctx, id, created, log)
		return nil, l.initFailed(sess, prev, err, log)
	}

	if cur, ok := l.store.Get(id); !ok || cur != sess {
		// evicted by Shutdown while initializing
		if derr := runBounded(ctx, l.opts.DestroyTimeout, client.Destroy); derr != nil {
			log.Warn().Err(derr).Msg("destroy evicted session")
		}
		return nil, ErrSessionEvicted
	}

	log.Info().Msg("session initialized")
	return sess, nil
}

// owned returns s when it belongs to ownerID.
func owned(s *Session, ownerID uint) (*Session, error) {
	if s.OwnerID != ownerID {
		return nil, &SessionTakenError{ID: s.ID}
	}
	return s, nil
}

// rollback removes a row this create inserted, or marks a pre-existing one
// failed.
func (l *Lifecycle) rollback(ctx context.Context, id string, created bool, log zerolog.Logger) {
	var err error
	if created {
		err = l.repo.Delete(ctx, id)
	} else {
		err = l.repo.ResetConnection(ctx, id, StatusFailed)
	}
	if err != nil {
		log.Warn().Err(err).Msg("rollback persisted session")
	}
}

func (l *Lifecycle) initFailed(sess *Session, prev Status, cause error, log zerolog.Logger) error {
	ierr := classifyInitError(sess.ID, cause)
	metrics.SessionInitFailures.WithLabelValues(string(ierr.Kind)).Inc()
	log.Error().Err(cause).Str("kind", string(ierr.Kind)).Msg("session initialization failed")
	metrics.SessionTransitions.WithLabelValues(string(StatusFailed)).Inc()
	l.publish(sess, events.SessionStatus, StatusData{Status: StatusFailed, Previous: prev})
	return ierr
}

// Destroy tears a session down. Logout is attempted only when requested and
// the client is still open. Every step is best effort and bounded: failures
// are logged and the remaining cleanup still runs.
func (l *Lifecycle) Destroy(ctx context.Context, id string, logout bool) error {
	ctx = context.WithoutCancel(ctx)
	log := l.log.With().Str("session_id", id).Logger()

	unlock := l.keys.Lock(id)
	defer unlock()

	sess, live := l.store.Get(id)
	if !live {
		if _, err := l.repo.Find(ctx, id); errors.Is(err, ErrNotPersisted) {
			return &SessionNotFoundError{ID: id}
		} else if err != nil {
			log.Warn().Err(err).Msg("look up persisted session")
		}
	}

	var prev Status
	if live {
		prev = sess.Status()
		l.teardown(ctx, sess, logout, log)
		l.store.DeleteIf(id, sess)
		metrics.SessionsLive.Set(float64(l.store.Size()))
	}

	if err := l.qr.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Msg("clear cached qr")
	}
	l.removeCredentials(id, log)

	final := StatusDisconnected
	if logout {
		final = StatusLoggedOut
	}
	if err := l.repo.ResetConnection(ctx, id, final); err != nil {
		log.Warn().Err(err).Msg("persist terminal status")
	}

	if live {
		l.statusChanged(sess, prev, final)
	}
	log.Info().Bool("logout", logout).Msg("session destroyed")
	return nil
}

func (l *Lifecycle) teardown(ctx context.Context, sess *Session, logout bool, log zerolog.Logger) {
	client := sess.Client()
	if client == nil {
		return
	}

	if logout {
		if client.IsOpen() {
			if err := runBounded(ctx, l.opts.LogoutTimeout, client.Logout); err != nil {
				log.Warn().Err(err).Msg("logout failed")
			}
		} else {
			log.Debug().Msg("client already closed, skipping logout")
		}
	}

	if err := runBounded(ctx, l.opts.DestroyTimeout, client.Destroy); err != nil {
		log.Warn().Err(err).Msg("destroy client failed")
	}
}

func (l *Lifecycle) removeCredentials(id string, log zerolog.Logger) {
	if l.opts.CleanupGrace > 0 {
		l.sleep(l.opts.CleanupGrace)
	}
	dir := credentialDir(l.opts.DataDir, id)
	if err := os.RemoveAll(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("remove credential directory")
	}
}

// Restart tears the session down without logging out, wipes its credentials
// and creates it again for the same owner and config.
func (l *Lifecycle) Restart(ctx context.Context, id string) (*Session, error) {
	if !entities.ValidSessionID(id) {
		return nil, ErrInvalidSessionID
	}

	v, err, _ := l.flight.Do("restart:"+id, func() (interface{}, error) {
		bg := context.WithoutCancel(ctx)
		ownerID, cfg, err := l.resetForRestart(bg, id)
		if err != nil {
			return nil, err
		}
		l.log.Info().Str("session_id", id).Msg("restarting session")
		return l.Create(bg, id, ownerID, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// resetForRestart tears the session down under its id lock and returns the
// owner and config to recreate it with. The lock is released before the
// caller re-enters Create.
func (l *Lifecycle) resetForRestart(ctx context.Context, id string) (uint, entities.SessionConfig, error) {
	log := l.log.With().Str("session_id", id).Logger()
	unlock := l.keys.Lock(id)
	defer unlock()

	var (
		ownerID uint
		cfg     entities.SessionConfig
	)
	sess, live := l.store.Get(id)
	if live {
		ownerID, cfg = sess.OwnerID, sess.Config
	} else {
		row, err := l.repo.Find(ctx, id)
		if errors.Is(err, ErrNotPersisted) {
			return 0, cfg, &SessionNotFoundError{ID: id}
		}
		if err != nil {
			return 0, cfg, fmt.Errorf("load session %s: %w", id, err)
		}
		ownerID, cfg = row.UserID, row.Config
	}

	if err := l.qr.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Msg("clear cached qr")
	}
	if live {
		l.teardown(ctx, sess, false, log)
		l.store.DeleteIf(id, sess)
		metrics.SessionsLive.Set(float64(l.store.Size()))
	}
	l.removeCredentials(id, log)
	if err := l.repo.ResetConnection(ctx, id, StatusInitializing); err != nil {
		log.Warn().Err(err).Msg("reset persisted session")
	}
	return ownerID, cfg, nil
}

// Shutdown destroys every live session concurrently, each bounded by
// ShutdownTimeout, then clears the store. Credentials are kept so sessions
// can be restored on the next start.
func (l *Lifecycle) Shutdown(ctx context.Context) {
	entries := l.store.Entries()
	l.log.Info().Int("sessions", len(entries)).Msg("shutting down sessions")

	var g errgroup.Group
	for _, sess := range entries {
		g.Go(func() error {
			client := sess.Client()
			if client == nil {
				return nil
			}
			if err := runBounded(ctx, l.opts.ShutdownTimeout, client.Destroy); err != nil {
				l.log.Warn().Err(err).Str("session_id", sess.ID).Msg("destroy during shutdown")
			}
			return nil
		})
	}
	_ = g.Wait()

	l.store.Clear()
	metrics.SessionsLive.Set(0)
}

// Restore recreates the sessions that were connected when the process last
// stopped.
func (l *Lifecycle) Restore(ctx context.Context) int {
	rows, err := l.repo.ListByStatus(ctx, StatusConnected)
	if err != nil {
		l.log.Error().Err(err).Msg("list sessions to restore")
		return 0
	}

	restored := 0
	for _, row := range rows {
		if _, err := l.Create(ctx, row.ID, row.UserID, row.Config); err != nil {
			l.log.Warn().Err(err).Str("session_id", row.ID).Msg("restore session")
			continue
		}
		restored++
	}
	l.log.Info().Int("restored", restored).Int("candidates", len(rows)).Msg("sessions restored")
	return restored
}

// Status returns the live status, or the persisted one. A persisted
// non-terminal status without a live record is stale and is corrected to
// FAILED on read.
func (l *Lifecycle) Status(ctx context.Context, id string) (Status, error) {
	if sess, ok := l.store.Get(id); ok {
		return sess.Status(), nil
	}
	row, err := l.persisted(ctx, id)
	if err != nil {
		return "", err
	}
	return Status(row.Status), nil
}

func (l *Lifecycle) Get(ctx context.Context, id string) (Info, error) {
	if sess, ok := l.store.Get(id); ok {
		return sess.Snapshot(), nil
	}
	row, err := l.persisted(ctx, id)
	if err != nil {
		return Info{}, err
	}
	return infoFromRow(*row), nil
}

func (l *Lifecycle) List(ctx context.Context, ownerID uint) ([]Info, error) {
	rows, err := l.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]Info, 0, len(rows))
	for i := range rows {
		if sess, ok := l.store.Get(rows[i].ID); ok {
			out = append(out, sess.Snapshot())
			continue
		}
		l.correctStale(ctx, &rows[i])
		out = append(out, infoFromRow(rows[i]))
	}
	return out, nil
}

func (l *Lifecycle) persisted(ctx context.Context, id string) (*entities.Session, error) {
	row, err := l.repo.Find(ctx, id)
	if errors.Is(err, ErrNotPersisted) {
		return nil, &SessionNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	l.correctStale(ctx, row)
	return row, nil
}

func (l *Lifecycle) correctStale(ctx context.Context, row *entities.Session) {
	if Status(row.Status).Terminal() || l.store.IsCreating(row.ID) {
		return
	}
	l.log.Info().Str("session_id", row.ID).Str("status", row.Status).Msg("correcting stale session status")
	if err := l.repo.UpdateStatus(ctx, row.ID, StatusFailed); err != nil {
		l.log.Warn().Err(err).Str("session_id", row.ID).Msg("persist stale correction")
	}
	row.Status = string(StatusFailed)
}

func infoFromRow(row entities.Session) Info {
	cfg, hasAuth := row.Config.Redacted()
	return Info{
		ID:             row.ID,
		OwnerID:        row.UserID,
		Status:         Status(row.Status),
		Phone:          row.Phone,
		PushName:       row.PushName,
		Config:         cfg,
		HasProxyAuth:   hasAuth,
		CreatedAt:      row.CreatedAt,
		ConnectedAt:    row.ConnectedAt,
		DisconnectedAt: row.DisconnectedAt,
		LastQRAt:       row.LastQRAt,
	}
}

// QR returns the current QR artifact of a live session, falling back to the
// shared cache. An empty string means no code is pending.
func (l *Lifecycle) QR(ctx context.Context, id string) (string, error) {
	sess, err := l.store.GetSafe(id)
	if err != nil {
		return "", err
	}
	if qr := sess.QR(); qr != "" {
		return qr, nil
	}
	qr, _, err := l.qr.Get(ctx, id)
	return qr, err
}

func (l *Lifecycle) SendText(ctx context.Context, id, to, body string) (automation.SentMessage, error) {
	sess, client, err := l.connected(id)
	if err != nil {
		return automation.SentMessage{}, err
	}
	sent, err := client.SendText(ctx, to, body)
	if err != nil {
		return automation.SentMessage{}, err
	}
	l.publish(sess, events.MessageSent, sent)
	return sent, nil
}

func (l *Lifecycle) Contacts(ctx context.Context, id string) ([]automation.Contact, error) {
	_, client, err := l.connected(id)
	if err != nil {
		return nil, err
	}
	return client.Contacts(ctx)
}

func (l *Lifecycle) Channels(ctx context.Context, id string) ([]automation.Channel, error) {
	_, client, err := l.connected(id)
	if err != nil {
		return nil, err
	}
	return client.Channels(ctx)
}

func (l *Lifecycle) connected(id string) (*Session, automation.Client, error) {
	sess, err := l.store.GetSafe(id)
	if err != nil {
		return nil, nil, err
	}
	if st := sess.Status(); st != StatusConnected {
		return nil, nil, &SessionNotConnectedError{ID: id, Status: st}
	}
	client := sess.Client()
	if client == nil {
		return nil, nil, &SessionNotConnectedError{ID: id, Status: sess.Status()}
	}
	return sess, client, nil
}

// handleEvent maps automation callbacks onto status transitions and domain
// events. Callbacks from a client whose record is no longer live are dropped.
func (l *Lifecycle) handleEvent(sess *Session, evt automation.Event) {
	if cur, ok := l.store.Get(sess.ID); !ok || cur != sess {
		return
	}

	ctx := context.Background()
	now := l.now()
	log := l.log.With().Str("session_id", sess.ID).Str("event", string(evt.Kind)).Logger()

	switch evt.Kind {
	case automation.EventQR:
		prev, ok := sess.transition(StatusQRReady, func(s *Session) {
			s.qr = evt.QR
			s.lastQRAt = now
		})
		if !ok {
			l.rejected(log, prev, StatusQRReady)
			return
		}
		if err := l.qr.Set(ctx, sess.ID, evt.QR); err != nil {
			log.Warn().Err(err).Msg("cache qr")
		}
		if sess.Config.Persistence.StoreQR {
			l.persist(log, l.repo.SaveQR(ctx, sess.ID, evt.QR, now))
		} else if prev != StatusQRReady {
			l.persist(log, l.repo.UpdateStatus(ctx, sess.ID, StatusQRReady))
		}
		l.publish(sess, events.QRUpdated, QRData{QR: evt.QR})
		if prev != StatusQRReady {
			l.statusChanged(sess, prev, StatusQRReady)
		}

	case automation.EventAuthenticated:
		prev, ok := sess.transition(StatusAuthenticating, func(s *Session) {
			s.qr = ""
		})
		if !ok {
			l.rejected(log, prev, StatusAuthenticating)
			return
		}
		if err := l.qr.Delete(ctx, sess.ID); err != nil {
			log.Warn().Err(err).Msg("clear cached qr")
		}
		l.persist(log, l.repo.UpdateStatus(ctx, sess.ID, StatusAuthenticating))
		l.publish(sess, events.Authenticated, nil)
		l.statusChanged(sess, prev, StatusAuthenticating)

	case automation.EventReady:
		prev, ok := sess.transition(StatusConnected, func(s *Session) {
			s.phone = evt.Phone
			s.pushName = evt.PushName
			s.qr = ""
			s.connectedAt = now
			s.disconnectedAt = time.Time{}
		})
		if !ok {
			l.rejected(log, prev, StatusConnected)
			return
		}
		if err := l.qr.Delete(ctx, sess.ID); err != nil {
			log.Warn().Err(err).Msg("clear cached qr")
		}
		l.persist(log, l.repo.MarkConnected(ctx, sess.ID, evt.Phone, evt.PushName, now))
		l.publish(sess, events.Ready, ReadyData{Phone: evt.Phone, PushName: evt.PushName})
		l.statusChanged(sess, prev, StatusConnected)

	case automation.EventMessage:
		if evt.Message == nil || ignored(sess.Config.Ignore, evt.Message) {
			return
		}
		typ := events.MessageReceived
		if evt.Message.FromMe {
			typ = events.MessageSent
		}
		l.publish(sess, typ, evt.Message)

	case automation.EventMessageAck:
		if evt.Ack != nil {
			l.publish(sess, events.MessageAck, evt.Ack)
		}

	case automation.EventDisconnected:
		target := StatusDisconnected
		if evt.Reason == automation.ReasonLogout {
			target = StatusLoggedOut
		}
		prev, ok := sess.transition(target, func(s *Session) {
			s.qr = ""
			s.disconnectedAt = now
		})
		if !ok {
			l.rejected(log, prev, target)
			return
		}
		l.persist(log, l.repo.MarkDisconnected(ctx, sess.ID, target, now))
		l.publish(sess, events.Disconnected, ReasonData{Reason: evt.Reason})
		l.statusChanged(sess, prev, target)

	case automation.EventAuthFailure:
		prev, ok := sess.transition(StatusFailed, func(s *Session) {
			s.qr = ""
		})
		if !ok {
			l.rejected(log, prev, StatusFailed)
			return
		}
		if err := l.qr.Delete(ctx, sess.ID); err != nil {
			log.Warn().Err(err).Msg("clear cached qr")
		}
		l.persist(log, l.repo.UpdateStatus(ctx, sess.ID, StatusFailed))
		l.publish(sess, events.AuthFailure, ReasonData{Reason: evt.Reason})
		l.statusChanged(sess, prev, StatusFailed)

	default:
		log.Debug().Msg("unhandled automation event")
	}
}

func ignored(f entities.IgnoreConfig, msg *automation.Message) bool {
	switch {
	case f.FromMe && msg.FromMe:
		return true
	case f.Groups && msg.IsGroup:
		return true
	case f.Broadcast && strings.HasSuffix(msg.Chat, "@broadcast"):
		return true
	}
	return false
}

func (l *Lifecycle) rejected(log zerolog.Logger, from, to Status) {
	log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("ignoring invalid status transition")
}

func (l *Lifecycle) persist(log zerolog.Logger, err error) {
	if err != nil {
		log.Warn().Err(err).Msg("persist session status")
	}
}

func (l *Lifecycle) statusChanged(sess *Session, prev, next Status) {
	metrics.SessionTransitions.WithLabelValues(string(next)).Inc()
	info := sess.Snapshot()
	l.publish(sess, events.SessionStatus, StatusData{
		Status:   next,
		Previous: prev,
		Phone:    info.Phone,
		PushName: info.PushName,
	})
}

func (l *Lifecycle) publish(sess *Session, typ events.Type, data any) {
	l.bus.Publish(eventbus.Event{
		Type:      typ,
		SessionID: sess.ID,
		OwnerID:   sess.OwnerID,
		Timestamp: l.now(),
		Data:      data,
	})
}
