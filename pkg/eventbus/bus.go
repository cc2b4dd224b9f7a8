// Package eventbus is the in-process publish/subscribe hub that carries
// domain events from the session lifecycle to webhook delivery and realtime
// push.
package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wagate/pkg/events"
)

// Event is one domain event. Data is event specific and must be JSON
// serializable.
type Event struct {
	ID        string
	Type      events.Type
	SessionID string
	OwnerID   uint
	Timestamp time.Time
	Data      any
}

type Handler func(Event)

// Publisher is the narrow surface producers depend on.
type Publisher interface {
	Publish(evt Event)
}

// Bus fans every published event out to all current subscribers. Each
// subscriber has its own unbounded mailbox drained by a dedicated goroutine,
// so Publish never waits on a handler and every subscriber sees events in
// publish order.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
	log    zerolog.Logger
	now    func() time.Time
}

func New(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[uint64]*subscription),
		log:  log.With().Str("component", "eventbus").Logger(),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Subscribe registers h and returns a function that removes it. Events
// already queued for the subscriber when it is removed are discarded.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	sub := newSubscription(name, h, b.log)
	b.subs[id] = sub
	go sub.run()

	return func() {
		b.mu.Lock()
		s, ok := b.subs[id]
		delete(b.subs, id)
		b.mu.Unlock()
		if ok {
			s.stop()
		}
	}
}

// Publish stamps evt with an id and timestamp when missing and queues it for
// every subscriber.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = b.now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		sub.push(evt)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops all subscribers. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscription)
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

type subscription struct {
	name    string
	handler Handler
	log     zerolog.Logger

	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscription(name string, h Handler, log zerolog.Logger) *subscription {
	return &subscription{
		name:    name,
		handler: h,
		log:     log,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (s *subscription) push(evt Event) {
	s.mu.Lock()
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			batch := s.queue
			s.queue = nil
			s.mu.Unlock()

			for _, evt := range batch {
				select {
				case <-s.done:
					return
				default:
				}
				s.deliver(evt)
			}
		}
	}
}

func (s *subscription) deliver(evt Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("subscriber", s.name).
				Str("event", string(evt.Type)).
				Interface("panic", r).
				Msg("subscriber panicked")
		}
	}()
	s.handler(evt)
}
