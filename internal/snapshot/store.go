package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Store keeps exactly one current Snapshot. Publish replaces it atomically
// and notifies every subscriber in publish order. Current is lock-free.
type Store struct {
	current atomic.Pointer[Snapshot]

	// mu serializes publishes with subscription changes so a new subscriber
	// never misses or duplicates a snapshot.
	mu   sync.Mutex
	subs []*Subscription
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	ID string

	store *Store
	fn    func(Snapshot)
	once  sync.Once
}

// New creates a store holding the empty snapshot.
func New() *Store {
	s := &Store{}
	empty := Empty()
	s.current.Store(&empty)
	return s
}

// Current returns the latest snapshot. Callers get their own copy.
func (s *Store) Current() Snapshot {
	return s.current.Load().Clone()
}

// Publish makes snap the current snapshot and delivers it to subscribers.
// Subscribers run synchronously on the publishing goroutine and must not
// block.
func (s *Store) Publish(snap Snapshot) {
	c := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Store(&c)
	for _, sub := range s.subs {
		sub.fn(c.Clone())
	}
}

// Subscribe registers fn and immediately calls it with the current snapshot,
// then with every later publish until the subscription is cancelled.
func (s *Store) Subscribe(fn func(Snapshot)) *Subscription {
	sub := &Subscription{
		ID:    uuid.New().String(),
		store: s,
		fn:    fn,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.current.Load().Clone())
	s.subs = append(s.subs, sub)
	return sub
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Cancel stops delivery. Safe to call more than once, but not from inside
// the subscriber callback.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		s := sub.store
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, other := range s.subs {
			if other == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
	})
}
