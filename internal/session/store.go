// Package session implements the per-conversation session store: the
// process-wide map from conversation identifier to authentication state,
// with per-identifier serialization and idle eviction.
package session

import (
	"sync"
	"time"

	"github.com/askarihq/patrolbot/internal/domain"
)

// Store owns all Session records for their lifetime. The store lock only
// guards map insertion and eviction; business logic on a single session
// runs under that session's own lock via Do.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	// now is swappable for tests.
	now func() time.Time
}

type entry struct {
	mu sync.Mutex
	// turning marks an in-flight turn for this identifier so a second
	// concurrent message can be rejected instead of interleaved.
	turning bool
	sess    domain.Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// getOrCreate returns the entry for id, creating it unauthenticated on
// first contact. Creation never fails for a valid id.
func (s *Store) getOrCreate(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		now := s.now()
		e = &entry{sess: domain.Session{
			ID:         id,
			LastSeenAt: now,
			CreatedAt:  now,
		}}
		s.entries[id] = e
	}
	return e
}

// Do runs fn with exclusive access to the session for id. All
// read-modify-write sequences on one identifier go through here, so
// concurrent messages from the same identifier cannot observe torn state.
func (s *Store) Do(id string, fn func(sess *domain.Session)) {
	e := s.getOrCreate(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.sess)
}

// Get returns a snapshot of the session for id, creating it if absent.
func (s *Store) Get(id string) domain.Session {
	var snap domain.Session
	s.Do(id, func(sess *domain.Session) {
		snap = *sess
	})
	return snap
}

// SetAuthenticated marks the session authenticated and stores the token.
// It clears nothing else; the login flow consumes the pending action
// itself so replay happens under the same per-identifier critical section.
func (s *Store) SetAuthenticated(id, token string) {
	s.Do(id, func(sess *domain.Session) {
		sess.Authenticated = true
		sess.WasAuthenticated = true
		sess.Token = token
	})
}

// Invalidate clears authentication state. Used on detected expiry and on
// explicit logout.
func (s *Store) Invalidate(id string) {
	s.Do(id, func(sess *domain.Session) {
		sess.Authenticated = false
		sess.Token = ""
	})
}

// SetPending buffers the one deferred action for id, replacing any
// previous one.
func (s *Store) SetPending(id string, action domain.Action) {
	s.Do(id, func(sess *domain.Session) {
		a := action
		sess.PendingAction = &a
	})
}

// TakePending consumes the deferred action, if any. A second take is a
// no-op returning false.
func (s *Store) TakePending(id string) (domain.Action, bool) {
	var (
		action domain.Action
		ok     bool
	)
	s.Do(id, func(sess *domain.Session) {
		if sess.PendingAction != nil {
			action = *sess.PendingAction
			sess.PendingAction = nil
			ok = true
		}
	})
	return action, ok
}

// Touch updates the last-seen timestamp for id.
func (s *Store) Touch(id string) {
	s.Do(id, func(sess *domain.Session) {
		sess.LastSeenAt = s.now()
	})
}

// Remove drops the session for id entirely.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// TryBeginTurn reserves the identifier for one turn. It returns false if
// a turn is already in flight for id.
func (s *Store) TryBeginTurn(id string) bool {
	e := s.getOrCreate(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.turning {
		return false
	}
	e.turning = true
	return true
}

// EndTurn releases the reservation taken by TryBeginTurn.
func (s *Store) EndTurn(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.turning = false
	e.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// EvictIdle removes sessions whose last-seen timestamp is older than
// threshold and returns the evicted identifiers. Each candidate is
// re-checked under its own lock so eviction never races an in-flight
// turn.
func (s *Store) EvictIdle(threshold time.Duration) []string {
	cutoff := s.now().Add(-threshold)

	s.mu.Lock()
	candidates := make([]*entry, 0)
	ids := make([]string, 0)
	for id, e := range s.entries {
		candidates = append(candidates, e)
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var evicted []string
	for i, e := range candidates {
		e.mu.Lock()
		stale := !e.turning && e.sess.LastSeenAt.Before(cutoff)
		e.mu.Unlock()
		if !stale {
			continue
		}

		s.mu.Lock()
		// The entry may have been touched or replaced since the check.
		if cur, ok := s.entries[ids[i]]; ok && cur == e {
			cur.mu.Lock()
			if !cur.turning && cur.sess.LastSeenAt.Before(cutoff) {
				delete(s.entries, ids[i])
				evicted = append(evicted, ids[i])
			}
			cur.mu.Unlock()
		}
		s.mu.Unlock()
	}
	return evicted
}
