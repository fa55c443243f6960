// Package session keeps the in-memory registry of live conversations. It is
// the source of truth for triage state; the database only mirrors it.
package session

import (
	"sync"
	"time"

	"triage-intake-agent/internal/triage"
)

// Session is one live conversation. Case stays nil until a symptom-bearing
// message opens it.
type Session struct {
	ID   string
	Case *triage.CaseContext
}

type entry struct {
	mu       sync.Mutex
	session  *Session
	lastSeen time.Time
}

// Store is a bounded, TTL-evicting registry of sessions. Turns for the same
// session are serialized on a per-session mutex; turns for different sessions
// never contend beyond the brief map lookup.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewStore starts a store whose janitor evicts sessions idle for longer than
// ttl. Call Stop on shutdown.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// With runs fn while holding the per-session lock, creating the session entry
// if needed. All mutation of a session's case must happen inside fn.
func (s *Store) With(sessionID string, fn func(sess *Session)) {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	if !ok {
		e = &entry{session: &Session{ID: sessionID}}
		s.entries[sessionID] = e
	}
	e.lastSeen = time.Now()
	s.mu.Unlock()

	e.mu.Lock()
	fn(e.session)
	e.mu.Unlock()

	// A slow turn (generator, TTS) must not look idle to the janitor.
	s.mu.Lock()
	e.lastSeen = time.Now()
	s.mu.Unlock()
}

// Close tears a session down eagerly, e.g. when the frontend ends a
// conversation. It reports whether the session existed.
func (s *Store) Close(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[sessionID]; !ok {
		return false
	}
	delete(s.entries, sessionID)
	return true
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop halts the janitor. Idempotent.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) janitor() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

func (s *Store) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) <= s.ttl {
			continue
		}
		// A held lock means a turn is in flight; lastSeen refreshes when it
		// ends, so just skip it this tick.
		if !e.mu.TryLock() {
			continue
		}
		delete(s.entries, id)
		e.mu.Unlock()
	}
}
