package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Sessions tracks the active cart per checkout session. Carts live in memory
// only; a committed or cancelled checkout drops the session. Idle sessions
// expire after TTL so abandoned carts do not accumulate.
type Sessions struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	cart     *Cart
	lastSeen time.Time
}

// NewSessions constructs a session registry with the given idle TTL.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{TTL: ttl, entries: make(map[string]*sessionEntry)}
}

func (s *Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sessions) ttl() time.Duration {
	if s.TTL <= 0 {
		return 4 * time.Hour
	}
	return s.TTL
}

// Open creates a fresh session with an empty cart and returns its ID.
func (s *Sessions) Open() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string]*sessionEntry)
	}
	s.entries[id] = &sessionEntry{cart: New(), lastSeen: s.now()}
	return id
}

// Get returns the cart for a session, refreshing its idle timer.
func (s *Sessions) Get(id string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().Sub(entry.lastSeen) > s.ttl() {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	entry.lastSeen = s.now()
	return entry.cart, nil
}

// Snapshot returns a deep copy of the session's cart lines, suitable for a
// commit attempt.
func (s *Sessions) Snapshot(id string) ([]pricing.Line, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return c.Snapshot(), nil
}

// Drop empties a session's cart and removes the session. Used after a
// successful commit.
func (s *Sessions) Drop(id string) {
	if c, err := s.Get(id); err == nil {
		c.Clear()
	}
	s.Close(id)
}

// Close removes a session and its cart.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Sweep drops sessions idle longer than TTL and reports how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl())
	removed := 0
	for id, entry := range s.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
