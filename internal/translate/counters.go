package translate

import (
	"sync"

	"github.com/google/uuid"
)

// SessionCounters tracks requests made per provider within one process
// lifetime. Counts only go up; nothing decrements them except an explicit
// user-initiated reset.
type SessionCounters struct {
	mu        sync.Mutex
	sessionID string
	counts    map[string]int
}

// NewSessionCounters creates counters scoped to a fresh session ID.
func NewSessionCounters() *SessionCounters {
	return &SessionCounters{
		sessionID: uuid.NewString(),
		counts:    make(map[string]int),
	}
}

// SessionID identifies the running session.
func (c *SessionCounters) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Inc records one request for the provider and returns the new count.
func (c *SessionCounters) Inc(provider string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[provider]++
	return c.counts[provider]
}

// Get returns the requests made by the provider this session.
func (c *SessionCounters) Get(provider string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[provider]
}

// Snapshot returns a copy of all counts.
func (c *SessionCounters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Reset zeroes all counts and rotates the session ID.
func (c *SessionCounters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
	c.sessionID = uuid.NewString()
}
