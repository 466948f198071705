package state

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

const (
	// DefaultSessionCacheSize is the maximum number of cached sessions.
	DefaultSessionCacheSize = 5000

	// DefaultSessionTTLFactor is the session lifetime in units of the lease.
	DefaultSessionTTLFactor = 2
)

// sessionCache maps session ids to sessions with a capacity bound and a
// per-entry lifetime. Entries are refreshed on every successful SEQUENCE,
// so only idle sessions expire. Lookups past the deadline miss even before
// the background sweep drops the entry.
type sessionCache struct {
	lru *expirable.LRU[types.SessionId4, *Session]
}

// newSessionCache creates a cache. onEvict runs for every entry leaving the
// cache (expiry, capacity or explicit removal) while the cache lock is held,
// so it must not call back into the cache or take the registry lock.
func newSessionCache(size int, ttl time.Duration, onEvict func(*Session)) *sessionCache {
	if size <= 0 {
		size = DefaultSessionCacheSize
	}
	return &sessionCache{
		lru: expirable.NewLRU[types.SessionId4, *Session](size, func(_ types.SessionId4, s *Session) {
			if onEvict != nil {
				onEvict(s)
			}
		}, ttl),
	}
}

func (c *sessionCache) get(id types.SessionId4) (*Session, bool) {
	return c.lru.Get(id)
}

// put inserts or refreshes a session.
func (c *sessionCache) put(s *Session) {
	c.lru.Add(s.ID(), s)
}

func (c *sessionCache) remove(id types.SessionId4) bool {
	return c.lru.Remove(id)
}

func (c *sessionCache) len() int {
	return c.lru.Len()
}

func (c *sessionCache) values() []*Session {
	return c.lru.Values()
}

func (c *sessionCache) purge() {
	c.lru.Purge()
}
