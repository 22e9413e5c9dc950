package certmanager

import (
	"sync"
	"time"
)

// InMemoryCache memoizes minted leaf certificates by hostname for the
// lifetime of the process. It is safe for the concurrent get-or-create the
// per-connection TLS handshakes perform.
type InMemoryCache struct {
	mu    sync.RWMutex
	cache map[string]*Certificate
}

// NewInMemoryCache creates an empty leaf certificate cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		cache: make(map[string]*Certificate),
	}
}

func (c *InMemoryCache) Get(hostname string) (*Certificate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cert, found := c.cache[hostname]
	return cert, found
}

// GetValid returns the cached certificate for hostname unless it is expired
// or expires within threshold, in which case the caller should mint a
// replacement.
func (c *InMemoryCache) GetValid(hostname string, threshold time.Duration) (*Certificate, bool) {
	cert, found := c.Get(hostname)
	if !found || cert.IsExpired(threshold) {
		return nil, false
	}

	return cert, true
}

func (c *InMemoryCache) Set(hostname string, cert *Certificate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[hostname] = cert
}

func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*Certificate)
}

func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}
