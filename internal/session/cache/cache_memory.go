package cache

import (
	"sync"

	"sigede/internal/identity/models"
	id "sigede/pkg/domain"
)

// keys mirroring the durable cache namespace. The auxiliary keys exist so
// Clear can be verified to scrub everything, not just the main entry.
const (
	keyEntry       = "auth.session"
	keyLastAccount = "auth.last_account"
	keyVendorState = "vendor.auth_state"
)

// InMemoryCache implements ClientCache for tests and ephemeral clients.
type InMemoryCache struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewInMemory() *InMemoryCache {
	return &InMemoryCache{keys: make(map[string][]byte)}
}

func (c *InMemoryCache) Save(account models.Account, sessionID id.SessionID) error {
	entry := Entry{Account: account, SessionID: sessionID}
	blob, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[keyEntry] = blob
	c.keys[keyLastAccount] = []byte(account.ID.String())
	c.keys[keyVendorState] = []byte("1")
	return nil
}

func (c *InMemoryCache) Load() (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	blob, ok := c.keys[keyEntry]
	if !ok {
		return Entry{}, false
	}
	entry, err := decodeEntry(blob)
	if err != nil {
		return Entry{}, false
	}
	return entry, true
}

func (c *InMemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Scrub the whole namespace, vendor-prefixed keys included.
	c.keys = make(map[string][]byte)
	return nil
}

// ResidualKeys returns how many keys remain. Test hook for the zero
// residual keys property.
func (c *InMemoryCache) ResidualKeys() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}
