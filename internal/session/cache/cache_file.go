package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"sigede/internal/identity/models"
	id "sigede/pkg/domain"
)

// FileCache persists the active login under a directory, one file per key,
// surviving process restarts. Writes are atomic (write-then-rename).
type FileCache struct {
	dir string
}

func NewFile(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) Save(account models.Account, sessionID id.SessionID) error {
	entry := Entry{Account: account, SessionID: sessionID}
	blob, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := c.write(keyEntry, blob); err != nil {
		return err
	}
	if err := c.write(keyLastAccount, []byte(account.ID.String())); err != nil {
		return err
	}
	return c.write(keyVendorState, []byte("1"))
}

func (c *FileCache) Load() (Entry, bool) {
	blob, err := os.ReadFile(c.path(keyEntry))
	if err != nil {
		return Entry{}, false
	}
	entry, err := decodeEntry(blob)
	if err != nil {
		return Entry{}, false
	}
	return entry, true
}

// Clear removes every file in the cache directory, not just the keys this
// version writes, so stale keys from older clients are scrubbed too.
func (c *FileCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("scrub cache key %s: %w", e.Name(), err)
		}
	}
	return nil
}

// ResidualKeys returns how many keys remain on disk.
func (c *FileCache) ResidualKeys() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(key, string(os.PathSeparator), "_"))
}

func (c *FileCache) write(key string, blob []byte) error {
	target := c.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("write cache key %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("persist cache key %s: %w", key, err)
	}
	return nil
}

func encodeEntry(entry Entry) ([]byte, error) {
	blob, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return blob, nil
}

func decodeEntry(blob []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(blob, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, nil
}
