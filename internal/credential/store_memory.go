package credential

import (
	"context"
	"strings"
	"sync"

	"sigede/pkg/platform/sentinel"
)

// InMemorySecretStore keeps credential records in a map. Used in tests and
// single-process deployments.
type InMemorySecretStore struct {
	mu      sync.RWMutex
	byEmail map[string]SecretRecord
}

func NewInMemorySecretStore() *InMemorySecretStore {
	return &InMemorySecretStore{byEmail: make(map[string]SecretRecord)}
}

func (s *InMemorySecretStore) FindByEmail(ctx context.Context, email string) (SecretRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return SecretRecord{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemorySecretStore) Save(ctx context.Context, record SecretRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[strings.ToLower(record.Email)] = record
	return nil
}
