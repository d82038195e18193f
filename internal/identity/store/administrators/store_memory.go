// Package administrators adapts the village-administrator identity store.
// Its upstream schema is flat email-keyed records; every record normalizes
// to the administrator role regardless of the position field, because the
// portal grants one uniform level of administrative authority.
package administrators

import (
	"context"
	"strings"
	"sync"

	"sigede/internal/identity/models"
	id "sigede/pkg/domain"
	"sigede/pkg/email"
	"sigede/pkg/platform/sentinel"
)

// Record is the raw shape of an administrator account as the upstream
// store holds it.
type Record struct {
	Email     string
	FullName  string
	Position  string // kepala desa, sekretaris, kaur, ...
	Suspended bool
	Approved  bool
}

// InMemoryStore is the in-process adapter over administrator records.
type InMemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]Record
}

func New() *InMemoryStore {
	return &InMemoryStore{byEmail: make(map[string]Record)}
}

// Seed loads records, keyed by lowercased email.
func (s *InMemoryStore) Seed(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.byEmail[strings.ToLower(r.Email)] = r
	}
}

func (s *InMemoryStore) Name() string { return "administrators" }

func (s *InMemoryStore) Tier() models.PrivilegeTier { return models.TierElevated }

func (s *InMemoryStore) Kinds() []models.HandleKind {
	return []models.HandleKind{models.HandleEmail, models.HandleUsername}
}

func (s *InMemoryStore) FindByHandle(ctx context.Context, kind models.HandleKind, value string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.ToLower(value)
	record, ok := s.byEmail[key]
	if !ok && kind == models.HandleUsername {
		// Administrators may log in with the local part of their email.
		for addr, r := range s.byEmail {
			if local, _, found := strings.Cut(addr, "@"); found && local == key {
				record, ok = r, true
				break
			}
		}
	}
	if !ok {
		return models.Account{}, sentinel.ErrNotFound
	}
	return normalize(record), nil
}

func normalize(r Record) models.Account {
	status := models.StatusActive
	switch {
	case r.Suspended:
		status = models.StatusSuspended
	case !r.Approved:
		status = models.StatusPending
	}
	displayName := r.FullName
	if displayName == "" {
		displayName = email.DeriveDisplayName(r.Email)
	}
	return models.Account{
		ID:          id.AccountID(strings.ToLower(r.Email)),
		DisplayName: displayName,
		Role:        models.RoleAdministrator,
		Status:      status,
		Tier:        models.TierElevated,
		Handles: []models.LoginHandle{
			{Kind: models.HandleEmail, Value: strings.ToLower(r.Email)},
		},
	}
}
