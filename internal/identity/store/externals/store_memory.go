// Package externals adapts the non-resident citizen registry (people
// registered in the village but domiciled elsewhere). Same national-ID
// keying as the resident registry but a distinct schema and a distinct role.
package externals

import (
	"context"
	"sync"

	"sigede/internal/identity/models"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

// Record mirrors the external registry document. The upstream system stores
// verification as a tri-state string rather than the resident registry's
// status enum.
type Record struct {
	RegistryNo   string // national registry number
	Name         string
	Verification string // "verified", "rejected", "waiting"
}

type InMemoryStore struct {
	mu   sync.RWMutex
	byNo map[string]Record
}

func New() *InMemoryStore {
	return &InMemoryStore{byNo: make(map[string]Record)}
}

func (s *InMemoryStore) Seed(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.byNo[r.RegistryNo] = r
	}
}

func (s *InMemoryStore) Name() string { return "externals" }

func (s *InMemoryStore) Tier() models.PrivilegeTier { return models.TierExternal }

func (s *InMemoryStore) Kinds() []models.HandleKind {
	return []models.HandleKind{models.HandlePrimaryID, models.HandleNationalID}
}

func (s *InMemoryStore) FindByHandle(ctx context.Context, kind models.HandleKind, value string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byNo[value]
	if !ok {
		return models.Account{}, sentinel.ErrNotFound
	}

	status := models.StatusPending
	switch r.Verification {
	case "verified":
		status = models.StatusActive
	case "rejected":
		status = models.StatusInactive
	}
	return models.Account{
		ID:          id.AccountID(r.RegistryNo),
		DisplayName: r.Name,
		Role:        models.RoleCitizenExternal,
		Status:      status,
		Tier:        models.TierExternal,
		Handles: []models.LoginHandle{
			{Kind: models.HandlePrimaryID, Value: r.RegistryNo},
			{Kind: models.HandleNationalID, Value: r.RegistryNo},
		},
	}, nil
}
