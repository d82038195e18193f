// Package citizens adapts the resident-citizen registry. Records are keyed
// by national registry number (NIK) and carry an explicit account status.
package citizens

import (
	"context"
	"strings"
	"sync"

	"sigede/internal/identity/models"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

// Record mirrors the resident registry document.
type Record struct {
	NIK      string // national registry number, also the primary ID
	FullName string
	Email    string
	Status   models.Status
}

type InMemoryStore struct {
	mu    sync.RWMutex
	byNIK map[string]Record
}

func New() *InMemoryStore {
	return &InMemoryStore{byNIK: make(map[string]Record)}
}

func (s *InMemoryStore) Seed(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.byNIK[r.NIK] = r
	}
}

func (s *InMemoryStore) Name() string { return "citizens" }

func (s *InMemoryStore) Tier() models.PrivilegeTier { return models.TierStandard }

func (s *InMemoryStore) Kinds() []models.HandleKind {
	return []models.HandleKind{models.HandlePrimaryID, models.HandleNationalID, models.HandleEmail}
}

func (s *InMemoryStore) FindByHandle(ctx context.Context, kind models.HandleKind, value string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case models.HandlePrimaryID, models.HandleNationalID:
		if r, ok := s.byNIK[value]; ok {
			return s.normalize(r), nil
		}
	case models.HandleEmail:
		for _, r := range s.byNIK {
			if strings.EqualFold(r.Email, value) {
				return s.normalize(r), nil
			}
		}
	}
	return models.Account{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) normalize(r Record) models.Account {
	status := r.Status
	if status == "" {
		status = models.StatusActive
	}
	handles := []models.LoginHandle{
		{Kind: models.HandlePrimaryID, Value: r.NIK},
		{Kind: models.HandleNationalID, Value: r.NIK},
	}
	if r.Email != "" {
		handles = append(handles, models.LoginHandle{Kind: models.HandleEmail, Value: strings.ToLower(r.Email)})
	}
	return models.Account{
		ID:          id.AccountID(r.NIK),
		DisplayName: r.FullName,
		Role:        models.RoleCitizen,
		Status:      status,
		Tier:        models.TierStandard,
		Handles:     handles,
	}
}
