// Package staff adapts the office-staff identity store. Staff records use a
// username-first schema with a free-form status string; like the
// administrator store it is an elevated store, so its accounts normalize to
// an administrative role (staff) with the elevated validation rules.
package staff

import (
	"context"
	"strings"
	"sync"

	"sigede/internal/identity/models"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

// Record mirrors the upstream staff table row.
type Record struct {
	Username string
	Email    string
	Name     string
	Unit     string
	Status   string // "aktif", "nonaktif", "ditangguhkan"
}

type InMemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]Record
}

func New() *InMemoryStore {
	return &InMemoryStore{byUsername: make(map[string]Record)}
}

func (s *InMemoryStore) Seed(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.byUsername[strings.ToLower(r.Username)] = r
	}
}

func (s *InMemoryStore) Name() string { return "staff" }

func (s *InMemoryStore) Tier() models.PrivilegeTier { return models.TierStaff }

func (s *InMemoryStore) Kinds() []models.HandleKind {
	return []models.HandleKind{models.HandleUsername, models.HandleEmail}
}

func (s *InMemoryStore) FindByHandle(ctx context.Context, kind models.HandleKind, value string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.ToLower(value)
	if kind == models.HandleUsername {
		if r, ok := s.byUsername[key]; ok {
			return normalize(r), nil
		}
		return models.Account{}, sentinel.ErrNotFound
	}
	for _, r := range s.byUsername {
		if strings.EqualFold(r.Email, value) {
			return normalize(r), nil
		}
	}
	return models.Account{}, sentinel.ErrNotFound
}

func normalize(r Record) models.Account {
	var status models.Status
	switch r.Status {
	case "nonaktif":
		status = models.StatusInactive
	case "ditangguhkan":
		status = models.StatusSuspended
	default:
		status = models.StatusActive
	}
	handles := []models.LoginHandle{
		{Kind: models.HandleUsername, Value: strings.ToLower(r.Username)},
	}
	if r.Email != "" {
		handles = append(handles, models.LoginHandle{Kind: models.HandleEmail, Value: strings.ToLower(r.Email)})
	}
	return models.Account{
		ID:          id.AccountID("staff:" + strings.ToLower(r.Username)),
		DisplayName: r.Name,
		Role:        models.RoleStaff,
		Status:      status,
		Tier:        models.TierStaff,
		Handles:     handles,
	}
}
