package registry

import (
	"context"
	"sync"
	"time"

	"sigede/internal/session/models"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

// InMemoryRegistry implements Registry with a single mutex. Takeover is one
// critical section, so the one-session-per-account invariant holds under
// concurrent logins.
type InMemoryRegistry struct {
	mu        sync.Mutex
	sessions  map[id.SessionID]models.Session
	byAccount map[id.AccountID]id.SessionID
	clock     func() time.Time
}

// Option configures an InMemoryRegistry.
type Option func(*InMemoryRegistry)

// WithClock sets the clock function for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(r *InMemoryRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewInMemory(opts ...Option) *InMemoryRegistry {
	r := &InMemoryRegistry{
		sessions:  make(map[id.SessionID]models.Session),
		byAccount: make(map[id.AccountID]id.SessionID),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRegistry) Create(ctx context.Context, accountID id.AccountID, device models.DeviceDescriptor) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.byAccount[accountID]; ok {
		delete(r.sessions, prior)
	}

	now := r.clock()
	session := models.Session{
		ID:         id.NewSessionID(),
		AccountID:  accountID,
		Device:     device,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	r.sessions[session.ID] = session
	r.byAccount[accountID] = session.ID
	return session, nil
}

func (r *InMemoryRegistry) Find(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return models.Session{}, sentinel.ErrNotFound
	}
	return session, nil
}

func (r *InMemoryRegistry) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) models.TouchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return models.TouchResult{Err: sentinel.ErrNotFound}
	}
	// Updated mirrors the SQL backend's affected-rows count: a stale
	// timestamp writes nothing and reports no update.
	updated := at.After(session.LastSeenAt)
	if updated {
		session.LastSeenAt = at
		r.sessions[sessionID] = session
	}
	return models.TouchResult{Updated: updated}
}

func (r *InMemoryRegistry) Delete(ctx context.Context, sessionID id.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil // idempotent
	}
	delete(r.sessions, sessionID)
	if r.byAccount[session.AccountID] == sessionID {
		delete(r.byAccount, session.AccountID)
	}
	return nil
}

func (r *InMemoryRegistry) DeleteByAccount(ctx context.Context, accountID id.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sessionID, ok := r.byAccount[accountID]; ok {
		delete(r.sessions, sessionID)
		delete(r.byAccount, accountID)
	}
	return nil
}

func (r *InMemoryRegistry) ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	if sessionID, ok := r.byAccount[accountID]; ok {
		if session, ok := r.sessions[sessionID]; ok {
			out = append(out, session)
		}
	}
	return out, nil
}
