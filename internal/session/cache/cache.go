// Package cache is the client-side persisted view of the active
// account/session, serving fast synchronous reads between logins. It is an
// explicit, injectable interface rather than ambient global state, so tests
// can run multiple isolated logical sessions concurrently.
package cache

import (
	"sigede/internal/identity/models"
	id "sigede/pkg/domain"
)

// Entry is the cached login.
type Entry struct {
	Account   models.Account `json:"account"`
	SessionID id.SessionID   `json:"session_id"`
}

// ClientCache persists the active login across reloads. Load returns
// (entry, true) when a login is cached. Clear scrubs every key related to
// identity/session, including auxiliary keys, so no stale credential
// material survives into the next login.
type ClientCache interface {
	Save(account models.Account, sessionID id.SessionID) error
	Load() (Entry, bool)
	Clear() error
}
