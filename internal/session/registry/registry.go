// Package registry is the durable store enforcing at most one live session
// per account. Create performs revoke-priors-and-insert-new as one atomic
// operation keyed on the account ID, so two near-simultaneous logins can
// never both leave a live session.
package registry

import (
	"context"
	"time"

	"sigede/internal/session/models"
	id "sigede/pkg/domain"
)

// Registry persists sessions. Implementations return sentinel.ErrNotFound
// from Find for missing, deleted, or superseded sessions. Delete and
// DeleteByAccount are idempotent: deleting an absent session is not an
// error.
type Registry interface {
	// Create atomically revokes any prior sessions for the account and
	// inserts a fresh one with a new opaque ID. Last successful create
	// wins; prior sessions are revoked, never merged.
	Create(ctx context.Context, accountID id.AccountID, device models.DeviceDescriptor) (models.Session, error)

	// Find returns the session by ID.
	Find(ctx context.Context, sessionID id.SessionID) (models.Session, error)

	// Touch advances LastSeenAt. Best-effort: the result is inspectable
	// but a failed touch never invalidates the session.
	Touch(ctx context.Context, sessionID id.SessionID, at time.Time) models.TouchResult

	// Delete removes the session if present.
	Delete(ctx context.Context, sessionID id.SessionID) error

	// DeleteByAccount removes every session for the account.
	DeleteByAccount(ctx context.Context, accountID id.AccountID) error

	// ListByAccount returns the live sessions for an account, for
	// operational and audit inspection.
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Session, error)
}
