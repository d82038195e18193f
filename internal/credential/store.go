package credential

import (
	"context"
)

// SecretRecord is a stored credential, keyed by the account's email handle.
type SecretRecord struct {
	Email      string
	SecretHash string
}

// SecretStore persists credential records. Implementations return
// sentinel.ErrNotFound when no record exists for the email.
type SecretStore interface {
	FindByEmail(ctx context.Context, email string) (SecretRecord, error)
	Save(ctx context.Context, record SecretRecord) error
}
