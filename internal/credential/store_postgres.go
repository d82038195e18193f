package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sigede/pkg/platform/sentinel"
	"sigede/pkg/platform/tx"
)

// PostgresSecretStore persists credential records in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE credential_secrets (
//	    email       TEXT PRIMARY KEY,
//	    secret_hash TEXT NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresSecretStore struct {
	db *sql.DB
}

func NewPostgresSecretStore(db *sql.DB) *PostgresSecretStore {
	return &PostgresSecretStore{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// q returns the caller's transaction when one is in the context, so secret
// rotation can join an account-provisioning transaction.
func (s *PostgresSecretStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresSecretStore) FindByEmail(ctx context.Context, email string) (SecretRecord, error) {
	var record SecretRecord
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT email, secret_hash FROM credential_secrets WHERE email = $1`,
		strings.ToLower(email),
	).Scan(&record.Email, &record.SecretHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SecretRecord{}, sentinel.ErrNotFound
		}
		return SecretRecord{}, fmt.Errorf("find secret: %w", err)
	}
	return record, nil
}

func (s *PostgresSecretStore) Save(ctx context.Context, record SecretRecord) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO credential_secrets (email, secret_hash, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (email) DO UPDATE SET
			secret_hash = EXCLUDED.secret_hash,
			updated_at = now()
	`, strings.ToLower(record.Email), record.SecretHash)
	if err != nil {
		return fmt.Errorf("save secret: %w", err)
	}
	return nil
}
