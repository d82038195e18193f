package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sigede/internal/session/models"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

// PostgresRegistry persists sessions in PostgreSQL. The one-session-per-
// account invariant is enforced twice: delete-prior-and-insert-new runs in
// one serializable transaction, and a unique index on account_id backs it
// at the schema level.
//
// Schema:
//
//	CREATE TABLE sessions (
//	    session_id   UUID PRIMARY KEY,
//	    account_id   TEXT NOT NULL,
//	    device       JSONB NOT NULL DEFAULT '{}',
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    last_seen_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX sessions_account_id_key ON sessions (account_id);
type PostgresRegistry struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresRegistry.
type PostgresOption func(*PostgresRegistry)

// WithPostgresClock sets the clock function for deterministic tests.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(r *PostgresRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresRegistry {
	r := &PostgresRegistry{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PostgresRegistry) Create(ctx context.Context, accountID id.AccountID, device models.DeviceDescriptor) (models.Session, error) {
	now := r.clock()
	session := models.Session{
		ID:         id.NewSessionID(),
		AccountID:  accountID,
		Device:     device,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	deviceJSON, err := json.Marshal(device)
	if err != nil {
		return models.Session{}, fmt.Errorf("marshal device: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Session{}, fmt.Errorf("begin takeover: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE account_id = $1`, accountID.String(),
	); err != nil {
		return models.Session{}, fmt.Errorf("revoke prior sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, account_id, device, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $4)
	`, session.ID.String(), accountID.String(), deviceJSON, now); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			// A concurrent login won the race; caller may retry.
			return models.Session{}, sentinel.ErrConflict
		}
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Session{}, fmt.Errorf("commit takeover: %w", err)
	}
	return session, nil
}

func (r *PostgresRegistry) Find(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	var (
		session    models.Session
		rawID      string
		rawAccount string
		deviceJSON []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, account_id, device, created_at, last_seen_at
		FROM sessions WHERE session_id = $1
	`, sessionID.String()).Scan(&rawID, &rawAccount, &deviceJSON, &session.CreatedAt, &session.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, sentinel.ErrNotFound
		}
		return models.Session{}, fmt.Errorf("find session: %w", err)
	}
	parsed, err := id.ParseSessionID(rawID)
	if err != nil {
		return models.Session{}, fmt.Errorf("corrupt session row: %w", err)
	}
	session.ID = parsed
	session.AccountID = id.AccountID(rawAccount)
	if err := json.Unmarshal(deviceJSON, &session.Device); err != nil {
		return models.Session{}, fmt.Errorf("unmarshal device: %w", err)
	}
	return session, nil
}

func (r *PostgresRegistry) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) models.TouchResult {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_seen_at = $2
		WHERE session_id = $1 AND last_seen_at < $2
	`, sessionID.String(), at)
	if err != nil {
		return models.TouchResult{Err: fmt.Errorf("touch session: %w", err)}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.TouchResult{Err: err}
	}
	return models.TouchResult{Updated: affected > 0}
}

func (r *PostgresRegistry) Delete(ctx context.Context, sessionID id.SessionID) error {
	// Idempotent: deleting an absent session is not an error.
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_id = $1`, sessionID.String(),
	); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) DeleteByAccount(ctx context.Context, accountID id.AccountID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE account_id = $1`, accountID.String(),
	); err != nil {
		return fmt.Errorf("delete account sessions: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, account_id, device, created_at, last_seen_at
		FROM sessions WHERE account_id = $1
	`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list account sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var (
			session    models.Session
			rawID      string
			rawAccount string
			deviceJSON []byte
		)
		if err := rows.Scan(&rawID, &rawAccount, &deviceJSON, &session.CreatedAt, &session.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		parsed, err := id.ParseSessionID(rawID)
		if err != nil {
			return nil, fmt.Errorf("corrupt session row: %w", err)
		}
		session.ID = parsed
		session.AccountID = id.AccountID(rawAccount)
		if err := json.Unmarshal(deviceJSON, &session.Device); err != nil {
			return nil, fmt.Errorf("unmarshal device: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}
