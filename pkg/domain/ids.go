// Package domain holds the typed identifiers shared across the identity and
// session subsystem. Typed IDs prevent cross-type assignment at compile time:
// a SessionID can never be handed to a function expecting an AccountID.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "sigede/pkg/domain-errors"
)

// AccountID is the canonical account identifier. It is minted by the
// upstream identity stores, not by this service, so it is string-backed
// rather than UUID-backed: elevated stores use email-shaped IDs while
// citizen stores use national registry numbers.
type AccountID string

func (a AccountID) String() string { return string(a) }

// IsZero reports whether the ID is empty.
func (a AccountID) IsZero() bool { return a == "" }

// ParseAccountID validates an account identifier from an untrusted source.
func ParseAccountID(raw string) (AccountID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account ID must not be empty")
	}
	if len(raw) > 254 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account ID too long")
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return "", dErrors.New(dErrors.CodeInvalidInput, "account ID contains control characters")
		}
	}
	return AccountID(raw), nil
}

// SessionID is an opaque, unguessable session identifier.
type SessionID uuid.UUID

// NewSessionID mints a fresh random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

func (s SessionID) String() string { return uuid.UUID(s).String() }

// IsNil reports whether the ID is the zero UUID.
func (s SessionID) IsNil() bool { return uuid.UUID(s) == uuid.Nil }

// MarshalText encodes the ID as its canonical UUID string.
func (s SessionID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(s).String()), nil
}

// UnmarshalText decodes a canonical UUID string.
func (s *SessionID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*s = SessionID(parsed)
	return nil
}

// ParseSessionID validates a session identifier from an untrusted source.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session ID must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session ID must not be nil")
	}
	return SessionID(parsed), nil
}
