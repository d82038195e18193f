// Package audit captures key identity and session actions. Events are
// transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	id "sigede/pkg/domain"
)

// Event is emitted from domain logic to capture one auditable action.
type Event struct {
	Timestamp time.Time    `json:"timestamp"`
	AccountID id.AccountID `json:"account_id,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Action    string       `json:"action"`
	Reason    string       `json:"reason,omitempty"`
	ClientIP  string       `json:"client_ip,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// AuditEvent enumerates the actions this subsystem emits.
type AuditEvent string

const (
	EventLoginSucceeded    AuditEvent = "login_succeeded"
	EventLoginFailed       AuditEvent = "login_failed"
	EventSessionCreated    AuditEvent = "session_created"
	EventSessionSuperseded AuditEvent = "session_superseded"
	EventSessionRevoked    AuditEvent = "session_revoked"
	EventForcedLogout      AuditEvent = "forced_logout"
	EventLockoutTriggered  AuditEvent = "lockout_triggered"
)

// Publisher emits audit events. Emit is best-effort from the caller's
// perspective: login never fails because auditing does.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists audit events for inspection.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error)
}
