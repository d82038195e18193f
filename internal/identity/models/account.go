// Package models defines the canonical account shape that every identity
// store normalizes into. The stores themselves carry heterogeneous schemas
// (village administrators, office staff, resident and non-resident citizen
// registries); nothing outside a store adapter sees those raw records.
package models

import (
	id "sigede/pkg/domain"
)

// Role is the portal-facing role of an account.
type Role string

const (
	RoleAdministrator   Role = "administrator"
	RoleStaff           Role = "staff"
	RoleCitizen         Role = "citizen"
	RoleCitizenExternal Role = "citizen_external"
)

// PrivilegeTier orders identity stores. Lower values are checked first and
// win on duplicate handles.
type PrivilegeTier int

const (
	TierElevated PrivilegeTier = iota
	TierStaff
	TierStandard
	TierExternal
)

// Privileged reports whether the tier carries administrative authority.
func (t PrivilegeTier) Privileged() bool {
	return t == TierElevated || t == TierStaff
}

// Status is the lifecycle state of an account. Accounts are mutated by
// external user-management flows; this subsystem only reads them.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
	StatusPending   Status = "pending"
)

// HandleKind classifies a login handle.
type HandleKind string

const (
	HandlePrimaryID  HandleKind = "primary_id"
	HandleEmail      HandleKind = "email"
	HandleUsername   HandleKind = "username"
	HandleNationalID HandleKind = "national_id"
)

// LoginHandle is one identifier an account can log in with. Values are
// assumed unique within a kind; that uniqueness is owned by the stores and
// not enforced here.
type LoginHandle struct {
	Kind  HandleKind `json:"kind"`
	Value string     `json:"value"`
}

// Account is the canonical identity record.
type Account struct {
	ID          id.AccountID  `json:"account_id"`
	DisplayName string        `json:"display_name"`
	Role        Role          `json:"role"`
	Status      Status        `json:"status"`
	Handles     []LoginHandle `json:"login_handles"`
	Tier        PrivilegeTier `json:"privilege_tier"`
}

// Email returns the account's email handle, or "" if it has none. Secret
// records are keyed by email, so the validator needs this.
func (a Account) Email() string {
	for _, h := range a.Handles {
		if h.Kind == HandleEmail {
			return h.Value
		}
	}
	return ""
}

// HasHandle reports whether the account owns the given handle value under
// any kind.
func (a Account) HasHandle(value string) bool {
	for _, h := range a.Handles {
		if h.Value == value {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role carries administrative authority
// over the portal.
func IsPrivileged(role Role) bool {
	return role == RoleAdministrator || role == RoleStaff
}
