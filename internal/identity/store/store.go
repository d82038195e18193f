// Package store defines the IdentityStore capability that every
// independently-owned account collection implements. The aggregator iterates
// stores in tier order instead of hardwiring per-store branching.
package store

import (
	"context"

	"sigede/internal/identity/models"
)

// IdentityStore is one independently managed collection of account records.
// Implementations normalize their raw schema into models.Account and return
// sentinel.ErrNotFound when no record matches. Lookups are pure reads.
type IdentityStore interface {
	// Name identifies the store in logs and trace spans.
	Name() string

	// Tier orders this store for priority resolution. Lower tiers win.
	Tier() models.PrivilegeTier

	// Kinds lists the handle kinds this store can be queried by.
	Kinds() []models.HandleKind

	// FindByHandle resolves a single handle value to a normalized account.
	FindByHandle(ctx context.Context, kind models.HandleKind, value string) (models.Account, error)
}
