package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and identity adapters
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: concurrent write lost, caller may retry
// - ErrUnavailable: store or upstream temporarily unreachable
// - ErrUnauthenticated: upstream definitively rejected our credentials
// - ErrPermissionDenied: upstream definitively refused access
//
// ErrUnauthenticated and ErrPermissionDenied matter to the session health
// monitor: they are the only transport failures counted as definitive.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnavailable      = errors.New("unavailable")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
)
