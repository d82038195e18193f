// Package credential checks a submitted secret against tier-specific rules
// and account status. Verification is uniform across tiers: every account
// with a resolvable identity still has to present a matching secret.
package credential

import (
	"context"
	"errors"
	"log/slog"

	"sigede/internal/identity/models"
	dErrors "sigede/pkg/domain-errors"
	"sigede/pkg/platform/sentinel"
)

// dummyHash is a valid bcrypt hash used when no credential record exists.
// Comparing against it keeps the missing-record path as expensive as a real
// mismatch, so response timing never reveals which lookups found a record.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Validator validates credentials for resolved accounts.
type Validator struct {
	secrets SecretStore
	logger  *slog.Logger
}

func NewValidator(secrets SecretStore, logger *slog.Logger) *Validator {
	return &Validator{secrets: secrets, logger: logger}
}

// Validate checks account status first, then the submitted secret. Status
// failures win over credential failures so a pending account always reports
// account_pending, regardless of secret correctness.
func (v *Validator) Validate(ctx context.Context, account models.Account, submitted string) error {
	switch account.Status {
	case models.StatusSuspended:
		return dErrors.New(dErrors.CodeAccountSuspended, "account is suspended")
	case models.StatusInactive:
		return dErrors.New(dErrors.CodeAccountInactive, "account is inactive")
	case models.StatusPending:
		return dErrors.New(dErrors.CodeAccountPending, "account is pending approval")
	}

	email := account.Email()
	if email == "" {
		// No email handle means no secret record can exist. Accounts
		// without provisioned credentials cannot log in.
		return v.rejectUniform(submitted)
	}

	record, err := v.secrets.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return v.rejectUniform(submitted)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "credential lookup failed")
	}

	if err := Verify(submitted, record.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidCredential) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "credential verification failed")
	}
	return nil
}

// rejectUniform burns a bcrypt comparison before rejecting, and returns an
// error indistinguishable from the wrong-secret one. The comparison result
// is deliberately ignored.
func (v *Validator) rejectUniform(submitted string) error {
	_ = Verify(submitted, dummyHash)
	return dErrors.New(dErrors.CodeInvalidCredential, "invalid secret")
}
