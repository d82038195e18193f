package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigede/internal/session/models"
	"sigede/internal/transport/http/shared"
	id "sigede/pkg/domain"
	dErrors "sigede/pkg/domain-errors"
	"sigede/pkg/platform/audit"
)

// SessionLister exposes live registry records for operational tooling.
type SessionLister interface {
	Sessions(ctx context.Context, accountID id.AccountID) ([]models.Session, error)
}

// AdminHandler serves the operational endpoints: session inspection and the
// audit trail. These sit under /admin and are expected to be protected at
// the gateway in front of this service.
type AdminHandler struct {
	sessions SessionLister
	audit    audit.Store
	logger   *slog.Logger
}

func NewAdminHandler(sessions SessionLister, auditStore audit.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{sessions: sessions, audit: auditStore, logger: logger}
}

// Register registers the admin routes.
func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/admin/accounts/{accountID}/sessions", h.handleListSessions)
	r.Get("/admin/accounts/{accountID}/audit", h.handleListAudit)
}

func (h *AdminHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account id"))
		return
	}

	sessions, err := h.sessions.Sessions(ctx, accountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "session listing failed", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list sessions"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *AdminHandler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account id"))
		return
	}

	events, err := h.audit.ListByAccount(ctx, accountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit listing failed", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
