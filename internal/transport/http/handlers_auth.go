package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"sigede/internal/identity/models"
	"sigede/internal/transport/http/shared"
	dErrors "sigede/pkg/domain-errors"
)

// AuthService is the external auth surface the handlers delegate to.
type AuthService interface {
	Login(ctx context.Context, identifier, secret string) (models.Account, error)
	Logout(ctx context.Context) error
	CurrentAccount() *models.Account
	IsPrivileged(role models.Role) bool
}

// AuthHandler is the thin HTTP layer over the auth service. No business
// logic lives here.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Register registers the auth routes.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type accountResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Privileged  bool   `json:"privileged"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validateLoginRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	account, err := h.auth.Login(ctx, strings.TrimSpace(req.Identifier), req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected", "code", string(dErrors.CodeOf(err)))
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, accountResponse{
		ID:          account.ID.String(),
		DisplayName: account.DisplayName,
		Role:        string(account.Role),
		Privileged:  h.auth.IsPrivileged(account.Role),
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	account := h.auth.CurrentAccount()
	if account == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not logged in"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, accountResponse{
		ID:          account.ID.String(),
		DisplayName: account.DisplayName,
		Role:        string(account.Role),
		Privileged:  h.auth.IsPrivileged(account.Role),
	})
}

func validateLoginRequest(req loginRequest) error {
	if !govalidator.StringLength(strings.TrimSpace(req.Identifier), "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}
	if !govalidator.StringLength(req.Secret, "1", "1024") {
		return dErrors.New(dErrors.CodeInvalidInput, "secret is required")
	}
	return nil
}
