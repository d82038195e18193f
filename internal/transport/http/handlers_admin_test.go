package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigede/internal/session/models"
	id "sigede/pkg/domain"
	adminmw "sigede/pkg/platform/middleware/admin"
	"sigede/pkg/platform/audit"
	auditmemory "sigede/pkg/platform/audit/store/memory"
)

type stubSessionLister struct {
	sessions []models.Session
	err      error
}

func (s *stubSessionLister) Sessions(ctx context.Context, accountID id.AccountID) ([]models.Session, error) {
	return s.sessions, s.err
}

func newAdminRouter(t *testing.T, lister SessionLister, store audit.Store, token string) chi.Router {
	t.Helper()
	handler := NewAdminHandler(lister, store, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	r.Group(func(g chi.Router) {
		g.Use(adminmw.RequireToken(token, slog.New(slog.DiscardHandler)))
		handler.Register(g)
	})
	return r
}

func TestAdminSessionsRequiresToken(t *testing.T) {
	router := newAdminRouter(t, &stubSessionLister{}, auditmemory.NewInMemoryStore(), "ops-token")

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts/ctz-001/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminListSessions(t *testing.T) {
	lister := &stubSessionLister{sessions: []models.Session{{
		ID:        id.NewSessionID(),
		AccountID: id.AccountID("ctz-001"),
		CreatedAt: time.Now(),
	}}}
	router := newAdminRouter(t, lister, auditmemory.NewInMemoryStore(), "ops-token")

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts/ctz-001/sessions", nil)
	req.Header.Set("X-Admin-Token", "ops-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), lister.sessions[0].ID.String())
}

func TestAdminListAudit(t *testing.T) {
	store := auditmemory.NewInMemoryStore()
	require.NoError(t, store.Append(context.Background(), audit.Event{
		AccountID: id.AccountID("ctz-001"),
		Action:    string(audit.EventLoginSucceeded),
	}))
	router := newAdminRouter(t, &stubSessionLister{}, store, "ops-token")

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts/ctz-001/audit", nil)
	req.Header.Set("X-Admin-Token", "ops-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(audit.EventLoginSucceeded))
}
