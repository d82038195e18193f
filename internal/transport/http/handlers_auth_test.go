package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sigede/internal/identity/models"
	"sigede/internal/transport/http/mocks"
	id "sigede/pkg/domain"
	dErrors "sigede/pkg/domain-errors"
)

//go:generate mockgen -source=handlers_auth.go -destination=mocks/auth_mocks.go -package=mocks AuthService

type AuthHandlerSuite struct {
	suite.Suite

	ctrl    *gomock.Controller
	service *mocks.MockAuthService
	router  chi.Router
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockAuthService(s.ctrl)

	handler := NewAuthHandler(s.service, slog.New(slog.DiscardHandler))
	s.router = chi.NewRouter()
	handler.Register(s.router)
}

func (s *AuthHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AuthHandlerSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func (s *AuthHandlerSuite) TestLoginSuccess() {
	account := models.Account{
		ID:          id.AccountID("ctz-001"),
		DisplayName: "Siti Rahma",
		Role:        models.RoleCitizen,
	}
	s.service.EXPECT().Login(gomock.Any(), "siti@village.id", "rahasia123").Return(account, nil)
	s.service.EXPECT().IsPrivileged(models.RoleCitizen).Return(false)

	rec := s.do(http.MethodPost, "/auth/login", `{"identifier":"siti@village.id","secret":"rahasia123"}`)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	body := s.decode(rec)
	assert.Equal(s.T(), "ctz-001", body["id"])
	assert.Equal(s.T(), "citizen", body["role"])
	assert.Equal(s.T(), false, body["privileged"])
}

func (s *AuthHandlerSuite) TestLoginBadJSON() {
	s.service.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	rec := s.do(http.MethodPost, "/auth/login", `{bad-json`)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), string(dErrors.CodeBadRequest), s.decode(rec)["error"])
}

func (s *AuthHandlerSuite) TestLoginMissingFields() {
	s.service.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	rec := s.do(http.MethodPost, "/auth/login", `{"identifier":"  ","secret":""}`)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), string(dErrors.CodeInvalidInput), s.decode(rec)["error"])
}

func (s *AuthHandlerSuite) TestLoginInvalidCredential() {
	s.service.EXPECT().Login(gomock.Any(), "siti@village.id", "wrong").
		Return(models.Account{}, dErrors.New(dErrors.CodeInvalidCredential, "credential mismatch"))

	rec := s.do(http.MethodPost, "/auth/login", `{"identifier":"siti@village.id","secret":"wrong"}`)

	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.Equal(s.T(), string(dErrors.CodeInvalidCredential), s.decode(rec)["error"])
}

func (s *AuthHandlerSuite) TestLoginSuspendedAccount() {
	s.service.EXPECT().Login(gomock.Any(), "siti@village.id", "rahasia123").
		Return(models.Account{}, dErrors.New(dErrors.CodeAccountSuspended, "account suspended"))

	rec := s.do(http.MethodPost, "/auth/login", `{"identifier":"siti@village.id","secret":"rahasia123"}`)

	assert.Equal(s.T(), http.StatusForbidden, rec.Code)
}

func (s *AuthHandlerSuite) TestLogout() {
	s.service.EXPECT().Logout(gomock.Any()).Return(nil)

	rec := s.do(http.MethodPost, "/auth/logout", "")

	assert.Equal(s.T(), http.StatusNoContent, rec.Code)
}

func (s *AuthHandlerSuite) TestMeLoggedIn() {
	account := models.Account{ID: id.AccountID("adm-001"), DisplayName: "Pak Lurah", Role: models.RoleAdministrator}
	s.service.EXPECT().CurrentAccount().Return(&account)
	s.service.EXPECT().IsPrivileged(models.RoleAdministrator).Return(true)

	rec := s.do(http.MethodGet, "/auth/me", "")

	require.Equal(s.T(), http.StatusOK, rec.Code)
	body := s.decode(rec)
	assert.Equal(s.T(), "adm-001", body["id"])
	assert.Equal(s.T(), true, body["privileged"])
}

func (s *AuthHandlerSuite) TestMeLoggedOut() {
	s.service.EXPECT().CurrentAccount().Return(nil)

	rec := s.do(http.MethodGet, "/auth/me", "")

	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}
