package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sigede/internal/auth/metrics"
	"sigede/internal/auth/service/mocks"
	"sigede/internal/identity/models"
	"sigede/internal/session/cache"
	sessionmodels "sigede/internal/session/models"
	"sigede/internal/session/monitor"
	"sigede/internal/session/registry"
	id "sigede/pkg/domain"
	dErrors "sigede/pkg/domain-errors"
	"sigede/pkg/platform/audit"
	"sigede/pkg/platform/audit/publisher"
	auditmemory "sigede/pkg/platform/audit/store/memory"
	"sigede/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	ctrl      *gomock.Controller
	resolver  *mocks.MockIdentityResolver
	validator *mocks.MockCredentialValidator
	registry  *registry.InMemoryRegistry
	cache     *cache.InMemoryCache
	audit     *auditmemory.InMemoryStore

	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockIdentityResolver(s.ctrl)
	s.validator = mocks.NewMockCredentialValidator(s.ctrl)
	s.registry = registry.NewInMemory()
	s.cache = cache.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()

	s.service = New(
		s.resolver, s.validator, s.registry, s.cache,
		slog.New(slog.DiscardHandler),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithMonitor(monitor.Config{
			Interval:         time.Hour,
			FailureThreshold: monitor.DefaultFailureThreshold,
		}, monitor.Hooks{}),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.service.Close()
}

func citizenAccount() models.Account {
	return models.Account{
		ID:          id.AccountID("ctz-001"),
		DisplayName: "Siti Rahma",
		Role:        models.RoleCitizen,
		Status:      models.StatusActive,
		Tier:        models.TierStandard,
		Handles: []models.LoginHandle{
			{Kind: models.HandleEmail, Value: "siti@village.id"},
		},
	}
}

func (s *ServiceSuite) TestLoginSuccess() {
	ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.9", "Mozilla/5.0")
	account := citizenAccount()

	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").Return(nil)

	got, err := s.service.Login(ctx, "siti@village.id", "rahasia123")
	s.Require().NoError(err)
	s.Equal(account.ID, got.ID)

	sessions, err := s.registry.ListByAccount(ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)

	entry, ok := s.cache.Load()
	s.Require().True(ok)
	s.Equal(account.ID, entry.Account.ID)
	s.Equal(sessions[0].ID, entry.SessionID)

	events, err := s.audit.ListByAccount(ctx, account.ID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, string(audit.EventLoginSucceeded))
	s.Contains(actions, string(audit.EventSessionCreated))
}

func (s *ServiceSuite) TestLoginUnknownIdentifier() {
	s.resolver.EXPECT().Resolve(gomock.Any(), "ghost@village.id").
		Return(models.Account{}, dErrors.New(dErrors.CodeIdentityNotFound, "no match"))

	_, err := s.service.Login(context.Background(), "ghost@village.id", "whatever")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIdentityNotFound))

	_, ok := s.cache.Load()
	s.False(ok, "failed login must not populate the cache")
}

func (s *ServiceSuite) TestLoginBadSecret() {
	account := citizenAccount()
	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "wrong").
		Return(dErrors.New(dErrors.CodeInvalidCredential, "credential mismatch"))

	_, err := s.service.Login(context.Background(), "siti@village.id", "wrong")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
}

func (s *ServiceSuite) TestLoginSuspendedAccount() {
	account := citizenAccount()
	account.Status = models.StatusSuspended
	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").
		Return(dErrors.New(dErrors.CodeAccountSuspended, "account suspended"))

	_, err := s.service.Login(context.Background(), "siti@village.id", "rahasia123")
	s.True(dErrors.HasCode(err, dErrors.CodeAccountSuspended))
}

func (s *ServiceSuite) TestLockoutBlocksBeforeResolution() {
	lockout := mocks.NewMockLockout(s.ctrl)
	s.service.lockout = lockout

	retryAt := time.Now().Add(10 * time.Minute)
	lockout.EXPECT().Allowed(gomock.Any(), "siti@village.id", gomock.Any()).Return(false, retryAt)

	// Resolver must not be consulted while locked.
	_, err := s.service.Login(context.Background(), "siti@village.id", "rahasia123")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLocked))
}

func (s *ServiceSuite) TestFailureRecordsLockout() {
	lockout := mocks.NewMockLockout(s.ctrl)
	s.service.lockout = lockout

	lockout.EXPECT().Allowed(gomock.Any(), "siti@village.id", gomock.Any()).Return(true, time.Time{})
	lockout.EXPECT().RecordFailure(gomock.Any(), "siti@village.id", gomock.Any())

	account := citizenAccount()
	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "wrong").
		Return(dErrors.New(dErrors.CodeInvalidCredential, "credential mismatch"))

	_, err := s.service.Login(context.Background(), "siti@village.id", "wrong")
	s.Require().Error(err)
}

func (s *ServiceSuite) TestResolverInfraErrorIsInternal() {
	lockout := mocks.NewMockLockout(s.ctrl)
	s.service.lockout = lockout
	lockout.EXPECT().Allowed(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, time.Time{})
	// No RecordFailure: infrastructure faults are not the caller's fault.

	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").
		Return(models.Account{}, errors.New("connection refused"))

	_, err := s.service.Login(context.Background(), "siti@village.id", "rahasia123")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestSecondLoginSupersedesFirst() {
	ctx := context.Background()
	account := citizenAccount()

	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil).Times(2)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").Return(nil).Times(2)

	_, err := s.service.Login(ctx, "siti@village.id", "rahasia123")
	s.Require().NoError(err)
	first, _ := s.cache.Load()

	_, err = s.service.Login(ctx, "siti@village.id", "rahasia123")
	s.Require().NoError(err)
	second, _ := s.cache.Load()

	s.NotEqual(first.SessionID, second.SessionID)

	sessions, err := s.registry.ListByAccount(ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1, "at most one live session per account")
	s.Equal(second.SessionID, sessions[0].ID)

	events, err := s.audit.ListByAccount(ctx, account.ID)
	s.Require().NoError(err)
	superseded := false
	for _, e := range events {
		if e.Action == string(audit.EventSessionSuperseded) {
			superseded = true
		}
	}
	s.True(superseded)
}

func (s *ServiceSuite) TestRegistryOutageDoesNotBlockLogin() {
	account := citizenAccount()
	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").Return(nil)

	s.service.sessions = &brokenRegistry{InMemoryRegistry: s.registry}

	got, err := s.service.Login(context.Background(), "siti@village.id", "rahasia123")
	s.Require().NoError(err, "registry outage must not block a valid login")
	s.Equal(account.ID, got.ID)

	entry, ok := s.cache.Load()
	s.Require().True(ok)
	s.True(entry.SessionID.IsNil(), "no session was created")

	_, running := s.service.MonitorState()
	s.False(running, "nothing to monitor without a session")
}

func (s *ServiceSuite) TestLogoutRevokesAndScrubs() {
	ctx := context.Background()
	account := citizenAccount()

	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").Return(nil)

	_, err := s.service.Login(ctx, "siti@village.id", "rahasia123")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Logout(ctx))

	s.Nil(s.service.CurrentAccount())
	s.Zero(s.cache.ResidualKeys(), "clear must scrub every key")

	sessions, err := s.registry.ListByAccount(ctx, account.ID)
	s.Require().NoError(err)
	s.Empty(sessions)

	_, running := s.service.MonitorState()
	s.False(running)
}

func (s *ServiceSuite) TestLogoutWhenNotLoggedIn() {
	s.Require().NoError(s.service.Logout(context.Background()))
	s.Nil(s.service.CurrentAccount())
}

func (s *ServiceSuite) TestCurrentAccountReflectsCache() {
	s.Nil(s.service.CurrentAccount())

	account := citizenAccount()
	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").Return(nil)

	_, err := s.service.Login(context.Background(), "siti@village.id", "rahasia123")
	s.Require().NoError(err)

	current := s.service.CurrentAccount()
	s.Require().NotNil(current)
	s.Equal(account.ID, current.ID)
	s.Equal("Siti Rahma", current.DisplayName)
}

func (s *ServiceSuite) TestLoginObservesResolveLatency() {
	reg := prometheus.NewRegistry()
	s.service.metrics = metrics.NewWith(reg)

	account := citizenAccount()
	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").Return(nil)

	_, err := s.service.Login(context.Background(), "siti@village.id", "rahasia123")
	s.Require().NoError(err)

	families, err := reg.Gather()
	s.Require().NoError(err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "sigede_identity_resolve_duration_ms" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	s.Equal(uint64(1), samples, "every login observes one resolve duration")
}

func (s *ServiceSuite) TestIsPrivileged() {
	s.True(s.service.IsPrivileged(models.RoleAdministrator))
	s.True(s.service.IsPrivileged(models.RoleStaff))
	s.False(s.service.IsPrivileged(models.RoleCitizen))
	s.False(s.service.IsPrivileged(models.RoleCitizenExternal))
}

func (s *ServiceSuite) TestMonitorStartsForCitizenOnly() {
	ctx := context.Background()

	account := citizenAccount()
	s.resolver.EXPECT().Resolve(gomock.Any(), "siti@village.id").Return(account, nil)
	s.validator.EXPECT().Validate(gomock.Any(), account, "rahasia123").Return(nil)
	_, err := s.service.Login(ctx, "siti@village.id", "rahasia123")
	s.Require().NoError(err)

	state, running := s.service.MonitorState()
	s.True(running)
	s.Zero(state.ConsecutiveFailures, "a fresh login starts with zeroed accounting")

	admin := models.Account{
		ID:     id.AccountID("adm-001"),
		Role:   models.RoleAdministrator,
		Status: models.StatusActive,
		Tier:   models.TierElevated,
	}
	s.resolver.EXPECT().Resolve(gomock.Any(), "admin@village.id").Return(admin, nil)
	s.validator.EXPECT().Validate(gomock.Any(), admin, "s3cret").Return(nil)
	_, err = s.service.Login(ctx, "admin@village.id", "s3cret")
	s.Require().NoError(err)

	_, running = s.service.MonitorState()
	s.False(running, "privileged accounts are never monitored")
}

// brokenRegistry simulates a session store outage during creation.
type brokenRegistry struct {
	*registry.InMemoryRegistry
}

func (b *brokenRegistry) Create(ctx context.Context, accountID id.AccountID, device sessionmodels.DeviceDescriptor) (sessionmodels.Session, error) {
	return sessionmodels.Session{}, errors.New("registry unavailable")
}
