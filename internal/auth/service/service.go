// Package service is the login/logout facade the rest of the portal calls.
// It sequences resolution, validation, and session creation strictly in
// that order, and owns the lifecycle of the session health monitor.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sigede/internal/auth/metrics"
	idmodels "sigede/internal/identity/models"
	"sigede/internal/session/cache"
	sessionmodels "sigede/internal/session/models"
	"sigede/internal/session/monitor"
	"sigede/internal/session/registry"
	id "sigede/pkg/domain"
	dErrors "sigede/pkg/domain-errors"
	"sigede/pkg/platform/audit"
	"sigede/pkg/platform/middleware/device"
	"sigede/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// IdentityResolver maps a login handle to a canonical account.
type IdentityResolver interface {
	Resolve(ctx context.Context, identifier string) (idmodels.Account, error)
}

// CredentialValidator checks a submitted secret for a resolved account.
type CredentialValidator interface {
	Validate(ctx context.Context, account idmodels.Account, submitted string) error
}

// Lockout throttles failed attempts. Optional; a nil lockout allows all.
type Lockout interface {
	Allowed(ctx context.Context, identifier, ip string) (bool, time.Time)
	RecordFailure(ctx context.Context, identifier, ip string)
	Clear(ctx context.Context, identifier, ip string)
}

// Service implements the external auth surface.
type Service struct {
	resolver  IdentityResolver
	validator CredentialValidator
	sessions  registry.Registry
	cache     cache.ClientCache
	lockout   Lockout
	publisher audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	monitorCfg   monitor.Config
	monitorHooks monitor.Hooks

	mu      sync.Mutex
	monitor *monitor.Monitor
}

// Option configures a Service.
type Option func(*Service)

func WithLockout(l Lockout) Option {
	return func(s *Service) { s.lockout = l }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMonitor configures the per-login session health monitor.
func WithMonitor(cfg monitor.Config, hooks monitor.Hooks) Option {
	return func(s *Service) {
		s.monitorCfg = cfg
		s.monitorHooks = hooks
	}
}

func New(resolver IdentityResolver, validator CredentialValidator, sessions registry.Registry, clientCache cache.ClientCache, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		resolver:  resolver,
		validator: validator,
		sessions:  sessions,
		cache:     clientCache,
		logger:    logger,
		monitorCfg: monitor.Config{
			Interval:         monitor.DefaultInterval,
			FailureThreshold: monitor.DefaultFailureThreshold,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login resolves the identifier, validates the secret, creates a session
// (revoking priors), persists the client cache, and starts a fresh health
// monitor. Identity and credential failures are immediate and user-visible.
// A registry failure during session creation is logged but never blocks an
// otherwise-valid login.
func (s *Service) Login(ctx context.Context, identifier, secret string) (idmodels.Account, error) {
	ip := requestcontext.ClientIP(ctx)

	if s.lockout != nil {
		allowed, retryAt := s.lockout.Allowed(ctx, identifier, ip)
		if !allowed {
			s.observe("locked")
			s.emit(ctx, audit.Event{
				Action:   string(audit.EventLockoutTriggered),
				Reason:   fmt.Sprintf("retry after %s", retryAt.Format(time.RFC3339)),
				ClientIP: ip,
			})
			return idmodels.Account{}, dErrors.New(dErrors.CodeLocked, "too many failed attempts")
		}
	}

	resolveStart := time.Now()
	account, err := s.resolver.Resolve(ctx, identifier)
	if s.metrics != nil {
		s.metrics.ObserveResolve(time.Since(resolveStart))
	}
	if err != nil {
		return idmodels.Account{}, s.loginFailed(ctx, identifier, ip, err)
	}

	if err := s.validator.Validate(ctx, account, secret); err != nil {
		return idmodels.Account{}, s.loginFailed(ctx, identifier, ip, err)
	}

	s.noteTakeover(ctx, account.ID)

	session, err := s.sessions.Create(ctx, account.ID, deviceFromContext(ctx))
	if err != nil {
		// Soft failure: a transient store outage must not block an
		// otherwise-valid login. There is no session to watch, so the
		// monitor stays off until the next login.
		s.logger.ErrorContext(ctx, "session creation failed",
			"account_id", account.ID.String(),
			"error", err,
		)
	}

	if err := s.cache.Save(account, session.ID); err != nil {
		s.logger.WarnContext(ctx, "client cache save failed", "error", err)
	}

	if s.lockout != nil {
		s.lockout.Clear(ctx, identifier, ip)
	}
	s.observe("ok")
	s.emit(ctx, audit.Event{
		Action:    string(audit.EventLoginSucceeded),
		AccountID: account.ID,
		SessionID: session.ID.String(),
		ClientIP:  ip,
	})
	if !session.ID.IsNil() {
		s.emit(ctx, audit.Event{
			Action:    string(audit.EventSessionCreated),
			AccountID: account.ID,
			SessionID: session.ID.String(),
		})
		s.startMonitor(session.ID, account)
	}
	return account, nil
}

// Logout stops the monitor, revokes the session best-effort, and scrubs
// the client cache.
func (s *Service) Logout(ctx context.Context) error {
	s.stopMonitor()

	entry, ok := s.cache.Load()
	if ok && !entry.SessionID.IsNil() {
		if err := s.sessions.Delete(ctx, entry.SessionID); err != nil {
			// Best-effort: the cache is cleared either way, and the next
			// login for this account revokes the stale session anyway.
			s.logger.WarnContext(ctx, "session delete failed on logout",
				"session_id", entry.SessionID.String(),
				"error", err,
			)
		}
		s.emit(ctx, audit.Event{
			Action:    string(audit.EventSessionRevoked),
			AccountID: entry.Account.ID,
			SessionID: entry.SessionID.String(),
		})
	}
	if err := s.cache.Clear(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear client cache")
	}
	return nil
}

// CurrentAccount returns the cached active account, or nil when logged
// out. Synchronous: no network calls.
func (s *Service) CurrentAccount() *idmodels.Account {
	entry, ok := s.cache.Load()
	if !ok {
		return nil
	}
	account := entry.Account
	return &account
}

// IsPrivileged reports whether the role carries administrative authority.
func (s *Service) IsPrivileged(role idmodels.Role) bool {
	return idmodels.IsPrivileged(role)
}

// Sessions exposes live registry records for operational tooling.
func (s *Service) Sessions(ctx context.Context, accountID id.AccountID) ([]sessionmodels.Session, error) {
	return s.sessions.ListByAccount(ctx, accountID)
}

// MonitorState exposes the running monitor's failure accounting. Returns
// false when no monitor is running.
func (s *Service) MonitorState() (sessionmodels.ValidationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor == nil {
		return sessionmodels.ValidationState{}, false
	}
	return s.monitor.State(), true
}

// Close stops the monitor. Call on shutdown.
func (s *Service) Close() {
	s.stopMonitor()
}

func (s *Service) loginFailed(ctx context.Context, identifier, ip string, cause error) error {
	code := dErrors.CodeOf(cause)
	switch code {
	case dErrors.CodeIdentityNotFound, dErrors.CodeInvalidCredential,
		dErrors.CodeAccountSuspended, dErrors.CodeAccountInactive, dErrors.CodeAccountPending:
		if s.lockout != nil {
			s.lockout.RecordFailure(ctx, identifier, ip)
		}
		s.observe(string(code))
		s.emit(ctx, audit.Event{
			Action:   string(audit.EventLoginFailed),
			Reason:   string(code),
			ClientIP: ip,
		})
		return cause
	default:
		s.observe("error")
		return dErrors.Wrap(cause, dErrors.CodeInternal, "login failed")
	}
}

// noteTakeover records when a login is about to revoke a prior live
// session, before the atomic create erases the evidence.
func (s *Service) noteTakeover(ctx context.Context, accountID id.AccountID) {
	prior, err := s.sessions.ListByAccount(ctx, accountID)
	if err != nil || len(prior) == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.SessionTakeovers.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:    string(audit.EventSessionSuperseded),
		AccountID: accountID,
		SessionID: prior[0].ID.String(),
	})
}

// startMonitor replaces any previous monitor with a fresh one so a new
// login always starts with zeroed failure accounting. Privileged accounts
// never get a monitor.
func (s *Service) startMonitor(sessionID id.SessionID, account idmodels.Account) {
	s.stopMonitor()
	if idmodels.IsPrivileged(account.Role) || s.monitorCfg.Disabled {
		return
	}

	cfg := s.monitorCfg
	if s.metrics != nil && cfg.OnCycle == nil {
		cfg.OnCycle = func(result string) {
			s.metrics.MonitorCycles.WithLabelValues(result).Inc()
		}
	}
	m := monitor.New(s.sessions, s.logger, cfg, s.monitorHooks, sessionID, account.ID, func() {
		s.forceLogout(account.ID, sessionID)
	})
	s.mu.Lock()
	s.monitor = m
	s.mu.Unlock()
	m.Start(context.Background())
}

func (s *Service) stopMonitor() {
	s.mu.Lock()
	m := s.monitor
	s.monitor = nil
	s.mu.Unlock()
	if m != nil {
		m.Stop()
	}
}

// forceLogout handles the monitor declaring the session dead: scrub the
// cache so the client falls back to the login screen.
func (s *Service) forceLogout(accountID id.AccountID, sessionID id.SessionID) {
	if s.metrics != nil {
		s.metrics.ForcedLogouts.Inc()
	}
	s.emit(context.Background(), audit.Event{
		Action:    string(audit.EventForcedLogout),
		AccountID: accountID,
		SessionID: sessionID.String(),
	})
	if err := s.cache.Clear(); err != nil {
		s.logger.Error("cache clear failed during forced logout", "error", err)
	}
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(outcome)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

// deviceFromContext reads the parsed device descriptor set by transport
// middleware, falling back to the raw user agent string.
func deviceFromContext(ctx context.Context) sessionmodels.DeviceDescriptor {
	if d, ok := device.FromContext(ctx); ok {
		return d
	}
	return sessionmodels.DeviceDescriptor{Raw: requestcontext.UserAgent(ctx)}
}
