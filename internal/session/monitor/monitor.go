// Package monitor runs the background loop reconciling the client's session
// against the registry. It is deliberately biased toward "stay logged in":
// a spurious logout during flaky connectivity costs far more than a
// late-detected duplicate session, especially for administrative work.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"sigede/internal/session/models"
	"sigede/internal/session/registry"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

const (
	// DefaultInterval is the reference cycle period.
	DefaultInterval = 30 * time.Minute

	// DefaultFailureThreshold is the number of consecutive definitive
	// failures before the session is treated as superseded.
	DefaultFailureThreshold = 20
)

// Hooks report client-side state the monitor consults each cycle. All three
// are optional; a nil hook reports false.
type Hooks struct {
	// RecentActivity reports whether the user interacted recently.
	RecentActivity func() bool
	// Hidden reports whether the page/tab is not visible.
	Hidden func() bool
	// AdminContext reports whether the active route is administrative.
	AdminContext func() bool
}

// Config tunes a Monitor.
type Config struct {
	Interval         time.Duration
	FailureThreshold int
	// Disabled turns the monitor off process-wide. Used in production to
	// guarantee zero spurious administrative logouts.
	Disabled bool
	// OnCycle, when set, observes each cycle's result: "skipped",
	// "healthy", "failed", or "transient".
	OnCycle func(result string)
}

// Monitor periodically validates one session. Each login gets a fresh
// Monitor: ValidationState never persists across logins.
type Monitor struct {
	reg       registry.Registry
	logger    *slog.Logger
	hooks     Hooks
	cfg       Config
	sessionID id.SessionID
	accountID id.AccountID

	// onInvalidated drives the forced logout. Fired at most once.
	onInvalidated func()
	invalidated   sync.Once

	mu    sync.Mutex
	state models.ValidationState

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a monitor for one login. onInvalidated is invoked (once) when
// the failure threshold is crossed in a non-privileged context.
func New(reg registry.Registry, logger *slog.Logger, cfg Config, hooks Hooks, sessionID id.SessionID, accountID id.AccountID, onInvalidated func()) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	return &Monitor{
		reg:           reg,
		logger:        logger,
		hooks:         hooks,
		cfg:           cfg,
		sessionID:     sessionID,
		accountID:     accountID,
		onInvalidated: onInvalidated,
		done:          make(chan struct{}),
	}
}

// Start launches the loop. It returns immediately; the loop runs until Stop
// is called, the context is cancelled, or the threshold fires. Starting a
// disabled monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	if m.cfg.Disabled {
		m.logger.Info("session health monitor disabled by configuration")
		close(m.done)
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)
}

// Stop cancels the loop immediately and discards ValidationState. Safe to
// call more than once, and safe on a disabled or never-started monitor.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// State returns a snapshot of the failure accounting, for tests and
// operational introspection.
func (m *Monitor) State() models.ValidationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.cycle(ctx) {
				return
			}
		}
	}
}

// cycle runs one check. Returns true when the loop should stop.
func (m *Monitor) cycle(ctx context.Context) bool {
	if m.hooks.RecentActivity != nil && m.hooks.RecentActivity() {
		// Recent interaction is evidence the session works. It clears
		// the failure accounting the same way a successful check does,
		// so stale failures never linger past an active user.
		m.resetFailures(time.Now())
		m.observe("skipped")
		return false
	}
	if m.skip() {
		m.observe("skipped")
		return false
	}

	now := time.Now()
	session, err := m.reg.Find(ctx, m.sessionID)

	switch {
	case err == nil && session.AccountID == m.accountID:
		m.resetFailures(now)
		m.observe("healthy")
		// Best-effort heartbeat; the result is inspectable but a missed
		// touch never invalidates the session.
		if result := m.reg.Touch(ctx, m.sessionID, now); result.Err != nil {
			m.logger.Debug("session touch failed", "session_id", m.sessionID.String(), "error", result.Err)
		}
		return false

	case err == nil:
		// Session exists but belongs to someone else: definitive.
		m.observe("failed")
		return m.recordFailure(now, "account mismatch")

	case errors.Is(err, sentinel.ErrNotFound):
		m.observe("failed")
		return m.recordFailure(now, "session not found")

	default:
		return m.transportError(now, err)
	}
}

func (m *Monitor) observe(result string) {
	if m.cfg.OnCycle != nil {
		m.cfg.OnCycle(result)
	}
}

// skip reports whether this cycle should be skipped without touching the
// failure accounting: hidden page or an administrative route.
func (m *Monitor) skip() bool {
	if m.hooks.Hidden != nil && m.hooks.Hidden() {
		return true
	}
	return m.adminContext()
}

func (m *Monitor) adminContext() bool {
	return m.hooks.AdminContext != nil && m.hooks.AdminContext()
}

// transportError applies the connectivity policy: administrative contexts
// never accumulate failures; non-privileged contexts count only definitive
// authorization errors. Timeouts and network loss are transient.
func (m *Monitor) transportError(now time.Time, err error) bool {
	if m.adminContext() {
		m.observe("skipped")
		return false
	}
	if errors.Is(err, sentinel.ErrPermissionDenied) || errors.Is(err, sentinel.ErrUnauthenticated) {
		m.observe("failed")
		return m.recordFailure(now, "authorization rejected")
	}
	m.observe("transient")
	m.logger.Debug("transient session check error ignored", "error", err)
	return false
}

func (m *Monitor) resetFailures(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ConsecutiveFailures = 0
	m.state.LastCheckedAt = now
}

func (m *Monitor) recordFailure(now time.Time, reason string) bool {
	if m.adminContext() {
		return false
	}

	m.mu.Lock()
	m.state.ConsecutiveFailures++
	m.state.LastCheckedAt = now
	failures := m.state.ConsecutiveFailures
	m.mu.Unlock()

	m.logger.Warn("session validation failed",
		"session_id", m.sessionID.String(),
		"reason", reason,
		"consecutive_failures", failures,
	)

	if failures < m.cfg.FailureThreshold {
		return false
	}
	m.invalidated.Do(func() {
		m.logger.Warn("session invalidated after sustained failures",
			"session_id", m.sessionID.String(),
			"failures", failures,
		)
		if m.onInvalidated != nil {
			m.onInvalidated()
		}
	})
	return true
}
