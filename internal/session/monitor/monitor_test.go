package monitor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigede/internal/session/models"
	"sigede/internal/session/registry"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

type MonitorSuite struct {
	suite.Suite
	registry *registry.InMemoryRegistry
	logger   *slog.Logger
}

func (s *MonitorSuite) SetupTest() {
	s.registry = registry.NewInMemory()
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) newMonitor(reg registry.Registry, hooks Hooks, sessionID id.SessionID, accountID id.AccountID, onInvalidated func()) *Monitor {
	return New(reg, s.logger, Config{Interval: time.Hour, FailureThreshold: DefaultFailureThreshold}, hooks, sessionID, accountID, onInvalidated)
}

func (s *MonitorSuite) TestHealthySessionResetsFailuresAndTouches() {
	accountID := id.AccountID("3201011234560001")
	session, err := s.registry.Create(context.Background(), accountID, models.DeviceDescriptor{})
	s.Require().NoError(err)

	m := s.newMonitor(s.registry, Hooks{}, session.ID, accountID, nil)
	m.state.ConsecutiveFailures = 5

	stop := m.cycle(context.Background())
	s.False(stop)
	s.Equal(0, m.State().ConsecutiveFailures)

	found, err := s.registry.Find(context.Background(), session.ID)
	s.Require().NoError(err)
	s.False(found.LastSeenAt.Before(found.CreatedAt))
}

func (s *MonitorSuite) TestMissingSessionIncrementsFailures() {
	m := s.newMonitor(s.registry, Hooks{}, id.NewSessionID(), id.AccountID("x"), nil)

	s.False(m.cycle(context.Background()))
	s.Equal(1, m.State().ConsecutiveFailures)
	s.False(m.cycle(context.Background()))
	s.Equal(2, m.State().ConsecutiveFailures)
}

func (s *MonitorSuite) TestAccountMismatchCountsAsDefinitiveFailure() {
	session, err := s.registry.Create(context.Background(), id.AccountID("someone-else"), models.DeviceDescriptor{})
	s.Require().NoError(err)

	m := s.newMonitor(s.registry, Hooks{}, session.ID, id.AccountID("me"), nil)
	s.False(m.cycle(context.Background()))
	s.Equal(1, m.State().ConsecutiveFailures)
}

func (s *MonitorSuite) TestThresholdFiresCallbackExactlyOnce() {
	fired := 0
	m := s.newMonitor(s.registry, Hooks{}, id.NewSessionID(), id.AccountID("x"), func() { fired++ })

	var stopped bool
	// 20 definitive not-found results in a non-privileged context.
	for i := 0; i < DefaultFailureThreshold; i++ {
		stopped = m.cycle(context.Background())
	}
	s.True(stopped, "threshold crossing stops the loop")
	s.Equal(1, fired)

	// Further cycles never fire the callback again.
	m.cycle(context.Background())
	s.Equal(1, fired)
}

func (s *MonitorSuite) TestSkipsOnRecentActivity() {
	m := s.newMonitor(s.registry, Hooks{RecentActivity: func() bool { return true }}, id.NewSessionID(), id.AccountID("x"), nil)
	s.False(m.cycle(context.Background()))
	s.Equal(0, m.State().ConsecutiveFailures)
}

func (s *MonitorSuite) TestRecentActivityClearsAccumulatedFailures() {
	active := false
	fired := 0
	// Session never exists, so every non-skipped cycle is a definitive
	// failure.
	m := s.newMonitor(s.registry, Hooks{RecentActivity: func() bool { return active }}, id.NewSessionID(), id.AccountID("x"), func() { fired++ })

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		s.False(m.cycle(context.Background()))
	}
	s.Equal(DefaultFailureThreshold-1, m.State().ConsecutiveFailures)

	// One active cycle wipes the accounting: an interacting user is proof
	// the session works, so earlier failures never count toward forced
	// logout.
	active = true
	s.False(m.cycle(context.Background()))
	s.Equal(0, m.State().ConsecutiveFailures)

	// Counting restarts from zero afterwards.
	active = false
	s.False(m.cycle(context.Background()))
	s.Equal(1, m.State().ConsecutiveFailures)
	s.Equal(0, fired)
}

func (s *MonitorSuite) TestSkipsWhenHidden() {
	m := s.newMonitor(s.registry, Hooks{Hidden: func() bool { return true }}, id.NewSessionID(), id.AccountID("x"), nil)
	s.False(m.cycle(context.Background()))
	s.Equal(0, m.State().ConsecutiveFailures)
}

func (s *MonitorSuite) TestHiddenSkipPreservesFailureAccounting() {
	m := s.newMonitor(s.registry, Hooks{Hidden: func() bool { return true }}, id.NewSessionID(), id.AccountID("x"), nil)
	m.state.ConsecutiveFailures = 5

	s.False(m.cycle(context.Background()))
	// Hidden pages only pause checking; they say nothing about whether
	// the session still works.
	s.Equal(5, m.State().ConsecutiveFailures)
}

func (s *MonitorSuite) TestAdminContextNeverAccumulatesFailures() {
	fired := 0
	hooks := Hooks{AdminContext: func() bool { return true }}
	failing := &erroringRegistry{err: errors.New("network unreachable")}
	m := s.newMonitor(failing, hooks, id.NewSessionID(), id.AccountID("admin@village.id"), func() { fired++ })

	// Any number of consecutive transport errors in an administrative
	// context never triggers forced logout.
	for i := 0; i < DefaultFailureThreshold*3; i++ {
		s.False(m.cycle(context.Background()))
	}
	s.Equal(0, m.State().ConsecutiveFailures)
	s.Equal(0, fired)
}

func (s *MonitorSuite) TestTransientTransportErrorsIgnoredInNonPrivilegedContext() {
	failing := &erroringRegistry{err: context.DeadlineExceeded}
	m := s.newMonitor(failing, Hooks{}, id.NewSessionID(), id.AccountID("x"), nil)

	for i := 0; i < 50; i++ {
		s.False(m.cycle(context.Background()))
	}
	s.Equal(0, m.State().ConsecutiveFailures)
}

func (s *MonitorSuite) TestDefinitiveAuthorizationErrorsCountInNonPrivilegedContext() {
	failing := &erroringRegistry{err: sentinel.ErrPermissionDenied}
	m := s.newMonitor(failing, Hooks{}, id.NewSessionID(), id.AccountID("x"), nil)

	s.False(m.cycle(context.Background()))
	s.Equal(1, m.State().ConsecutiveFailures)

	failing.err = sentinel.ErrUnauthenticated
	s.False(m.cycle(context.Background()))
	s.Equal(2, m.State().ConsecutiveFailures)
}

func (s *MonitorSuite) TestDisabledMonitorNeverRuns() {
	m := New(s.registry, s.logger, Config{Disabled: true}, Hooks{}, id.NewSessionID(), id.AccountID("x"), func() {
		s.Fail("disabled monitor must never invalidate")
	})
	m.Start(context.Background())
	m.Stop()
}

func (s *MonitorSuite) TestStopCancelsImmediately() {
	m := New(s.registry, s.logger, Config{Interval: time.Hour}, Hooks{}, id.NewSessionID(), id.AccountID("x"), nil)
	m.Start(context.Background())

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("Stop must not wait for the next tick")
	}
}

// erroringRegistry simulates transport failures on Find.
type erroringRegistry struct {
	registry.InMemoryRegistry
	err error
}

func (r *erroringRegistry) Find(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	return models.Session{}, r.err
}
