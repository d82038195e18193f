package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sigede/internal/session/models"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

type RegistrySuite struct {
	suite.Suite
	registry *InMemoryRegistry
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewInMemory()
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

var (
	accountX = id.AccountID("3201011234560001")
	deviceD1 = models.DeviceDescriptor{Platform: "Android", Browser: "Chrome", Mobile: true}
	deviceD2 = models.DeviceDescriptor{Platform: "Windows", Browser: "Firefox"}
)

func (s *RegistrySuite) TestCreateAndFind() {
	session, err := s.registry.Create(context.Background(), accountX, deviceD1)
	s.Require().NoError(err)
	s.False(session.ID.IsNil())
	s.Equal(accountX, session.AccountID)

	found, err := s.registry.Find(context.Background(), session.ID)
	s.Require().NoError(err)
	s.Equal(session, found)
}

func (s *RegistrySuite) TestFindUnknownReturnsNotFound() {
	_, err := s.registry.Find(context.Background(), id.NewSessionID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RegistrySuite) TestSecondCreateSupersedesFirst() {
	first, err := s.registry.Create(context.Background(), accountX, deviceD1)
	s.Require().NoError(err)
	second, err := s.registry.Create(context.Background(), accountX, deviceD2)
	s.Require().NoError(err)

	// Superseded session is gone.
	_, err = s.registry.Find(context.Background(), first.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Exactly one live session, owned by the most recent device.
	live, err := s.registry.ListByAccount(context.Background(), accountX)
	s.Require().NoError(err)
	s.Require().Len(live, 1)
	s.Equal(second.ID, live[0].ID)
	s.Equal(deviceD2, live[0].Device)
}

func (s *RegistrySuite) TestConcurrentLoginsLeaveExactlyOneSession() {
	const devices = 16
	var wg sync.WaitGroup
	for i := 0; i < devices; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.registry.Create(context.Background(), accountX, deviceD1)
			s.NoError(err)
		}()
	}
	wg.Wait()

	live, err := s.registry.ListByAccount(context.Background(), accountX)
	s.Require().NoError(err)
	s.Len(live, 1, "takeover must be atomic under concurrent logins")
}

func (s *RegistrySuite) TestTouchAdvancesLastSeen() {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	registry := NewInMemory(WithClock(func() time.Time { return base }))

	session, err := registry.Create(context.Background(), accountX, deviceD1)
	s.Require().NoError(err)

	result := registry.Touch(context.Background(), session.ID, base.Add(time.Minute))
	s.Require().NoError(result.Err)
	s.True(result.Updated)

	found, err := registry.Find(context.Background(), session.ID)
	s.Require().NoError(err)
	s.Equal(base.Add(time.Minute), found.LastSeenAt)

	// A stale touch never rolls LastSeenAt backwards, and reports that
	// nothing was written, same as an affected-rows count of zero.
	stale := registry.Touch(context.Background(), session.ID, base.Add(-time.Hour))
	s.Require().NoError(stale.Err)
	s.False(stale.Updated)
	found, err = registry.Find(context.Background(), session.ID)
	s.Require().NoError(err)
	s.Equal(base.Add(time.Minute), found.LastSeenAt)

	// An equal timestamp is also a no-op.
	equal := registry.Touch(context.Background(), session.ID, base.Add(time.Minute))
	s.Require().NoError(equal.Err)
	s.False(equal.Updated)
}

func (s *RegistrySuite) TestTouchMissingSessionReportsError() {
	result := s.registry.Touch(context.Background(), id.NewSessionID(), time.Now())
	s.Require().ErrorIs(result.Err, sentinel.ErrNotFound)
	s.False(result.Updated)
}

func (s *RegistrySuite) TestDeleteIsIdempotent() {
	session, err := s.registry.Create(context.Background(), accountX, deviceD1)
	s.Require().NoError(err)

	s.Require().NoError(s.registry.Delete(context.Background(), session.ID))
	s.Require().NoError(s.registry.Delete(context.Background(), session.ID), "second delete is not an error")

	_, err = s.registry.Find(context.Background(), session.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RegistrySuite) TestDeleteByAccount() {
	_, err := s.registry.Create(context.Background(), accountX, deviceD1)
	s.Require().NoError(err)
	other, err := s.registry.Create(context.Background(), id.AccountID("other"), deviceD2)
	s.Require().NoError(err)

	s.Require().NoError(s.registry.DeleteByAccount(context.Background(), accountX))
	s.Require().NoError(s.registry.DeleteByAccount(context.Background(), accountX), "idempotent")

	live, err := s.registry.ListByAccount(context.Background(), accountX)
	s.Require().NoError(err)
	s.Empty(live)

	// Other accounts are untouched.
	_, err = s.registry.Find(context.Background(), other.ID)
	s.Require().NoError(err)
}
