// Package lockout throttles failed login attempts per identifier+IP with a
// sliding window and a hard lock, so credential stuffing fails fast before
// touching the identity stores.
package lockout

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultAttemptsPerWindow is how many failures the window tolerates.
	DefaultAttemptsPerWindow = 5
	// DefaultWindow is the sliding window length.
	DefaultWindow = 15 * time.Minute
	// DefaultLockDuration is the hard lock after the window is exhausted.
	DefaultLockDuration = 15 * time.Minute
)

// Config tunes the lockout policy.
type Config struct {
	AttemptsPerWindow int
	Window            time.Duration
	LockDuration      time.Duration
}

// DefaultConfig returns the reference policy.
func DefaultConfig() Config {
	return Config{
		AttemptsPerWindow: DefaultAttemptsPerWindow,
		Window:            DefaultWindow,
		LockDuration:      DefaultLockDuration,
	}
}

type record struct {
	failures    []time.Time
	lockedUntil time.Time
}

// Service tracks failed attempts in memory. Identifier and IP are combined
// into one key so a distributed attack on one account and a spray from one
// host both hit the limit.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	records map[string]*record
	clock   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock function for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(cfg Config, opts ...Option) *Service {
	if cfg.AttemptsPerWindow <= 0 {
		cfg.AttemptsPerWindow = DefaultAttemptsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultLockDuration
	}
	s := &Service{
		cfg:     cfg,
		records: make(map[string]*record),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(identifier, ip string) string { return identifier + "|" + ip }

// Allowed reports whether a login attempt may proceed, and when a locked
// caller may retry.
func (s *Service) Allowed(ctx context.Context, identifier, ip string) (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	r, ok := s.records[key(identifier, ip)]
	if !ok {
		return true, time.Time{}
	}
	if now.Before(r.lockedUntil) {
		return false, r.lockedUntil
	}
	s.prune(r, now)
	if len(r.failures) >= s.cfg.AttemptsPerWindow {
		r.lockedUntil = now.Add(s.cfg.LockDuration)
		return false, r.lockedUntil
	}
	return true, time.Time{}
}

// RecordFailure notes one failed attempt.
func (s *Service) RecordFailure(ctx context.Context, identifier, ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	k := key(identifier, ip)
	r, ok := s.records[k]
	if !ok {
		r = &record{}
		s.records[k] = r
	}
	s.prune(r, now)
	r.failures = append(r.failures, now)
}

// Clear resets accounting after a successful login.
func (s *Service) Clear(ctx context.Context, identifier, ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key(identifier, ip))
}

// prune drops failures outside the sliding window. Caller holds s.mu.
func (s *Service) prune(r *record, now time.Time) {
	cutoff := now.Add(-s.cfg.Window)
	i := 0
	for ; i < len(r.failures); i++ {
		if r.failures[i].After(cutoff) {
			break
		}
	}
	r.failures = r.failures[i:]
}
