// Package service sequences resolution and execution for every tool
// operation. Writes resolve their references first and only proceed on a
// unique target; while the backend is unreachable they are deferred into
// the pending queue instead. All failures are returned as classified
// fault errors, never panics — the serving process outlives any single
// bad call.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"remindgate/internal/pending"
	"remindgate/internal/remindctl"
)

// CommandRunner is the slice of the remindctl runner the orchestrator
// needs. Tests substitute a fake.
type CommandRunner interface {
	ReadJSON(ctx context.Context, args []string, out any) error
	WriteJSON(ctx context.Context, args []string, out any) error
	WriteDiscard(ctx context.Context, args []string) error
}

const defaultHealthTTL = 15 * time.Second

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithHealthTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.healthTTL = ttl
		}
	}
}

// Service is scoped to one logical session/workspace: its pending store
// and its last-touched-reference memory are never shared with another
// instance.
type Service struct {
	runner CommandRunner
	store  pending.Store
	logger *slog.Logger
	now    func() time.Time

	recentMu sync.Mutex
	recentID string

	healthMu        sync.Mutex
	healthTTL       time.Duration
	healthCheckedAt time.Time
	healthAvailable bool
	healthStatus    remindctl.Status
}

func New(runner CommandRunner, store pending.Store, opts ...Option) *Service {
	s := &Service{
		runner:    runner,
		store:     store,
		logger:    slog.Default(),
		now:       time.Now,
		healthTTL: defaultHealthTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading; tests pin it via WithNowFunc.
func (s *Service) Now() time.Time {
	return s.now()
}

// Health probes remindctl status, bypassing the availability cache and
// refreshing it with the observed outcome.
func (s *Service) Health(ctx context.Context) (remindctl.Status, error) {
	var status remindctl.Status
	err := s.runner.ReadJSON(ctx, []string{"status"}, &status)

	s.healthMu.Lock()
	s.healthCheckedAt = s.now()
	s.healthAvailable = err == nil && status.Authorized
	s.healthStatus = status
	s.healthMu.Unlock()

	return status, err
}

// backendAvailable answers the write-deferral gate. Probe results are
// cached for healthTTL; slight staleness is accepted, the external tool
// remains the source of truth at mutation time.
func (s *Service) backendAvailable(ctx context.Context) bool {
	s.healthMu.Lock()
	fresh := s.now().Sub(s.healthCheckedAt) < s.healthTTL && !s.healthCheckedAt.IsZero()
	available := s.healthAvailable
	s.healthMu.Unlock()
	if fresh {
		return available
	}

	_, err := s.Health(ctx)
	if err != nil {
		return false
	}
	s.healthMu.Lock()
	available = s.healthAvailable
	s.healthMu.Unlock()
	return available
}

// InvalidateHealth drops the cached availability probe so the next write
// re-checks. The binary watcher calls this when the remindctl binary
// changes on disk.
func (s *Service) InvalidateHealth() {
	s.healthMu.Lock()
	s.healthCheckedAt = time.Time{}
	s.healthMu.Unlock()
}

func (s *Service) setRecent(id string) {
	if id == "" {
		return
	}
	s.recentMu.Lock()
	s.recentID = id
	s.recentMu.Unlock()
}

func (s *Service) recentRef() string {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	return s.recentID
}

func (s *Service) clearRecentIf(ids []string) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	for _, id := range ids {
		if id == s.recentID {
			s.recentID = ""
			return
		}
	}
}

// ResetSession clears the last-touched-reference memory. Recent context
// never survives a session end or a process restart.
func (s *Service) ResetSession() {
	s.recentMu.Lock()
	s.recentID = ""
	s.recentMu.Unlock()
}

func (s *Service) fetchLists(ctx context.Context) ([]remindctl.List, error) {
	var lists []remindctl.List
	if err := s.runner.ReadJSON(ctx, []string{"list"}, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (s *Service) fetchAllReminders(ctx context.Context) ([]remindctl.Reminder, error) {
	var reminders []remindctl.Reminder
	if err := s.runner.ReadJSON(ctx, []string{"show", "all"}, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}
