// Package session manages browser-automation sessions used to fetch listing pages.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/logging"
)

// ErrNoSession is returned by managers that cannot create sessions at all.
var ErrNoSession = errors.New("session unavailable")

const (
	defaultFetchTimeout   = 10 * time.Second
	defaultDestroyTimeout = 5 * time.Second
)

// Handle identifies a live browser session.
type Handle struct {
	ID         string
	ConnectURL string
	CreatedAt  time.Time
}

// Manager creates, uses and destroys browser sessions. Fetch accepts a nil
// handle, in which case the page is fetched without a session.
type Manager interface {
	Create(ctx context.Context) (*Handle, error)
	Fetch(ctx context.Context, url string, h *Handle) (string, error)
	Destroy(ctx context.Context, h *Handle) error
}

// Scope binds one session to one collection run. Close must be called when the
// run ends; it is safe to call more than once.
type Scope struct {
	manager      Manager
	handle       *Handle
	logger       *zap.Logger
	fetchTimeout time.Duration

	closeOnce sync.Once
}

// ScopeOption customises a Scope.
type ScopeOption func(*Scope)

// WithFetchTimeout bounds every page fetch issued through the scope.
func WithFetchTimeout(d time.Duration) ScopeOption {
	return func(s *Scope) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// Acquire creates a session for the run. Creation failure is logged and the
// scope falls back to unauthenticated fetches.
func Acquire(ctx context.Context, m Manager, logger *zap.Logger, opts ...ScopeOption) *Scope {
	s := &Scope{
		manager:      m,
		logger:       logging.OrNop(logger).Named("session"),
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	h, err := m.Create(ctx)
	if err != nil {
		s.logger.Warn("session creation failed, continuing without session", zap.Error(err))
		return s
	}
	s.handle = h
	if h != nil {
		s.logger.Debug("session created", zap.String("session_id", h.ID))
	}
	return s
}

// Handle returns the acquired session, or nil in unauthenticated mode.
func (s *Scope) Handle() *Handle {
	return s.handle
}

// Fetch loads url within the scope's session. A failed fetch is logged and
// reported as ok=false.
func (s *Scope) Fetch(ctx context.Context, url string) (string, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	html, err := s.manager.Fetch(fetchCtx, url, s.handle)
	if err != nil {
		s.logger.Warn("page fetch failed",
			zap.String("url", url),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", false
	}
	return html, true
}

// Close destroys the session. It runs even when ctx is already cancelled.
func (s *Scope) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if s.handle == nil {
			return
		}
		destroyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultDestroyTimeout)
		defer cancel()
		if err := s.manager.Destroy(destroyCtx, s.handle); err != nil {
			s.logger.Warn("session teardown failed", zap.String("session_id", s.handle.ID), zap.Error(err))
			return
		}
		s.logger.Debug("session destroyed", zap.String("session_id", s.handle.ID))
	})
}
