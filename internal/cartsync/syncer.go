package cartsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront-service/pkg/logger"

	"go.uber.org/zap"
)

// DefaultDebounce is how long Changed waits for further edits before pushing.
const DefaultDebounce = time.Second

// ErrNotMerged is returned by Flush before the login merge has succeeded. Pushing the
// local state then would drop server lines the merge has not picked up yet.
var ErrNotMerged = errors.New("cartsync: login merge has not completed")

// Syncer merges the local state into the server once per login and pushes later edits.
type Syncer struct {
	local    LocalStore
	remote   Remote
	debounce time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	loggedIn bool
	merging  bool
	merged   bool
	timer    *time.Timer
	closed   bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *Syncer) {
		s.debounce = d
	}
}

func NewSyncer(local LocalStore, remote Remote, opts ...Option) *Syncer {
	s := &Syncer{
		local:    local,
		remote:   remote,
		debounce: DefaultDebounce,
		log:      logger.GetLogger().Named("cartsync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnLogin unions local and server state and writes the result to both sides.
// Only the first successful call after a logout does any work. A failed merge is
// retried by the next OnLogin or the next debounced push.
func (s *Syncer) OnLogin(ctx context.Context) error {
	s.mu.Lock()
	s.loggedIn = true
	s.mu.Unlock()
	return s.tryMerge(ctx)
}

func (s *Syncer) tryMerge(ctx context.Context) error {
	s.mu.Lock()
	if !s.loggedIn || s.merged || s.merging {
		s.mu.Unlock()
		return nil
	}
	s.merging = true
	s.mu.Unlock()

	err := s.merge(ctx)

	s.mu.Lock()
	s.merging = false
	// a logout during the merge re-arms it for the next login
	if err == nil && s.loggedIn {
		s.merged = true
	}
	s.mu.Unlock()
	return err
}

func (s *Syncer) merge(ctx context.Context) error {
	local, err := s.local.Load()
	if err != nil {
		return err
	}
	server, err := s.remote.Fetch(ctx)
	if err != nil {
		return err
	}

	union := Union(local, server)
	if err := s.remote.Replace(ctx, union); err != nil {
		return err
	}
	if err := s.local.Save(union); err != nil {
		return err
	}

	s.log.Info("Merged local cart into account",
		zap.Int("cart_lines", len(union.Cart)),
		zap.Int("wishlist_items", len(union.Wishlist)))
	return nil
}

// OnLogout re-arms the login merge. Local state is kept and pending pushes are dropped.
func (s *Syncer) OnLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loggedIn = false
	s.merged = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Changed schedules a push of the local state. Calls within the debounce window coalesce.
func (s *Syncer) Changed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn || s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.push)
}

func (s *Syncer) push() {
	s.mu.Lock()
	s.timer = nil
	active := s.loggedIn && !s.closed
	merged := s.merged
	s.mu.Unlock()
	if !active {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// until the merge succeeds, a push retries it; the merge carries local edits too
	if !merged {
		if err := s.tryMerge(ctx); err != nil {
			s.log.Warn("Failed to merge cart", zap.Error(err))
		}
		return
	}
	if err := s.Flush(ctx); err != nil {
		s.log.Warn("Failed to push cart", zap.Error(err))
	}
}

// Flush pushes the local state immediately. It returns ErrNotMerged until the login
// merge has succeeded.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	merged := s.merged
	s.mu.Unlock()
	if !merged {
		return ErrNotMerged
	}

	state, err := s.local.Load()
	if err != nil {
		return err
	}
	return s.remote.Replace(ctx, state)
}

// Close stops any pending push.
func (s *Syncer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
