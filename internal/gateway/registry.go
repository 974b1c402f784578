package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wowedo/searchsync/internal/location"
	"github.com/wowedo/searchsync/internal/logger"
	"github.com/wowedo/searchsync/internal/session"
)

var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	sess     *session.Session
	loc      *location.ChannelProvider
	cancel   context.CancelFunc
	lastSeen time.Time
}

// Registry owns the live sessions. Each session runs its ownership loop on
// its own goroutine; the registry hands out handles and reaps idle sessions.
type Registry struct {
	logger      *slog.Logger
	up          session.Querier
	sessCfg     session.Config
	idleTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(log *slog.Logger, up session.Querier, sessCfg session.Config, idleTimeout time.Duration) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Registry{
		logger:      log,
		up:          up,
		sessCfg:     sessCfg,
		idleTimeout: idleTimeout,
		entries:     map[string]*entry{},
	}
}

// Create starts a new session and returns its id. The session loop runs until
// Delete, the idle reaper, or ctx shutdown stops it.
func (r *Registry) Create(ctx context.Context) string {
	id := logger.NewID()
	loc := location.NewChannelProvider()
	sess := session.New(id, r.logger, r.up, loc, r.sessCfg)

	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = sess.Run(runCtx) }()

	r.mu.Lock()
	r.entries[id] = &entry{sess: sess, loc: loc, cancel: cancel, lastSeen: time.Now()}
	n := len(r.entries)
	r.mu.Unlock()

	r.logger.Info("session created", "session_id", id, "live", n)
	return id
}

// Get returns the session and its location feed, refreshing the idle clock.
func (r *Registry) Get(id string) (*session.Session, *location.ChannelProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	e.lastSeen = time.Now()
	return e.sess, e.loc, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.cancel()
	r.logger.Info("session deleted", "session_id", id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reap stops every session idle for longer than the timeout and returns how
// many were stopped.
func (r *Registry) Reap(now time.Time) int {
	r.mu.Lock()
	var stale []*entry
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.idleTimeout {
			stale = append(stale, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.cancel()
	}
	if len(stale) > 0 {
		r.logger.Info("idle sessions reaped", "count", len(stale))
	}
	return len(stale)
}

// RunReaper sweeps for idle sessions until ctx is cancelled.
func (r *Registry) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Reap(now)
		}
	}
}
