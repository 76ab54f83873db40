package session

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// OpenFunc opens a fresh session for username.
type OpenFunc func(ctx context.Context, username string) (*Session, error)

// Registry maps each username to at most one live session. Opening is
// deduplicated per username; different usernames never wait on each other's
// store reads.
type Registry struct {
	open   OpenFunc
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	// drops counts Drop calls per username; an open that started before
	// the latest drop does not register its session
	drops   map[string]uint64
	opening singleflight.Group
}

func NewRegistry(open OpenFunc, logger *zap.Logger) *Registry {
	return &Registry{
		open:     open,
		logger:   logger,
		sessions: make(map[string]*Session),
		drops:    make(map[string]uint64),
	}
}

// GetOrCreate returns the live session for username, opening one if needed.
// Concurrent first calls for one username share a single Open.
func (r *Registry) GetOrCreate(ctx context.Context, username string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[username]; ok {
		r.mu.Unlock()
		return s, nil
	}
	gen := r.drops[username]
	r.mu.Unlock()

	// callers arriving after a Drop must not join an open that predates it
	key := username + "#" + strconv.FormatUint(gen, 10)
	v, err, shared := r.opening.Do(key, func() (interface{}, error) {
		if s, ok := r.Get(username); ok {
			return s, nil
		}

		// one caller's cancellation must not fail the others sharing this open
		s, err := r.open(context.WithoutCancel(ctx), username)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.drops[username] != gen {
			r.logger.Debug("Session dropped while opening", zap.String("username", username))
			return s, nil
		}
		if live, ok := r.sessions[username]; ok {
			return live, nil
		}
		r.sessions[username] = s
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		r.logger.Debug("Shared session open", zap.String("username", username))
	}
	return v.(*Session), nil
}

// Get returns the live session for username without opening one.
func (r *Registry) Get(username string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[username]
	return s, ok
}

// Drop forgets the session for username, including one still being opened.
// It reports whether one was live.
func (r *Registry) Drop(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drops[username]++
	if _, ok := r.sessions[username]; !ok {
		return false
	}
	delete(r.sessions, username)
	r.logger.Info("Session dropped", zap.String("username", username))
	return true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
