package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/antinea2359/app-tarot/internal/ports"
)

// Registry holds live sessions in memory. Idle sessions expire after ttl and
// the least recently used ones are dropped beyond capacity.
type Registry struct {
	root   context.Context
	oracle ports.Oracle
	logger *slog.Logger

	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

func NewRegistry(ctx context.Context, oracle ports.Oracle, logger *slog.Logger, capacity int, ttl time.Duration) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = 1024
	}
	r := &Registry{root: ctx, oracle: oracle, logger: logger}
	r.cache = expirable.NewLRU[string, *Session](capacity, func(id string, s *Session) {
		logger.Debug("session evicted", "session_id", id)
		s.Close()
	}, ttl)
	return r
}

// Get returns a live session and refreshes its expiry.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.cache.Get(id)
	if ok {
		r.cache.Add(id, s)
	}
	return s, ok
}

// GetOrCreate returns the session for id, creating a fresh one under a new id
// when it is unknown or expired.
func (r *Registry) GetOrCreate(id string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if s, ok := r.cache.Get(id); ok {
			r.cache.Add(id, s)
			return s, false
		}
	}
	s = NewSession(r.root, uuid.NewString(), r.oracle, r.logger)
	r.cache.Add(s.ID(), s)
	return s, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// Close drops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
