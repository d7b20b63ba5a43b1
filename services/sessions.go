package services

import (
	"context"
	"storefront-service/apperrors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionRegistry hands out one CartStateManager per customer and forgets
// sessions that have been idle longer than idleTTL.
type SessionRegistry struct {
	repo    CartRepository
	logger  *zap.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	manager  *CartStateManager
	lastUsed time.Time
}

func NewSessionRegistry(repo CartRepository, idleTTL time.Duration, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		repo:     repo,
		logger:   logger,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Session returns the manager for userID, creating and loading it on first use.
func (r *SessionRegistry) Session(ctx context.Context, userID string) (*CartStateManager, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}

	r.mu.Lock()
	s, ok := r.sessions[userID]
	if ok {
		s.lastUsed = r.now()
		r.mu.Unlock()
		return s.manager, nil
	}
	s = &session{manager: NewCartStateManager(userID, r.repo, r.logger), lastUsed: r.now()}
	r.sessions[userID] = s
	r.mu.Unlock()

	if err := s.manager.Refresh(ctx); err != nil {
		r.logger.Warn("Initial cart load failed", zap.String("user_id", userID), zap.Error(err))
	}
	return s.manager, nil
}

// Evict drops the session of userID.
func (r *SessionRegistry) Evict(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// Sweep evicts idle sessions and returns how many were dropped.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("Evicted idle cart sessions", zap.Int("count", n))
			}
		}
	}
}
