package pending

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"assistbot/internal/metrics"
	"assistbot/internal/models"
)

// Store holds at most one unconfirmed draft per user, in memory, for the
// lifetime of the process. It is constructed explicitly and injected into the
// handling logic; there is no package-level instance.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*models.PendingConfirmation
	ttl     time.Duration
	logger  *logrus.Logger

	puts       atomic.Int64
	overwrites atomic.Int64
	expiries   atomic.Int64
}

// NewStore creates an empty store. Entries older than ttl are discarded by
// the janitor; ttl <= 0 disables expiry.
func NewStore(ttl time.Duration, logger *logrus.Logger) *Store {
	return &Store{
		entries: make(map[int64]*models.PendingConfirmation),
		ttl:     ttl,
		logger:  logger,
	}
}

// Put stores a pending confirmation for the user, overwriting any existing
// entry. It returns the replaced entry, if there was one, so the caller can
// warn the user and close the stale confirmation message.
func (s *Store) Put(p *models.PendingConfirmation) *models.PendingConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.entries[p.UserID]
	s.entries[p.UserID] = p

	s.puts.Inc()
	if prev != nil {
		s.overwrites.Inc()
	}
	metrics.PendingDrafts.Set(float64(len(s.entries)))

	return prev
}

// Take atomically removes and returns the user's pending confirmation.
// Both the confirm and the cancel path go through Take, so a given entry can
// be resolved exactly once even under racing signals.
func (s *Store) Take(userID int64) (*models.PendingConfirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[userID]
	if !ok {
		return nil, false
	}
	delete(s.entries, userID)
	metrics.PendingDrafts.Set(float64(len(s.entries)))

	return p, true
}

// Len returns the number of drafts currently awaiting a decision.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every entry. Called on shutdown.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[int64]*models.PendingConfirmation)
	metrics.PendingDrafts.Set(0)
}

// Stats reports lifetime counters for puts, overwrites and expiries.
func (s *Store) Stats() (puts, overwrites, expiries int64) {
	return s.puts.Load(), s.overwrites.Load(), s.expiries.Load()
}

// ExpiredCallback is invoked for each entry the janitor discards, outside the
// store lock, so the caller can close the stale confirmation message.
type ExpiredCallback func(p *models.PendingConfirmation)

// StartJanitor sweeps expired entries once a minute until ctx is cancelled.
// It blocks, so launch it in its own goroutine.
func (s *Store) StartJanitor(ctx context.Context, onExpired ExpiredCallback) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.logger.Infof("Pending-confirmation janitor started (ttl=%s)", s.ttl)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Pending-confirmation janitor stopped")
			return
		case <-ticker.C:
			for _, p := range s.sweep(time.Now()) {
				if onExpired != nil {
					onExpired(p)
				}
			}
		}
	}
}

// sweep removes and returns all entries expired at instant now.
func (s *Store) sweep(now time.Time) []*models.PendingConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*models.PendingConfirmation
	for userID, p := range s.entries {
		if p.ExpiredAt(now, s.ttl) {
			delete(s.entries, userID)
			expired = append(expired, p)
			s.expiries.Inc()
		}
	}
	if len(expired) > 0 {
		metrics.PendingDrafts.Set(float64(len(s.entries)))
		s.logger.Infof("Expired %d pending confirmation(s)", len(expired))
	}
	return expired
}
