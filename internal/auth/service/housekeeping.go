package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/eventwise/eventauth/internal/auth/store"
)

// DefaultHousekeepingInterval is how often expired and consumed refresh
// tokens are purged when no interval is configured.
const DefaultHousekeepingInterval = time.Hour

// HousekeepingService periodically deletes refresh tokens that can never be
// redeemed again: expired ones and rotated (consumed) ones.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// Start launches the background cleanup loop. It runs one sweep immediately
// so restarts do not defer cleanup by a full interval.
func (s *HousekeepingService) Start() {
	if s.Interval <= 0 {
		s.Interval = DefaultHousekeepingInterval
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run()
}

// Stop signals the loop to exit and waits for it to finish.
func (s *HousekeepingService) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("housekeeping sweep failed", "error", err)
		return
	}
	s.Logger.Debug("housekeeping sweep completed")
}
