package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"go.uber.org/zap"
)

const defaultExpirerInterval = 1 * time.Minute

// ExpirerService drops sessions that have been idle longer than ttl.
type ExpirerService struct {
	sessions domain.SessionStore
	ttl      time.Duration
	logger   *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewExpirerService(sessions domain.SessionStore, ttl time.Duration, logger *zap.Logger) *ExpirerService {
	return &ExpirerService{
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		interval: defaultExpirerInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *ExpirerService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the expirer on a periodic schedule in a background goroutine.
func (s *ExpirerService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("session expirer started",
			zap.Duration("interval", s.interval),
			zap.Duration("ttl", s.ttl))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.RunOnce(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("session expirer stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the expirer.
func (s *ExpirerService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunOnce performs a single sweep and returns the number of sessions removed.
func (s *ExpirerService) RunOnce(ctx context.Context) int64 {
	deleted, err := s.sessions.DeleteIdle(ctx, time.Now().UTC().Add(-s.ttl))
	if err != nil {
		s.logger.Error("failed to delete idle sessions", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.logger.Info("deleted idle sessions", zap.Int64("count", deleted))
	}
	return deleted
}
