package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

// HousekeepingService periodically deletes invites that expired without
// being redeemed. Used invites are kept as the record of who joined.
type HousekeepingService struct {
	Store        store.Store
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Interval     time.Duration
	StoreTimeout time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Metrics:  m,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the cleanup once immediately and then on every tick. It does
// not block. Call Stop to shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes expired unused invites and reports how many went.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	ctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	n, err := s.Store.Invites().DeleteExpiredInvites(ctx, time.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired invites", "error", err)
		return 0
	}
	s.Metrics.InvitesPurged(n)

	s.Logger.Info("housekeeping cleanup completed", "expired_invites_deleted", n)
	return n
}
