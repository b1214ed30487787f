package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/store"
)

// PurgeRecorder counts token records removed by housekeeping.
// *metricsx.Metrics satisfies it.
type PurgeRecorder interface {
	TokensPurged(n int64)
}

// HousekeepingService sweeps expired token records. Expired tokens are
// already rejected on use; the sweep only keeps the table small.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Purged   PurgeRecorder

	now func() time.Time
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{Store: st, Logger: logger, Interval: interval}
}

// Run sweeps once straight away and then every Interval until ctx is done.
// A sweep in progress finishes against its own timeout before Run returns.
func (s *HousekeepingService) Run(ctx context.Context) {
	s.Logger.Info("housekeeping started", "interval", s.Interval)
	defer s.Logger.Info("housekeeping stopped")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.sweep()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s.Cleanup(ctx)
}

// Cleanup deletes every token record past its expiry and returns how many
// went. Failures are logged, not returned: the next sweep retries.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}

	n, err := s.Store.Tokens().DeleteExpiredTokens(ctx, now)
	if err != nil {
		s.Logger.Error("expired token sweep failed", "error", err)
		return 0
	}

	if s.Purged != nil {
		s.Purged.TokensPurged(n)
	}
	if n > 0 {
		s.Logger.Info("expired tokens purged", "count", n)
	}
	return n
}
