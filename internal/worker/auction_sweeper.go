package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/case-routing-service/internal/service"
)

// AuctionSweeper periodically closes auctions whose deadline has passed.
// Expiry is also applied lazily on read, so the sweeper only bounds how
// long an expired auction can sit unresolved with no traffic.
type AuctionSweeper struct {
	auctions *service.AuctionService
	interval time.Duration
	logger   *zap.Logger
}

// NewAuctionSweeper constructs a sweeper.
func NewAuctionSweeper(auctions *service.AuctionService, interval time.Duration, logger *zap.Logger) *AuctionSweeper {
	return &AuctionSweeper{auctions: auctions, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *AuctionSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := s.auctions.CloseExpired(ctx)
			if err != nil {
				s.logger.Warn("auction sweep failed", zap.Error(err))
				continue
			}
			if closed > 0 {
				s.logger.Info("closed expired auctions", zap.Int("count", closed))
			}
		}
	}
}
