package billing

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// PriceSyncScheduler periodically refreshes the model price table from the
// upstream pricing feed.
type PriceSyncScheduler struct {
	prices   *PriceService
	interval time.Duration
	stopChan chan struct{}
}

func NewPriceSyncScheduler(prices *PriceService, interval time.Duration) *PriceSyncScheduler {
	if interval == 0 {
		interval = 6 * time.Hour
	}
	return &PriceSyncScheduler{
		prices:   prices,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *PriceSyncScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	fiberlog.Infof("PriceSyncScheduler: started, running every %s", s.interval)

	// Prime the table so the first sessions have prices.
	if _, err := s.prices.SyncPrices(ctx); err != nil {
		fiberlog.Warnf("PriceSyncScheduler: initial sync failed: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.prices.SyncPrices(ctx); err != nil {
				fiberlog.Errorf("PriceSyncScheduler: sync failed: %v", err)
			}
		case <-s.stopChan:
			fiberlog.Info("PriceSyncScheduler: stopped")
			return
		case <-ctx.Done():
			fiberlog.Info("PriceSyncScheduler: stopped due to context cancellation")
			return
		}
	}
}

func (s *PriceSyncScheduler) Stop() {
	close(s.stopChan)
}
