package clock

import (
	"context"
	"time"

	"auction-bidding/utils"
)

// SettleFunc settles every auction whose time-driven transition is due and
// returns how many changed.
type SettleFunc func(ctx context.Context) (int, error)

// Sweeper periodically settles due auctions so transitions happen even when
// nobody looks at an auction.
type Sweeper struct {
	interval time.Duration
	settle   SettleFunc
}

// NewSweeper creates a Sweeper running settle every interval
func NewSweeper(interval time.Duration, settle SettleFunc) *Sweeper {
	return &Sweeper{interval: interval, settle: settle}
}

// Run blocks until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.settle(ctx)
			if err != nil {
				utils.Error("sweeper: settle failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				utils.Info("sweeper: settled auctions", map[string]any{"count": n})
			}
		}
	}
}
