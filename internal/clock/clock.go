package clock

import (
	"sync"
	"time"

	"auction-bidding/internal/models"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// System is the wall clock
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fake is a manually driven clock for tests
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock set to now
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the clock forward by d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// IsOpen reports whether the auction accepts bids at now: active and
// within [StartsAt, EndsAt).
func IsOpen(a models.Auction, now time.Time) bool {
	return a.Status == models.StatusActive && !now.Before(a.StartsAt) && now.Before(a.EndsAt)
}

// ReserveMet reports whether the current bid satisfies the reserve.
// An auction without a reserve only needs one bid.
func ReserveMet(a models.Auction) bool {
	if a.CurrentBid == nil {
		return false
	}
	if a.ReservePrice == nil {
		return true
	}
	return *a.CurrentBid >= *a.ReservePrice
}

// NextTransition returns the status the clock moves a to at now, if any.
// Only draft -> active (startsAt reached) and active -> ended/sold
// (endsAt reached) are driven by time.
func NextTransition(a models.Auction, now time.Time) (models.AuctionStatus, bool) {
	switch a.Status {
	case models.StatusDraft:
		if !now.Before(a.StartsAt) {
			return models.StatusActive, true
		}
	case models.StatusActive:
		if !now.Before(a.EndsAt) {
			if ReserveMet(a) {
				return models.StatusSold, true
			}
			return models.StatusEnded, true
		}
	}
	return "", false
}

// Due reports whether the clock would change a at now
func Due(a models.Auction, now time.Time) bool {
	_, ok := NextTransition(a, now)
	return ok
}
