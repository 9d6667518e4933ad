package repository

import (
	"fmt"
	"time"

	"auction-bidding/internal/biddingerrors"
	"auction-bidding/internal/models"
)

// Mutation is the set of writes one locked update commits. A bid append and
// a status change in the same Mutation are applied together or not at all.
type Mutation struct {
	Bid        *models.Bid
	Status     models.AuctionStatus
	WinnerID   *string
	FinalPrice *int64
	At         time.Time
}

// IsZero reports whether m writes nothing
func (m Mutation) IsZero() bool {
	return m.Bid == nil && m.Status == ""
}

// UpdateFunc inspects the locked auction and its latest ledger entry and
// returns the writes to commit. Returning an error commits nothing.
type UpdateFunc func(auction models.Auction, lastBid *models.Bid) (Mutation, error)

// ApplyMutation returns a with m applied. It guards the ledger and state
// machine invariants every store must keep.
func ApplyMutation(a models.Auction, lastBid *models.Bid, m Mutation) (models.Auction, error) {
	next := a.Clone()

	if m.Bid != nil {
		if m.Bid.AuctionID != a.AuctionID {
			return models.Auction{}, fmt.Errorf("%w - bid for auction %s", biddingerrors.ErrLedgerOrder, m.Bid.AuctionID)
		}
		if lastBid != nil && (m.Bid.Amount <= lastBid.Amount || !m.Bid.PlacedAt.After(lastBid.PlacedAt)) {
			return models.Auction{}, fmt.Errorf("%w - bid %d at %s after %d at %s", biddingerrors.ErrLedgerOrder,
				m.Bid.Amount, m.Bid.PlacedAt.Format(time.RFC3339Nano), lastBid.Amount, lastBid.PlacedAt.Format(time.RFC3339Nano))
		}
		next.CurrentBid = models.Int64(m.Bid.Amount)
		next.BidCount++
	}

	if m.Status != "" {
		if !a.Status.CanTransitionTo(m.Status) {
			return models.Auction{}, fmt.Errorf("%w - %s to %s", biddingerrors.ErrInvalidTransition, a.Status, m.Status)
		}
		next.Status = m.Status
		if m.WinnerID != nil {
			w := *m.WinnerID
			next.WinnerID = &w
		}
		if m.FinalPrice != nil {
			next.FinalPrice = models.Int64(*m.FinalPrice)
		}
	}

	next.Version++
	if !m.At.IsZero() {
		next.UpdatedAt = m.At
	}
	return next, nil
}
