package validator

import (
	"time"

	"auction-bidding/internal/biddingerrors"
	"auction-bidding/internal/clock"
	"auction-bidding/internal/models"
)

// Candidate is a bid that has not been accepted yet
type Candidate struct {
	BidderID string
	Amount   int64
}

// MinimumBid is the smallest amount the next bid may have:
// (current bid, or starting bid before the first bid) + increment.
func MinimumBid(a models.Auction, increment int64) int64 {
	base := a.StartingBid
	if a.CurrentBid != nil {
		base = *a.CurrentBid
	}
	return base + increment
}

// Validate decides whether c is acceptable against a at now. Checks run in a
// fixed order and the first failure decides the reason. It has no side effects;
// callers must re-run it under the auction's lock before committing.
func Validate(a models.Auction, c Candidate, now time.Time, increment int64) error {
	floor := MinimumBid(a, increment)

	if !clock.IsOpen(a, now) {
		return reject(biddingerrors.ReasonAuctionNotActive, a, floor)
	}
	if c.Amount <= 0 {
		return reject(biddingerrors.ReasonInvalidAmount, a, floor)
	}
	if c.Amount < floor {
		return reject(biddingerrors.ReasonBidTooLow, a, floor)
	}
	if c.BidderID == a.SellerID {
		return reject(biddingerrors.ReasonSelfBid, a, floor)
	}
	return nil
}

// ValidateBuyNow decides whether buyerID may end a immediately at its buy-now price.
// Buy-now disappears once bidding has reached the buy-now price.
func ValidateBuyNow(a models.Auction, buyerID string, now time.Time, increment int64) error {
	floor := MinimumBid(a, increment)

	if !clock.IsOpen(a, now) {
		return reject(biddingerrors.ReasonAuctionNotActive, a, floor)
	}
	if a.BuyNowPrice == nil {
		return reject(biddingerrors.ReasonBuyNowUnavailable, a, floor)
	}
	if a.CurrentBid != nil && *a.CurrentBid >= *a.BuyNowPrice {
		return reject(biddingerrors.ReasonBuyNowUnavailable, a, floor)
	}
	if buyerID == a.SellerID {
		return reject(biddingerrors.ReasonSelfBid, a, floor)
	}
	return nil
}

func reject(reason biddingerrors.Reason, a models.Auction, floor int64) *biddingerrors.RejectionError {
	var current *int64
	if a.CurrentBid != nil {
		current = models.Int64(*a.CurrentBid)
	}
	if a.Status.IsTerminal() {
		floor = 0
	}
	return biddingerrors.Reject(reason, floor, current, a.Status.String())
}
