package models

import "time"

// Auction is the canonical state of one auction
type Auction struct {
	AuctionID    string        `json:"auction_id"`
	SellerID     string        `json:"seller_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	StartingBid  int64         `json:"starting_bid"`
	ReservePrice *int64        `json:"reserve_price,omitempty"`
	BuyNowPrice  *int64        `json:"buy_now_price,omitempty"`
	CurrentBid   *int64        `json:"current_bid,omitempty"`
	BidCount     int           `json:"bid_count"`
	Status       AuctionStatus `json:"status"`
	StartsAt     time.Time     `json:"starts_at"`
	EndsAt       time.Time     `json:"ends_at"`
	WinnerID     *string       `json:"winner_id,omitempty"`
	FinalPrice   *int64        `json:"final_price,omitempty"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Bid is one accepted entry of an auction's ledger
type Bid struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

// NewAuction holds the listing fields supplied by a seller
type NewAuction struct {
	SellerID     string
	Title        string
	Description  string
	StartingBid  int64
	ReservePrice *int64
	BuyNowPrice  *int64
	StartsAt     time.Time
	EndsAt       time.Time
}

// HasBids reports whether any bid has been accepted.
func (a Auction) HasBids() bool {
	return a.CurrentBid != nil
}

// Clone returns a copy that shares no pointers with a.
func (a Auction) Clone() Auction {
	c := a
	c.ReservePrice = cloneInt(a.ReservePrice)
	c.BuyNowPrice = cloneInt(a.BuyNowPrice)
	c.CurrentBid = cloneInt(a.CurrentBid)
	c.FinalPrice = cloneInt(a.FinalPrice)
	if a.WinnerID != nil {
		w := *a.WinnerID
		c.WinnerID = &w
	}
	return c
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
