package models

import "time"

// AuctionState is the read view of an auction handed to callers.
// ReservePrice is only populated for the seller; everyone else sees ReserveMet.
type AuctionState struct {
	AuctionID    string        `json:"auction_id"`
	SellerID     string        `json:"seller_id"`
	Title        string        `json:"title"`
	Status       AuctionStatus `json:"status"`
	StartingBid  int64         `json:"starting_bid"`
	CurrentBid   *int64        `json:"current_bid,omitempty"`
	MinimumBid   int64         `json:"minimum_bid"`
	BidCount     int           `json:"bid_count"`
	StartsAt     time.Time     `json:"starts_at"`
	EndsAt       time.Time     `json:"ends_at"`
	HasReserve   bool          `json:"has_reserve"`
	ReserveMet   bool          `json:"reserve_met"`
	ReservePrice *int64        `json:"reserve_price,omitempty"`
	BuyNowPrice  *int64        `json:"buy_now_price,omitempty"`
	WinnerID     *string       `json:"winner_id,omitempty"`
	FinalPrice   *int64        `json:"final_price,omitempty"`
	RecentBids   []Bid         `json:"recent_bids"`
	Version      int64         `json:"version"`
}

// BidderAuction is one auction as seen from a bidder's profile
type BidderAuction struct {
	AuctionID  string        `json:"auction_id"`
	Title      string        `json:"title"`
	Status     AuctionStatus `json:"status"`
	YourBid    int64         `json:"your_bid"`
	CurrentBid int64         `json:"current_bid"`
	FinalPrice *int64        `json:"final_price,omitempty"`
	Leading    bool          `json:"leading"`
	EndsAt     time.Time     `json:"ends_at"`
}

// BidderSummary groups the auctions a bidder took part in
type BidderSummary struct {
	BidderID string          `json:"bidder_id"`
	Active   []BidderAuction `json:"active"`
	Won      []BidderAuction `json:"won"`
	Lost     []BidderAuction `json:"lost"`
}
