package models

import "time"

// EventType identifies a change notification
type EventType string

const (
	EventBidAccepted   EventType = "bid_accepted"
	EventStatusChanged EventType = "status_changed"
)

// Event is a committed change to one auction. Version is the auction's
// commit sequence after the change, so events of one auction are totally ordered.
type Event struct {
	Type      EventType     `json:"type"`
	AuctionID string        `json:"auction_id"`
	Version   int64         `json:"version"`
	Amount    int64         `json:"amount,omitempty"`
	BidderID  string        `json:"bidder_id,omitempty"`
	PlacedAt  *time.Time    `json:"placed_at,omitempty"`
	Status    AuctionStatus `json:"status,omitempty"`
}

// BidAcceptedEvent builds the event for a committed bid.
func BidAcceptedEvent(auction Auction, bid Bid) Event {
	placedAt := bid.PlacedAt
	return Event{
		Type:      EventBidAccepted,
		AuctionID: auction.AuctionID,
		Version:   auction.Version,
		Amount:    bid.Amount,
		BidderID:  bid.BidderID,
		PlacedAt:  &placedAt,
	}
}

// StatusChangedEvent builds the event for a committed status transition.
func StatusChangedEvent(auction Auction) Event {
	return Event{
		Type:      EventStatusChanged,
		AuctionID: auction.AuctionID,
		Version:   auction.Version,
		Status:    auction.Status,
	}
}
