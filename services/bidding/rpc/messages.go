package rpc

import "auction-bidding/internal/models"

type PlaceBidRequest struct {
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    int64  `json:"amount"`
}

// PlaceBidResponse reports either the accepted bid or why it was refused.
// Refusals are answers, not RPC errors.
type PlaceBidResponse struct {
	Accepted   bool        `json:"accepted"`
	Bid        *models.Bid `json:"bid,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	CurrentBid *int64      `json:"current_bid,omitempty"`
	MinimumBid int64       `json:"minimum_bid"`
	Status     string      `json:"status,omitempty"`
	Version    int64       `json:"version,omitempty"`
}

type BuyNowRequest struct {
	AuctionID string `json:"auction_id"`
	BuyerID   string `json:"buyer_id"`
}

type BuyNowResponse struct {
	Accepted   bool   `json:"accepted"`
	FinalPrice int64  `json:"final_price,omitempty"`
	Reason     string `json:"reason,omitempty"`
	MinimumBid int64  `json:"minimum_bid,omitempty"`
	Status     string `json:"status,omitempty"`
}

type GetAuctionStateRequest struct {
	AuctionID string `json:"auction_id"`
	ViewerID  string `json:"viewer_id"`
}

type SubscribeRequest struct {
	AuctionID string `json:"auction_id"`
}

// SubscribeMessage is one frame of the Subscribe stream: the initial state
// first, then one event per committed change.
type SubscribeMessage struct {
	State *models.AuctionState `json:"state,omitempty"`
	Event *models.Event        `json:"event,omitempty"`
}
