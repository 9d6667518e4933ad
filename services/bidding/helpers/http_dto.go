package helpers

import (
	"time"

	"github.com/shopspring/decimal"

	"auction-bidding/internal/models"
)

// Request/Response DTOs

// CreateAuctionRequest is the seller's listing. Money fields accept JSON
// numbers or strings and must be whole units.
type CreateAuctionRequest struct {
	Title        string           `json:"title" binding:"required"`
	Description  string           `json:"description"`
	StartingBid  *decimal.Decimal `json:"starting_bid" binding:"required"`
	ReservePrice *decimal.Decimal `json:"reserve_price"`
	BuyNowPrice  *decimal.Decimal `json:"buy_now_price"`
	StartsAt     *time.Time       `json:"starts_at"`
	EndsAt       *time.Time       `json:"ends_at" binding:"required"`
	Publish      bool             `json:"publish"`
}

type PlaceBidRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type BidResponse struct {
	BidID      string `json:"bid_id"`
	AuctionID  string `json:"auction_id"`
	BidderID   string `json:"bidder_id"`
	Amount     int64  `json:"amount"`
	CurrentBid int64  `json:"current_bid"`
	MinimumBid int64  `json:"minimum_bid"`
	PlacedAt   string `json:"placed_at"`
}

type BuyNowResponse struct {
	AuctionID  string               `json:"auction_id"`
	WinnerID   string               `json:"winner_id"`
	FinalPrice int64                `json:"final_price"`
	Status     models.AuctionStatus `json:"status"`
}

// RejectionResponse lets a client redraw the auction after a refusal
type RejectionResponse struct {
	Reason     string `json:"reason"`
	MinimumBid int64  `json:"minimum_bid,omitempty"`
	CurrentBid *int64 `json:"current_bid,omitempty"`
	Status     string `json:"status,omitempty"`
}

// AuctionSummary is the public listing view; it never carries the reserve amount
type AuctionSummary struct {
	AuctionID   string               `json:"auction_id"`
	SellerID    string               `json:"seller_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      models.AuctionStatus `json:"status"`
	StartingBid int64                `json:"starting_bid"`
	CurrentBid  *int64               `json:"current_bid,omitempty"`
	BidCount    int                  `json:"bid_count"`
	HasReserve  bool                 `json:"has_reserve"`
	BuyNowPrice *int64               `json:"buy_now_price,omitempty"`
	StartsAt    string               `json:"starts_at"`
	EndsAt      string               `json:"ends_at"`
}

// Summarize converts auctions to their public listing view
func Summarize(auctions []models.Auction) []AuctionSummary {
	out := make([]AuctionSummary, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, AuctionSummary{
			AuctionID:   a.AuctionID,
			SellerID:    a.SellerID,
			Title:       a.Title,
			Description: a.Description,
			Status:      a.Status,
			StartingBid: a.StartingBid,
			CurrentBid:  a.CurrentBid,
			BidCount:    a.BidCount,
			HasReserve:  a.ReservePrice != nil,
			BuyNowPrice: a.BuyNowPrice,
			StartsAt:    a.StartsAt.UTC().Format(time.RFC3339),
			EndsAt:      a.EndsAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
