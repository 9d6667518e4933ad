package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	bidding "auction-bidding/internal/biddingService"
	"auction-bidding/internal/models"
	"auction-bidding/internal/notifier"
	"auction-bidding/services/bidding/helpers"
	"auction-bidding/utils"

	"github.com/gin-gonic/gin"
)

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (bidding.BidResult, error)
	BuyNow(ctx context.Context, auctionID, buyerID string) (bidding.BuyNowResult, error)
	GetAuctionState(ctx context.Context, auctionID, viewerID string) (models.AuctionState, error)
	Subscribe(ctx context.Context, auctionID string) (*notifier.Subscription, models.AuctionState, error)
	CreateAuction(ctx context.Context, listing models.NewAuction) (models.Auction, error)
	PublishAuction(ctx context.Context, auctionID, sellerID string) (models.Auction, error)
	CancelAuction(ctx context.Context, auctionID, sellerID string) (models.Auction, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error)
	ListAuctions(ctx context.Context, status models.AuctionStatus) ([]models.Auction, error)
	GetBidderAuctions(ctx context.Context, bidderID string) (models.BidderSummary, error)
	MinIncrement() int64
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	sellerID, ok := helpers.RequireUser(c, "CreateAuctionHandler")
	if !ok {
		return
	}

	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	listing, err := listingFrom(sellerID, req)
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"seller_id": sellerID})
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), listing)
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"seller_id": sellerID})
		return
	}
	if req.Publish {
		published, err := h.service.PublishAuction(c.Request.Context(), auction.AuctionID, sellerID)
		if err != nil {
			helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"auction_id": auction.AuctionID})
			return
		}
		auction = published
	}

	utils.JSONResponse(c, http.StatusCreated, auction, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  sellerID,
		"status":     auction.Status.String(),
	})
}

func listingFrom(sellerID string, req helpers.CreateAuctionRequest) (models.NewAuction, error) {
	startingBid, err := helpers.ParseAmount(*req.StartingBid)
	if err != nil {
		return models.NewAuction{}, err
	}
	reserve, err := helpers.ParseOptionalAmount(req.ReservePrice)
	if err != nil {
		return models.NewAuction{}, err
	}
	buyNow, err := helpers.ParseOptionalAmount(req.BuyNowPrice)
	if err != nil {
		return models.NewAuction{}, err
	}

	startsAt := time.Now().UTC()
	if req.StartsAt != nil {
		startsAt = req.StartsAt.UTC()
	}
	return models.NewAuction{
		SellerID:     sellerID,
		Title:        req.Title,
		Description:  req.Description,
		StartingBid:  startingBid,
		ReservePrice: reserve,
		BuyNowPrice:  buyNow,
		StartsAt:     startsAt,
		EndsAt:       req.EndsAt.UTC(),
	}, nil
}

// ListAuctionsHandler handles GET /auctions?status=
func (h *BiddingHandler) ListAuctionsHandler(c *gin.Context) {
	status := models.AuctionStatus(c.Query("status"))
	auctions, err := h.service.ListAuctions(c.Request.Context(), status)
	if err != nil {
		helpers.RespondError(c, "ListAuctionsHandler", err, map[string]any{"status": status.String()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.Summarize(auctions), "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"status": status.String(),
		"count":  len(auctions),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	state, err := h.service.GetAuctionState(c.Request.Context(), auctionID, helpers.CurrentUser(c))
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, state, "auction retrieved successfully")
}

// PublishAuctionHandler handles POST /auctions/:auction_id/publish
func (h *BiddingHandler) PublishAuctionHandler(c *gin.Context) {
	h.sellerAction(c, "PublishAuctionHandler", "auction published successfully", h.service.PublishAuction)
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *BiddingHandler) CancelAuctionHandler(c *gin.Context) {
	h.sellerAction(c, "CancelAuctionHandler", "auction cancelled successfully", h.service.CancelAuction)
}

func (h *BiddingHandler) sellerAction(c *gin.Context, handlerName, message string,
	action func(ctx context.Context, auctionID, sellerID string) (models.Auction, error)) {
	sellerID, ok := helpers.RequireUser(c, handlerName)
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	auction, err := action(c.Request.Context(), auctionID, sellerID)
	if err != nil {
		helpers.RespondError(c, handlerName, err, map[string]any{"auction_id": auctionID, "seller_id": sellerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, message)
	helpers.LogSuccess(handlerName, message, map[string]any{
		"auction_id": auctionID,
		"status":     auction.Status.String(),
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	bidderID, ok := helpers.RequireUser(c, "PlaceBidHandler")
	if !ok {
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	fields := map[string]any{"auction_id": auctionID, "bidder_id": bidderID}

	amount, err := helpers.ParseAmount(*req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, fields)
		return
	}

	res, err := h.service.PlaceBid(c.Request.Context(), auctionID, bidderID, amount)
	if err != nil {
		fields["amount"] = amount
		helpers.RespondError(c, "PlaceBidHandler", err, fields)
		return
	}

	resp := helpers.BidResponse{
		BidID:      res.Bid.BidID,
		AuctionID:  res.Bid.AuctionID,
		BidderID:   res.Bid.BidderID,
		Amount:     res.Bid.Amount,
		CurrentBid: res.CurrentBid,
		MinimumBid: res.CurrentBid + h.service.MinIncrement(),
		PlacedAt:   res.Bid.PlacedAt.UTC().Format(time.RFC3339Nano),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     res.Bid.BidID,
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     res.Bid.Amount,
	})
}

// BuyNowHandler handles POST /auctions/:auction_id/buy-now
func (h *BiddingHandler) BuyNowHandler(c *gin.Context) {
	buyerID, ok := helpers.RequireUser(c, "BuyNowHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	res, err := h.service.BuyNow(c.Request.Context(), auctionID, buyerID)
	if err != nil {
		helpers.RespondError(c, "BuyNowHandler", err, map[string]any{"auction_id": auctionID, "buyer_id": buyerID})
		return
	}

	resp := helpers.BuyNowResponse{
		AuctionID:  res.Auction.AuctionID,
		WinnerID:   buyerID,
		FinalPrice: res.FinalPrice,
		Status:     res.Auction.Status,
	}

	utils.JSONResponse(c, http.StatusOK, resp, "auction bought successfully")
	helpers.LogSuccess("BuyNowHandler", "auction bought successfully", map[string]any{
		"auction_id":  auctionID,
		"buyer_id":    buyerID,
		"final_price": res.FinalPrice,
	})
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	if bids == nil {
		bids = []models.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// StreamEventsHandler handles GET /auctions/:auction_id/events as
// server-sent events: one "state" event, then every committed change.
func (h *BiddingHandler) StreamEventsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	sub, state, err := h.service.Subscribe(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "StreamEventsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", state)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.C():
			if !ok {
				if err := sub.Err(); err != nil {
					c.SSEvent("error", err.Error())
				}
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		}
	})

	utils.Debug("StreamEventsHandler: stream closed", map[string]any{"auction_id": auctionID})
}

// GetBidderAuctionsHandler handles GET /users/:user_id/auctions
func (h *BiddingHandler) GetBidderAuctionsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	summary, err := h.service.GetBidderAuctions(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetBidderAuctionsHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, summary, "auctions retrieved successfully")
	helpers.LogSuccess("GetBidderAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"user_id": userID,
		"active":  len(summary.Active),
		"won":     len(summary.Won),
		"lost":    len(summary.Lost),
	})
}
