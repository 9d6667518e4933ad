package rpc

import (
	"context"
	"errors"

	"auction-bidding/internal/biddingerrors"
	bidding "auction-bidding/internal/biddingService"
	"auction-bidding/internal/models"
	"auction-bidding/internal/notifier"
	"auction-bidding/utils"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BiddingService is the part of the bidding core exposed over gRPC
type BiddingService interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (bidding.BidResult, error)
	BuyNow(ctx context.Context, auctionID, buyerID string) (bidding.BuyNowResult, error)
	GetAuctionState(ctx context.Context, auctionID, viewerID string) (models.AuctionState, error)
	Subscribe(ctx context.Context, auctionID string) (*notifier.Subscription, models.AuctionState, error)
	MinIncrement() int64
}

// Server adapts the bidding service to AuctionServiceServer
type Server struct {
	service BiddingService
}

func NewServer(service BiddingService) *Server {
	return &Server{service: service}
}

func (s *Server) PlaceBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResponse, error) {
	res, err := s.service.PlaceBid(ctx, req.AuctionID, req.BidderID, req.Amount)
	if err != nil {
		if rej, ok := rejection(err); ok {
			utils.Debug("rpc: bid rejected", map[string]any{
				"auction_id": req.AuctionID,
				"bidder_id":  req.BidderID,
				"reason":     string(rej.Reason),
			})
			return &PlaceBidResponse{
				Reason:     string(rej.Reason),
				CurrentBid: rej.CurrentBid,
				MinimumBid: rej.MinimumBid,
				Status:     rej.Status,
			}, nil
		}
		return nil, toStatus("PlaceBid", err)
	}

	bid := res.Bid
	return &PlaceBidResponse{
		Accepted:   true,
		Bid:        &bid,
		CurrentBid: models.Int64(res.CurrentBid),
		MinimumBid: res.CurrentBid + s.service.MinIncrement(),
		Status:     res.Auction.Status.String(),
		Version:    res.Auction.Version,
	}, nil
}

func (s *Server) BuyNow(ctx context.Context, req *BuyNowRequest) (*BuyNowResponse, error) {
	res, err := s.service.BuyNow(ctx, req.AuctionID, req.BuyerID)
	if err != nil {
		if rej, ok := rejection(err); ok {
			return &BuyNowResponse{
				Reason:     string(rej.Reason),
				MinimumBid: rej.MinimumBid,
				Status:     rej.Status,
			}, nil
		}
		return nil, toStatus("BuyNow", err)
	}
	return &BuyNowResponse{
		Accepted:   true,
		FinalPrice: res.FinalPrice,
		Status:     res.Auction.Status.String(),
	}, nil
}

func (s *Server) GetAuctionState(ctx context.Context, req *GetAuctionStateRequest) (*models.AuctionState, error) {
	state, err := s.service.GetAuctionState(ctx, req.AuctionID, req.ViewerID)
	if err != nil {
		return nil, toStatus("GetAuctionState", err)
	}
	return &state, nil
}

// Subscribe sends the current state, then every committed change until the
// auction ends or the client goes away.
func (s *Server) Subscribe(req *SubscribeRequest, stream SubscribeStream) error {
	ctx := stream.Context()
	sub, state, err := s.service.Subscribe(ctx, req.AuctionID)
	if err != nil {
		return toStatus("Subscribe", err)
	}
	defer sub.Close()

	if err := stream.Send(&SubscribeMessage{State: &state}); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case ev, ok := <-sub.C():
			if !ok {
				return streamEnd(sub.Err())
			}
			if err := stream.Send(&SubscribeMessage{Event: &ev}); err != nil {
				return err
			}
		}
	}
}

// rejection reports expected refusals. A missing auction is a status, not a refusal.
func rejection(err error) (*biddingerrors.RejectionError, bool) {
	if errors.Is(err, biddingerrors.ErrAuctionNotFound) {
		return nil, false
	}
	return biddingerrors.AsRejection(err)
}

func toStatus(method string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		code = codes.NotFound
	case errors.Is(err, biddingerrors.ErrInvalidBid),
		errors.Is(err, biddingerrors.ErrInvalidAmount):
		code = codes.InvalidArgument
	case errors.Is(err, biddingerrors.ErrStoreUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.FromContextError(err).Err()
	}

	fields := map[string]any{"method": method, "code": code.String(), "error": err.Error()}
	if code == codes.Internal || code == codes.Unavailable {
		utils.Error("rpc: request failed", fields)
	} else {
		utils.Warn("rpc: request rejected", fields)
	}
	return status.Error(code, err.Error())
}

func streamEnd(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, biddingerrors.ErrSubscriberLagged):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
