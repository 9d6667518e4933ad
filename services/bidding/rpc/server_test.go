package rpc

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	bidding "auction-bidding/internal/biddingService"
	"auction-bidding/internal/clock"
	"auction-bidding/internal/models"
	"auction-bidding/internal/notifier"
	"auction-bidding/internal/repository"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

var start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestClient serves a bidding service seeded with auctions "a1"
// (starting bid 3000, buy now 6500) and "a2" (starting bid 100) over bufconn.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	repo := repository.NewMemoryRepo()
	for _, a := range []models.Auction{
		{AuctionID: "a1", SellerID: "seller", Title: "Camera", StartingBid: 3000, BuyNowPrice: models.Int64(6500)},
		{AuctionID: "a2", SellerID: "seller", Title: "Lamp", StartingBid: 100},
	} {
		a.Status = models.StatusActive
		a.StartsAt = start.Add(-time.Hour)
		a.EndsAt = start.Add(time.Hour)
		require.NoError(t, repo.CreateAuction(context.Background(), a))
	}

	hub := notifier.NewHub(16, time.Second)
	svc := bidding.NewBiddingService(repo, hub, hub, clock.NewFake(start), bidding.Options{MinIncrement: 50})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterAuctionServiceServer(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		hub.Close()
	})
	return NewClient(conn)
}

func TestServer_PlaceBid(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	resp, err := client.PlaceBid(ctx, &PlaceBidRequest{AuctionID: "a1", BidderID: "alice", Amount: 3050})
	require.NoError(t, err)
	require.True(t, resp.Accepted)
	require.Equal(t, int64(3050), resp.Bid.Amount)
	require.Equal(t, int64(3100), resp.MinimumBid)
	require.Equal(t, "active", resp.Status)

	tests := []struct {
		name           string
		req            *PlaceBidRequest
		expectedReason string
		expectedMin    int64
	}{
		{name: "too_low", req: &PlaceBidRequest{AuctionID: "a1", BidderID: "bob", Amount: 3099}, expectedReason: "BidTooLow", expectedMin: 3100},
		{name: "self_bid", req: &PlaceBidRequest{AuctionID: "a1", BidderID: "seller", Amount: 5000}, expectedReason: "SelfBid", expectedMin: 3100},
		{name: "non_positive", req: &PlaceBidRequest{AuctionID: "a2", BidderID: "bob", Amount: 0}, expectedReason: "InvalidAmount", expectedMin: 150},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp, err := client.PlaceBid(ctx, tc.req)
			require.NoError(t, err)
			require.False(t, resp.Accepted)
			require.Equal(t, tc.expectedReason, resp.Reason)
			require.Equal(t, tc.expectedMin, resp.MinimumBid)
			require.Nil(t, resp.Bid)
		})
	}
}

func TestServer_StatusCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.PlaceBid(ctx, &PlaceBidRequest{AuctionID: "missing", BidderID: "alice", Amount: 100})
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.PlaceBid(ctx, &PlaceBidRequest{AuctionID: "a1", Amount: 100})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetAuctionState(ctx, &GetAuctionStateRequest{AuctionID: "missing"})
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.BuyNow(ctx, &BuyNowRequest{AuctionID: "missing", BuyerID: "alice"})
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_BuyNow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	resp, err := client.BuyNow(ctx, &BuyNowRequest{AuctionID: "a2", BuyerID: "alice"})
	require.NoError(t, err)
	require.False(t, resp.Accepted)
	require.Equal(t, "BuyNowUnavailable", resp.Reason)

	resp, err = client.BuyNow(ctx, &BuyNowRequest{AuctionID: "a1", BuyerID: "alice"})
	require.NoError(t, err)
	require.True(t, resp.Accepted)
	require.Equal(t, int64(6500), resp.FinalPrice)
	require.Equal(t, "sold", resp.Status)

	bid, err := client.PlaceBid(ctx, &PlaceBidRequest{AuctionID: "a1", BidderID: "bob", Amount: 7000})
	require.NoError(t, err)
	require.False(t, bid.Accepted)
	require.Equal(t, "AuctionNotActive", bid.Reason)
	require.Equal(t, "sold", bid.Status)

	state, err := client.GetAuctionState(ctx, &GetAuctionStateRequest{AuctionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, models.StatusSold, state.Status)
	require.Equal(t, "alice", *state.WinnerID)
	require.Equal(t, int64(6500), *state.FinalPrice)
}

func TestServer_Subscribe(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, &SubscribeRequest{AuctionID: "a1"})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	require.NotNil(t, first.State)
	require.Equal(t, models.StatusActive, first.State.Status)
	require.Equal(t, int64(3050), first.State.MinimumBid)

	bid, err := client.PlaceBid(ctx, &PlaceBidRequest{AuctionID: "a1", BidderID: "alice", Amount: 4000})
	require.NoError(t, err)
	require.True(t, bid.Accepted)
	_, err = client.BuyNow(ctx, &BuyNowRequest{AuctionID: "a1", BuyerID: "bob"})
	require.NoError(t, err)

	msg, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, models.EventBidAccepted, msg.Event.Type)
	require.Equal(t, int64(4000), msg.Event.Amount)
	require.Equal(t, first.State.Version+1, msg.Event.Version)

	msg, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, models.EventStatusChanged, msg.Event.Type)
	require.Equal(t, models.StatusSold, msg.Event.Status)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)

	missing, err := client.Subscribe(ctx, &SubscribeRequest{AuctionID: "missing"})
	require.NoError(t, err)
	_, err = missing.Recv()
	require.Equal(t, codes.NotFound, status.Code(err))
}
