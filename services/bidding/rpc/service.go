package rpc

import (
	"context"

	"auction-bidding/internal/models"

	"google.golang.org/grpc"
)

const serviceName = "auction.v1.AuctionService"

// AuctionServiceServer is the server API for the auction service
type AuctionServiceServer interface {
	PlaceBid(context.Context, *PlaceBidRequest) (*PlaceBidResponse, error)
	BuyNow(context.Context, *BuyNowRequest) (*BuyNowResponse, error)
	GetAuctionState(context.Context, *GetAuctionStateRequest) (*models.AuctionState, error)
	Subscribe(*SubscribeRequest, SubscribeStream) error
}

// SubscribeStream is the server side of the Subscribe stream
type SubscribeStream interface {
	Send(*SubscribeMessage) error
	grpc.ServerStream
}

// RegisterAuctionServiceServer registers srv with s
func RegisterAuctionServiceServer(s grpc.ServiceRegistrar, srv AuctionServiceServer) {
	s.RegisterService(&AuctionServiceDesc, srv)
}

// AuctionServiceDesc describes the service to grpc. Messages travel with the
// JSON codec.
var AuctionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AuctionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceBid", Handler: placeBidHandler},
		{MethodName: "BuyNow", Handler: buyNowHandler},
		{MethodName: "GetAuctionState", Handler: getAuctionStateHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "auction/v1/auction.proto",
}

func placeBidHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PlaceBidRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuctionServiceServer).PlaceBid(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/PlaceBid"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuctionServiceServer).PlaceBid(ctx, req.(*PlaceBidRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func buyNowHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BuyNowRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuctionServiceServer).BuyNow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/BuyNow"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuctionServiceServer).BuyNow(ctx, req.(*BuyNowRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getAuctionStateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAuctionStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuctionServiceServer).GetAuctionState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetAuctionState"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuctionServiceServer).GetAuctionState(ctx, req.(*GetAuctionStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AuctionServiceServer).Subscribe(in, &subscribeStream{stream})
}

type subscribeStream struct {
	grpc.ServerStream
}

func (s *subscribeStream) Send(m *SubscribeMessage) error {
	return s.ServerStream.SendMsg(m)
}

// Client calls the auction service over conn using the JSON codec
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) PlaceBid(ctx context.Context, in *PlaceBidRequest, opts ...grpc.CallOption) (*PlaceBidResponse, error) {
	out := new(PlaceBidResponse)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/PlaceBid", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BuyNow(ctx context.Context, in *BuyNowRequest, opts ...grpc.CallOption) (*BuyNowResponse, error) {
	out := new(BuyNowResponse)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/BuyNow", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAuctionState(ctx context.Context, in *GetAuctionStateRequest, opts ...grpc.CallOption) (*models.AuctionState, error) {
	out := new(models.AuctionState)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/GetAuctionState", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe opens the event stream. The first message carries the state.
func (c *Client) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (*SubscribeClient, error) {
	stream, err := c.conn.NewStream(ctx, &AuctionServiceDesc.Streams[0], "/"+serviceName+"/Subscribe", withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SubscribeClient{stream: stream}, nil
}

// SubscribeClient reads the Subscribe stream
type SubscribeClient struct {
	stream grpc.ClientStream
}

// Recv returns the next frame, or io.EOF once the auction is over
func (s *SubscribeClient) Recv() (*SubscribeMessage, error) {
	m := new(SubscribeMessage)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
