package biddingerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRejectionError_Unwrap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		reason Reason
		want   error
	}{
		{name: "not_active", reason: ReasonAuctionNotActive, want: ErrAuctionNotActive},
		{name: "invalid_amount", reason: ReasonInvalidAmount, want: ErrInvalidAmount},
		{name: "too_low", reason: ReasonBidTooLow, want: ErrBidTooLow},
		{name: "self_bid", reason: ReasonSelfBid, want: ErrSelfBid},
		{name: "buy_now", reason: ReasonBuyNowUnavailable, want: ErrBuyNowUnavailable},
		{name: "not_found", reason: ReasonNotFound, want: ErrAuctionNotFound},
		{name: "unknown_reason", reason: Reason("Other"), want: ErrInvalidBid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := fmt.Errorf("service: place bid: %w", Reject(tc.reason, 3050, nil, "active"))
			require.True(t, errors.Is(err, tc.want), "expected error: %v, got: %v", tc.want, err)

			rej, ok := AsRejection(err)
			require.True(t, ok)
			require.Equal(t, tc.reason, rej.Reason)
			require.Equal(t, int64(3050), rej.MinimumBid)
		})
	}
}

func TestReasonOf(t *testing.T) {
	t.Parallel()

	reason, ok := ReasonOf(fmt.Errorf("wrapped: %w", ErrAuctionNotFound))
	require.True(t, ok)
	require.Equal(t, ReasonNotFound, reason)

	reason, ok = ReasonOf(Reject(ReasonBidTooLow, 4150, nil, "active"))
	require.True(t, ok)
	require.Equal(t, ReasonBidTooLow, reason)

	_, ok = ReasonOf(fmt.Errorf("%w: connection refused", ErrStoreUnavailable))
	require.False(t, ok)
}

func TestRejectionError_Error(t *testing.T) {
	t.Parallel()

	err := Reject(ReasonBidTooLow, 3100, nil, "active")
	require.Contains(t, err.Error(), "BidTooLow")
	require.Contains(t, err.Error(), "minimum bid 3100")

	err = Reject(ReasonAuctionNotActive, 0, nil, "sold")
	require.NotContains(t, err.Error(), "minimum bid")
	require.Contains(t, err.Error(), "status sold")
}
