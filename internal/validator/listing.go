package validator

import (
	"fmt"

	"auction-bidding/internal/biddingerrors"
	"auction-bidding/internal/models"
)

// ValidateListing checks the pricing and timing rules of a new auction
func ValidateListing(n models.NewAuction) error {
	switch {
	case n.SellerID == "":
		return fmt.Errorf("%w - missing seller", biddingerrors.ErrInvalidAuction)
	case n.StartingBid <= 0:
		return fmt.Errorf("%w - starting bid must be positive", biddingerrors.ErrInvalidAuction)
	case n.StartsAt.IsZero() || n.EndsAt.IsZero():
		return fmt.Errorf("%w - missing start or end time", biddingerrors.ErrInvalidAuction)
	case !n.EndsAt.After(n.StartsAt):
		return fmt.Errorf("%w - end time must be after start time", biddingerrors.ErrInvalidAuction)
	}

	if n.ReservePrice != nil && *n.ReservePrice < n.StartingBid {
		return fmt.Errorf("%w - reserve %d below starting bid %d", biddingerrors.ErrInvalidAuction, *n.ReservePrice, n.StartingBid)
	}
	if n.BuyNowPrice != nil {
		if *n.BuyNowPrice <= n.StartingBid {
			return fmt.Errorf("%w - buy now %d must exceed starting bid %d", biddingerrors.ErrInvalidAuction, *n.BuyNowPrice, n.StartingBid)
		}
		if n.ReservePrice != nil && *n.BuyNowPrice < *n.ReservePrice {
			return fmt.Errorf("%w - buy now %d below reserve %d", biddingerrors.ErrInvalidAuction, *n.BuyNowPrice, *n.ReservePrice)
		}
	}
	return nil
}
