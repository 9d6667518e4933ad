package biddingerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrAuctionExists    = errors.New("auction already exists")
	ErrLedgerOrder      = errors.New("bid breaks ledger ordering")
	ErrStoreUnavailable = errors.New("auction store unavailable")
)

// business logic errors
var (
	ErrAuctionNotActive   = errors.New("auction not active")
	ErrInvalidAmount      = errors.New("invalid bid amount")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrSelfBid            = errors.New("seller cannot bid on own auction")
	ErrBuyNowUnavailable  = errors.New("buy now unavailable")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrInvalidAuction     = errors.New("invalid auction")
	ErrNotSeller          = errors.New("caller is not the seller")
	ErrCancelNotAllowed   = errors.New("auction cannot be cancelled")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrSubscriberLagged   = errors.New("subscriber fell behind")
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Reason names why a bid or purchase was refused
type Reason string

const (
	ReasonAuctionNotActive  Reason = "AuctionNotActive"
	ReasonInvalidAmount     Reason = "InvalidAmount"
	ReasonBidTooLow         Reason = "BidTooLow"
	ReasonSelfBid           Reason = "SelfBid"
	ReasonBuyNowUnavailable Reason = "BuyNowUnavailable"
	ReasonNotFound          Reason = "NotFound"
)

var reasonErrors = map[Reason]error{
	ReasonAuctionNotActive:  ErrAuctionNotActive,
	ReasonInvalidAmount:     ErrInvalidAmount,
	ReasonBidTooLow:         ErrBidTooLow,
	ReasonSelfBid:           ErrSelfBid,
	ReasonBuyNowUnavailable: ErrBuyNowUnavailable,
	ReasonNotFound:          ErrAuctionNotFound,
}

// RejectionError is an expected refusal. It carries the auction's floor and
// status at the moment of refusal so callers can redraw without re-reading.
type RejectionError struct {
	Reason     Reason
	MinimumBid int64
	CurrentBid *int64
	Status     string
}

// Reject builds a RejectionError for reason.
func Reject(reason Reason, minimumBid int64, currentBid *int64, status string) *RejectionError {
	return &RejectionError{
		Reason:     reason,
		MinimumBid: minimumBid,
		CurrentBid: currentBid,
		Status:     status,
	}
}

func (e *RejectionError) Error() string {
	msg := fmt.Sprintf("%s: %v (status %s", e.Reason, e.Unwrap(), e.Status)
	if e.MinimumBid > 0 {
		msg += fmt.Sprintf(", minimum bid %d", e.MinimumBid)
	}
	return msg + ")"
}

// Unwrap lets errors.Is match the reason's sentinel error.
func (e *RejectionError) Unwrap() error {
	if err, ok := reasonErrors[e.Reason]; ok {
		return err
	}
	return ErrInvalidBid
}

// AsRejection extracts a RejectionError from err's chain.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// ReasonOf maps err onto the rejection taxonomy. ok is false for
// errors that are not expected refusals.
func ReasonOf(err error) (Reason, bool) {
	if rej, ok := AsRejection(err); ok {
		return rej.Reason, true
	}
	for reason, sentinel := range reasonErrors {
		if errors.Is(err, sentinel) {
			return reason, true
		}
	}
	return "", false
}
