package helpers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"auction-bidding/internal/biddingerrors"
	"auction-bidding/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	// UserHeader carries the authenticated caller, set by the auth layer in front of us
	UserHeader = "X-User-ID"
	// CurrentUserKey is the gin context key holding the caller's id
	CurrentUserKey = "current_user"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// CurrentUser returns the caller's id, or "" for anonymous requests
func CurrentUser(c *gin.Context) string {
	return c.GetString(CurrentUserKey)
}

// RequireUser returns the caller's id or answers 401 and returns false
func RequireUser(c *gin.Context, handlerName string) (string, bool) {
	userID := CurrentUser(c)
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, errors.New("missing "+UserHeader+" header"), "authentication required")
		utils.Warn(handlerName+": anonymous caller", map[string]any{"path": c.Request.URL.Path})
		return "", false
	}
	return userID, true
}

// ParseAmount converts a client money value to whole units. Fractions and
// values beyond int64 are refused with InvalidAmount; sign is left to the
// bid rules so their check order holds.
func ParseAmount(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() || d.Abs().GreaterThan(maxAmount) {
		return 0, biddingerrors.Reject(biddingerrors.ReasonInvalidAmount, 0, nil, "")
	}
	return d.IntPart(), nil
}

// ParseOptionalAmount is ParseAmount for optional fields
func ParseOptionalAmount(d *decimal.Decimal) (*int64, error) {
	if d == nil {
		return nil, nil
	}
	v, err := ParseAmount(*d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction not active"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrBuyNowUnavailable):
		return http.StatusConflict, "buy now unavailable"
	case errors.Is(err, biddingerrors.ErrCancelNotAllowed):
		return http.StatusConflict, "auction cannot be cancelled"
	case errors.Is(err, biddingerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid status transition"
	case errors.Is(err, biddingerrors.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid bid amount"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrSelfBid):
		return http.StatusForbidden, "seller cannot bid on own auction"
	case errors.Is(err, biddingerrors.ErrNotSeller):
		return http.StatusForbidden, "only the seller may do this"
	case errors.Is(err, biddingerrors.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError writes err in the standard envelope. Bid rejections also
// carry the floor and status; server faults are logged at error level.
func RespondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()

	if rej, ok := biddingerrors.AsRejection(err); ok {
		utils.JSONRejection(c, status, fmt.Errorf("%s: %w", message, err), message, RejectionResponse{
			Reason:     string(rej.Reason),
			MinimumBid: rej.MinimumBid,
			CurrentBid: rej.CurrentBid,
			Status:     rej.Status,
		})
	} else {
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	}

	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
