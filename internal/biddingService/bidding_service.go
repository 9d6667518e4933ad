package bidding

import (
	"auction-bidding/internal/biddingerrors"
	"auction-bidding/internal/clock"
	"auction-bidding/internal/models"
	"auction-bidding/internal/notifier"
	"auction-bidding/internal/repository"
	"auction-bidding/internal/validator"
	"auction-bidding/utils"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	DefaultMinIncrement int64 = 50
	DefaultRecentBids         = 10
)

// Publisher receives committed events. It must not block.
type Publisher interface {
	Publish(event models.Event)
}

// Feed hands out live event streams
type Feed interface {
	Subscribe(auctionID string, afterVersion int64) *notifier.Subscription
}

// Options tune the bidding rules
type Options struct {
	MinIncrement int64
	RecentBids   int
}

// BidResult is the outcome of an accepted bid
type BidResult struct {
	CurrentBid int64          `json:"current_bid"`
	Bid        models.Bid     `json:"bid"`
	Auction    models.Auction `json:"auction"`
}

// BuyNowResult is the outcome of an accepted buy-now purchase
type BuyNowResult struct {
	FinalPrice int64          `json:"final_price"`
	Auction    models.Auction `json:"auction"`
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo         repository.AuctionDB
	events       Publisher
	feed         Feed
	clock        clock.Clock
	minIncrement int64
	recentBids   int
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, events Publisher, feed Feed, clk clock.Clock, opts Options) *BiddingService {
	if opts.MinIncrement <= 0 {
		opts.MinIncrement = DefaultMinIncrement
	}
	if opts.RecentBids <= 0 {
		opts.RecentBids = DefaultRecentBids
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &BiddingService{
		repo:         repo,
		events:       events,
		feed:         feed,
		clock:        clk,
		minIncrement: opts.MinIncrement,
		recentBids:   opts.RecentBids,
	}
}

// MinIncrement is the fixed step between consecutive bids
func (s *BiddingService) MinIncrement() int64 {
	return s.minIncrement
}

// decideFunc returns the writes for an auction whose clock is already settled
type decideFunc func(a models.Auction, last *models.Bid, now time.Time) (repository.Mutation, error)

// transact runs decide under the auction's lock. A due clock transition is
// committed and published on its own first, then decide runs against the
// new state, so every commit carries exactly one event.
func (s *BiddingService) transact(ctx context.Context, auctionID string, decide decideFunc) (models.Auction, repository.Mutation, error) {
	for {
		var (
			m       repository.Mutation
			settled bool
		)
		auction, err := s.repo.Update(ctx, auctionID, func(a models.Auction, last *models.Bid) (repository.Mutation, error) {
			now := s.clock.Now()
			if sm, ok := settleMutation(a, last, now); ok {
				settled = true
				return sm, nil
			}
			var err error
			m, err = decide(a, last, now)
			return m, err
		})
		if err != nil {
			return models.Auction{}, repository.Mutation{}, err
		}
		if settled {
			s.publishStatus(auction)
			continue
		}
		return auction, m, nil
	}
}

// settleMutation is the clock-driven transition due for a at now, if any
func settleMutation(a models.Auction, last *models.Bid, now time.Time) (repository.Mutation, bool) {
	next, ok := clock.NextTransition(a, now)
	if !ok {
		return repository.Mutation{}, false
	}
	m := repository.Mutation{Status: next, At: now}
	if next == models.StatusSold && last != nil {
		winner := last.BidderID
		m.WinnerID = &winner
		m.FinalPrice = models.Int64(last.Amount)
	}
	return m, true
}

// placedAt keeps ledger timestamps strictly increasing at microsecond
// resolution, which every store can persist exactly.
func placedAt(now time.Time, last *models.Bid) time.Time {
	t := now.Truncate(time.Microsecond)
	if last != nil && !t.After(last.PlacedAt) {
		t = last.PlacedAt.Add(time.Microsecond)
	}
	return t
}

// PlaceBid validates a bid against the locked auction and commits it
// together with the new current bid. Concurrent losers are re-validated
// against the winner and rejected with BidTooLow.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (BidResult, error) {
	if auctionID == "" || bidderID == "" {
		return BidResult{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}

	auction, m, err := s.transact(ctx, auctionID, func(a models.Auction, last *models.Bid, now time.Time) (repository.Mutation, error) {
		candidate := validator.Candidate{BidderID: bidderID, Amount: amount}
		if err := validator.Validate(a, candidate, now, s.minIncrement); err != nil {
			return repository.Mutation{}, err
		}
		at := placedAt(now, last)
		bid := models.Bid{
			BidID:     utils.GenerateBidID(at),
			AuctionID: a.AuctionID,
			BidderID:  bidderID,
			Amount:    amount,
			PlacedAt:  at,
		}
		return repository.Mutation{Bid: &bid, At: at}, nil
	})
	if err != nil {
		return BidResult{}, fmt.Errorf("service: failed to place bid on auction %s by %s: %w", auctionID, bidderID, err)
	}

	bid := *m.Bid
	s.events.Publish(models.BidAcceptedEvent(auction, bid))
	utils.Debug("bid accepted", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     amount,
		"version":    auction.Version,
	})
	return BidResult{CurrentBid: bid.Amount, Bid: bid, Auction: auction}, nil
}

// BuyNow ends the auction at its buy-now price in favour of buyerID
func (s *BiddingService) BuyNow(ctx context.Context, auctionID, buyerID string) (BuyNowResult, error) {
	if auctionID == "" || buyerID == "" {
		return BuyNowResult{}, fmt.Errorf("service: %w - missing auctionID or buyerID", biddingerrors.ErrInvalidBid)
	}

	auction, _, err := s.transact(ctx, auctionID, func(a models.Auction, _ *models.Bid, now time.Time) (repository.Mutation, error) {
		if err := validator.ValidateBuyNow(a, buyerID, now, s.minIncrement); err != nil {
			return repository.Mutation{}, err
		}
		winner := buyerID
		return repository.Mutation{
			Status:     models.StatusSold,
			WinnerID:   &winner,
			FinalPrice: models.Int64(*a.BuyNowPrice),
			At:         now,
		}, nil
	})
	if err != nil {
		return BuyNowResult{}, fmt.Errorf("service: failed to buy auction %s for %s: %w", auctionID, buyerID, err)
	}

	s.publishStatus(auction)
	return BuyNowResult{FinalPrice: *auction.FinalPrice, Auction: auction}, nil
}

// GetAuctionState returns the auction as viewerID may see it. The reserve
// amount is only shown to the seller.
func (s *BiddingService) GetAuctionState(ctx context.Context, auctionID, viewerID string) (models.AuctionState, error) {
	if auctionID == "" {
		return models.AuctionState{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, bids, err := s.repo.Snapshot(ctx, auctionID, s.recentBids)
	if err != nil {
		return models.AuctionState{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	if clock.Due(auction, s.clock.Now()) {
		if _, err := s.settle(ctx, auctionID); err != nil {
			return models.AuctionState{}, fmt.Errorf("service: failed to settle auction %s: %w", auctionID, err)
		}
		if auction, bids, err = s.repo.Snapshot(ctx, auctionID, s.recentBids); err != nil {
			return models.AuctionState{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
		}
	}

	return s.stateOf(auction, bids, viewerID), nil
}

func (s *BiddingService) stateOf(a models.Auction, recent []models.Bid, viewerID string) models.AuctionState {
	state := models.AuctionState{
		AuctionID:   a.AuctionID,
		SellerID:    a.SellerID,
		Title:       a.Title,
		Status:      a.Status,
		StartingBid: a.StartingBid,
		CurrentBid:  a.CurrentBid,
		BidCount:    a.BidCount,
		StartsAt:    a.StartsAt,
		EndsAt:      a.EndsAt,
		HasReserve:  a.ReservePrice != nil,
		ReserveMet:  clock.ReserveMet(a),
		BuyNowPrice: a.BuyNowPrice,
		WinnerID:    a.WinnerID,
		FinalPrice:  a.FinalPrice,
		RecentBids:  recent,
		Version:     a.Version,
	}
	if !a.Status.IsTerminal() {
		state.MinimumBid = validator.MinimumBid(a, s.minIncrement)
	}
	if viewerID != "" && viewerID == a.SellerID {
		state.ReservePrice = a.ReservePrice
	}
	if state.RecentBids == nil {
		state.RecentBids = []models.Bid{}
	}
	return state
}

// Subscribe returns the auction's current state and a stream of the
// changes committed after it.
func (s *BiddingService) Subscribe(ctx context.Context, auctionID string) (*notifier.Subscription, models.AuctionState, error) {
	state, err := s.GetAuctionState(ctx, auctionID, "")
	if err != nil {
		return nil, models.AuctionState{}, err
	}
	if state.Status.IsTerminal() {
		return notifier.Completed(auctionID), state, nil
	}
	sub := s.feed.Subscribe(auctionID, state.Version)

	// the auction may have finished between the read and the subscribe
	latest, err := s.GetAuctionState(ctx, auctionID, "")
	if err != nil {
		sub.Close()
		return nil, models.AuctionState{}, err
	}
	if latest.Status.IsTerminal() && latest.Version > state.Version {
		sub.Close()
		return notifier.Completed(auctionID), latest, nil
	}
	return sub, state, nil
}

// CreateAuction stores a new listing as a draft
func (s *BiddingService) CreateAuction(ctx context.Context, listing models.NewAuction) (models.Auction, error) {
	if err := validator.ValidateListing(listing); err != nil {
		return models.Auction{}, fmt.Errorf("service: %w", err)
	}
	now := s.clock.Now()
	if !listing.EndsAt.After(now) {
		return models.Auction{}, fmt.Errorf("service: %w - auction ends in the past", biddingerrors.ErrInvalidAuction)
	}

	auction := models.Auction{
		AuctionID:    utils.GenerateID(),
		SellerID:     listing.SellerID,
		Title:        listing.Title,
		Description:  listing.Description,
		StartingBid:  listing.StartingBid,
		ReservePrice: listing.ReservePrice,
		BuyNowPrice:  listing.BuyNowPrice,
		Status:       models.StatusDraft,
		StartsAt:     listing.StartsAt.UTC(),
		EndsAt:       listing.EndsAt.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for seller %s: %w", listing.SellerID, err)
	}

	utils.Info("auction created", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
	})
	return auction, nil
}

// PublishAuction moves a draft to active. Bidding opens at startsAt.
// Publishing an active auction is a no-op.
func (s *BiddingService) PublishAuction(ctx context.Context, auctionID, sellerID string) (models.Auction, error) {
	auction, m, err := s.transact(ctx, auctionID, func(a models.Auction, _ *models.Bid, now time.Time) (repository.Mutation, error) {
		if a.SellerID != sellerID {
			return repository.Mutation{}, biddingerrors.ErrNotSeller
		}
		switch a.Status {
		case models.StatusActive:
			return repository.Mutation{}, nil
		case models.StatusDraft:
			return repository.Mutation{Status: models.StatusActive, At: now}, nil
		}
		return repository.Mutation{}, fmt.Errorf("%w - auction is %s", biddingerrors.ErrInvalidTransition, a.Status)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to publish auction %s: %w", auctionID, err)
	}

	if !m.IsZero() {
		s.publishStatus(auction)
	}
	return auction, nil
}

// CancelAuction withdraws an active auction that has no bids yet
func (s *BiddingService) CancelAuction(ctx context.Context, auctionID, sellerID string) (models.Auction, error) {
	auction, _, err := s.transact(ctx, auctionID, func(a models.Auction, _ *models.Bid, now time.Time) (repository.Mutation, error) {
		if a.SellerID != sellerID {
			return repository.Mutation{}, biddingerrors.ErrNotSeller
		}
		if a.Status != models.StatusActive {
			return repository.Mutation{}, fmt.Errorf("%w - auction is %s", biddingerrors.ErrCancelNotAllowed, a.Status)
		}
		if a.HasBids() {
			return repository.Mutation{}, fmt.Errorf("%w - auction has %d bids", biddingerrors.ErrCancelNotAllowed, a.BidCount)
		}
		return repository.Mutation{Status: models.StatusCancelled, At: now}, nil
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to cancel auction %s: %w", auctionID, err)
	}

	s.publishStatus(auction)
	utils.Info("auction cancelled", map[string]any{"auction_id": auctionID, "seller_id": sellerID})
	return auction, nil
}

// GetBidsForAuction returns the full bid history of an auction
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBids(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// ListAuctions returns auctions with the given status, or every auction when
// status is empty. Due transitions are settled first.
func (s *BiddingService) ListAuctions(ctx context.Context, status models.AuctionStatus) ([]models.Auction, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("service: %w - unknown status %q", biddingerrors.ErrInvalidAuction, status)
	}
	if _, err := s.SettleDue(ctx); err != nil {
		utils.Warn("service: settle before listing failed", map[string]any{"error": err.Error()})
	}

	auctions, err := s.repo.ListAuctions(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// GetBidderAuctions groups the auctions a bidder took part in into active,
// won and lost.
func (s *BiddingService) GetBidderAuctions(ctx context.Context, bidderID string) (models.BidderSummary, error) {
	if bidderID == "" {
		return models.BidderSummary{}, fmt.Errorf("service: %w - empty bidder ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByBidder(ctx, bidderID)
	if err != nil {
		return models.BidderSummary{}, fmt.Errorf("service: failed to get bids of %s: %w", bidderID, err)
	}

	highest := make(map[string]int64)
	var order []string
	for _, b := range bids {
		if _, seen := highest[b.AuctionID]; !seen {
			order = append(order, b.AuctionID)
		}
		if b.Amount > highest[b.AuctionID] {
			highest[b.AuctionID] = b.Amount
		}
	}

	summary := models.BidderSummary{
		BidderID: bidderID,
		Active:   []models.BidderAuction{},
		Won:      []models.BidderAuction{},
		Lost:     []models.BidderAuction{},
	}
	for _, id := range order {
		state, err := s.GetAuctionState(ctx, id, bidderID)
		if err != nil {
			return models.BidderSummary{}, err
		}

		entry := models.BidderAuction{
			AuctionID:  state.AuctionID,
			Title:      state.Title,
			Status:     state.Status,
			YourBid:    highest[id],
			FinalPrice: state.FinalPrice,
			EndsAt:     state.EndsAt,
		}
		if state.CurrentBid != nil {
			entry.CurrentBid = *state.CurrentBid
		}
		entry.Leading = entry.CurrentBid == entry.YourBid

		switch {
		case !state.Status.IsTerminal():
			summary.Active = append(summary.Active, entry)
		case state.Status == models.StatusSold && state.WinnerID != nil && *state.WinnerID == bidderID:
			summary.Won = append(summary.Won, entry)
		default:
			summary.Lost = append(summary.Lost, entry)
		}
	}

	for _, list := range [][]models.BidderAuction{summary.Active, summary.Won, summary.Lost} {
		sort.SliceStable(list, func(i, j int) bool { return list[i].EndsAt.Before(list[j].EndsAt) })
	}
	return summary, nil
}

// SettleDue applies every due clock transition and returns how many
// transitions were committed.
func (s *BiddingService) SettleDue(ctx context.Context) (int, error) {
	ids, err := s.repo.ListDue(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("service: failed to list due auctions: %w", err)
	}

	var (
		count int
		errs  []error
	)
	for _, id := range ids {
		n, err := s.settle(ctx, id)
		count += n
		if err != nil {
			errs = append(errs, fmt.Errorf("settle auction %s: %w", id, err))
		}
	}
	return count, errors.Join(errs...)
}

// settle commits due transitions of one auction. Concurrent callers are
// serialised by the auction's lock; only the first sees a transition.
func (s *BiddingService) settle(ctx context.Context, auctionID string) (int, error) {
	count := 0
	for {
		var applied bool
		auction, err := s.repo.Update(ctx, auctionID, func(a models.Auction, last *models.Bid) (repository.Mutation, error) {
			m, ok := settleMutation(a, last, s.clock.Now())
			applied = ok
			return m, nil
		})
		if err != nil {
			return count, err
		}
		if !applied {
			return count, nil
		}
		count++
		s.publishStatus(auction)
	}
}

func (s *BiddingService) publishStatus(auction models.Auction) {
	s.events.Publish(models.StatusChangedEvent(auction))
	utils.Info("auction status changed", map[string]any{
		"auction_id": auction.AuctionID,
		"status":     auction.Status.String(),
		"version":    auction.Version,
	})
}
