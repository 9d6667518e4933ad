package repository

import (
	"auction-bidding/internal/biddingerrors"
	"auction-bidding/internal/clock"
	"auction-bidding/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// AuctionDB is the auction entity store and bid ledger. Update is the only
// write path for an existing auction.
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction models.Auction) error
	GetAuction(ctx context.Context, auctionID string) (models.Auction, error)
	GetBids(ctx context.Context, auctionID string) ([]models.Bid, error)
	Snapshot(ctx context.Context, auctionID string, recentBids int) (models.Auction, []models.Bid, error)
	ListAuctions(ctx context.Context, status models.AuctionStatus) ([]models.Auction, error)
	ListDue(ctx context.Context, now time.Time) ([]string, error)
	GetBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error)
	Update(ctx context.Context, auctionID string, fn UpdateFunc) (models.Auction, error)
}

// auctionEntry co-locates one auction with its ledger and locks.
// sem serialises writers and can be abandoned through a context; mu makes
// the auction and ledger change together for readers.
type auctionEntry struct {
	sem     chan struct{}
	mu      sync.RWMutex
	auction models.Auction
	bids    []models.Bid
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Writers on different auctions never contend.
type MemoryRepo struct {
	mu           sync.RWMutex
	auctions     map[string]*auctionEntry // key: auctionID
	bidderMu     sync.RWMutex
	userAuctions map[string][]string // key: bidderID -> value: auctionIDs bid on
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:     make(map[string]*auctionEntry),
		userAuctions: make(map[string][]string),
	}
}

// CreateAuction stores a new auction with an empty ledger
func (r *MemoryRepo) CreateAuction(_ context.Context, auction models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionExists)
	}
	r.auctions[auction.AuctionID] = &auctionEntry{
		sem:     make(chan struct{}, 1),
		auction: auction.Clone(),
	}
	return nil
}

// GetAuction returns the current state of an auction
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (models.Auction, error) {
	e, err := r.entry(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.auction.Clone(), nil
}

// GetBids returns the full ledger of an auction in placement order
func (r *MemoryRepo) GetBids(_ context.Context, auctionID string) ([]models.Bid, error) {
	e, err := r.entry(auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Bid{}, e.bids...), nil
}

// Snapshot returns the auction together with its latest recentBids ledger
// entries, read under one lock so both reflect the same commit.
func (r *MemoryRepo) Snapshot(_ context.Context, auctionID string, recentBids int) (models.Auction, []models.Bid, error) {
	e, err := r.entry(auctionID)
	if err != nil {
		return models.Auction{}, nil, fmt.Errorf("snapshot auction %s: %w", auctionID, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	from := 0
	if recentBids >= 0 && len(e.bids) > recentBids {
		from = len(e.bids) - recentBids
	}
	return e.auction.Clone(), append([]models.Bid{}, e.bids[from:]...), nil
}

// ListAuctions returns auctions with the given status, or all auctions when
// status is empty, ordered by end time.
func (r *MemoryRepo) ListAuctions(_ context.Context, status models.AuctionStatus) ([]models.Auction, error) {
	var out []models.Auction
	for _, e := range r.entries() {
		e.mu.RLock()
		a := e.auction.Clone()
		e.mu.RUnlock()

		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndsAt.Equal(out[j].EndsAt) {
			return out[i].AuctionID < out[j].AuctionID
		}
		return out[i].EndsAt.Before(out[j].EndsAt)
	})
	return out, nil
}

// ListDue returns ids of auctions whose time-driven transition is due at now
func (r *MemoryRepo) ListDue(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, e := range r.entries() {
		e.mu.RLock()
		due := clock.Due(e.auction, now)
		id := e.auction.AuctionID
		e.mu.RUnlock()

		if due {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetBidsByBidder returns every bid a bidder placed, across auctions
func (r *MemoryRepo) GetBidsByBidder(_ context.Context, bidderID string) ([]models.Bid, error) {
	r.bidderMu.RLock()
	auctionIDs := append([]string(nil), r.userAuctions[bidderID]...)
	r.bidderMu.RUnlock()

	var out []models.Bid
	for _, id := range auctionIDs {
		e, err := r.entry(id)
		if err != nil {
			continue
		}
		e.mu.RLock()
		for _, b := range e.bids {
			if b.BidderID == bidderID {
				out = append(out, b)
			}
		}
		e.mu.RUnlock()
	}
	return out, nil
}

// Update runs fn with exclusive access to one auction and commits the
// returned mutation. Waiting for the lock honours ctx; once fn runs the
// commit is not abandoned.
func (r *MemoryRepo) Update(ctx context.Context, auctionID string, fn UpdateFunc) (models.Auction, error) {
	e, err := r.entry(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, err)
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return models.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, ctx.Err())
	}
	defer func() { <-e.sem }()

	// Only writers holding sem modify the entry, so this read is stable.
	e.mu.RLock()
	current := e.auction.Clone()
	var last *models.Bid
	if n := len(e.bids); n > 0 {
		b := e.bids[n-1]
		last = &b
	}
	e.mu.RUnlock()

	m, err := fn(current, last)
	if err != nil {
		return models.Auction{}, err
	}
	if m.IsZero() {
		return current, nil
	}

	next, err := ApplyMutation(current, last, m)
	if err != nil {
		return models.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, err)
	}

	e.mu.Lock()
	e.auction = next
	if m.Bid != nil {
		e.bids = append(e.bids, *m.Bid)
	}
	e.mu.Unlock()

	if m.Bid != nil {
		r.indexBidder(m.Bid.BidderID, auctionID)
	}
	return next.Clone(), nil
}

func (r *MemoryRepo) indexBidder(bidderID, auctionID string) {
	r.bidderMu.Lock()
	defer r.bidderMu.Unlock()

	for _, id := range r.userAuctions[bidderID] {
		if id == auctionID {
			return
		}
	}
	r.userAuctions[bidderID] = append(r.userAuctions[bidderID], auctionID)
}

func (r *MemoryRepo) entry(auctionID string) (*auctionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.auctions[auctionID]
	if !ok {
		return nil, biddingerrors.ErrAuctionNotFound
	}
	return e, nil
}

func (r *MemoryRepo) entries() []*auctionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*auctionEntry, 0, len(r.auctions))
	for _, e := range r.auctions {
		out = append(out, e)
	}
	return out
}
