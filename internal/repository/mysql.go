package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-sql-driver/mysql"

	"auction-bidding/internal/biddingerrors"
	"auction-bidding/internal/models"
)

// ErrOptimisticLock is returned when the auction row changed between the
// locked read and the write.
var ErrOptimisticLock = errors.New("optimistic lock conflict")

const mysqlDuplicateEntry = 1062

// schema is applied in order by Migrate
var schema = []string{
	`CREATE TABLE IF NOT EXISTS auctions (
		id            VARCHAR(36)  PRIMARY KEY,
		seller_id     VARCHAR(64)  NOT NULL,
		title         VARCHAR(255) NOT NULL,
		description   TEXT         NOT NULL,
		starting_bid  BIGINT       NOT NULL,
		reserve_price BIGINT       NULL,
		buy_now_price BIGINT       NULL,
		current_bid   BIGINT       NULL,
		bid_count     INT          NOT NULL DEFAULT 0,
		status        VARCHAR(16)  NOT NULL,
		starts_at     DATETIME(6)  NOT NULL,
		ends_at       DATETIME(6)  NOT NULL,
		winner_id     VARCHAR(64)  NULL,
		final_price   BIGINT       NULL,
		version       BIGINT       NOT NULL DEFAULT 0,
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL,
		INDEX idx_auctions_status_ends (status, ends_at)
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id         CHAR(26)    PRIMARY KEY COMMENT 'ULID',
		auction_id VARCHAR(36) NOT NULL,
		bidder_id  VARCHAR(64) NOT NULL,
		amount     BIGINT      NOT NULL,
		placed_at  DATETIME(6) NOT NULL,
		UNIQUE KEY uq_bids_auction_amount (auction_id, amount),
		INDEX idx_bids_bidder (bidder_id),
		FOREIGN KEY (auction_id) REFERENCES auctions(id)
	)`,
}

const auctionColumns = `id, seller_id, title, description, starting_bid, reserve_price, buy_now_price,
	current_bid, bid_count, status, starts_at, ends_at, winner_id, final_price, version, created_at, updated_at`

const bidColumns = `id, auction_id, bidder_id, amount, placed_at`

// MySQLRepo is a durable AuctionDB. The auction row lock taken by
// SELECT ... FOR UPDATE is the per-auction lock. The DSN must set parseTime=true.
type MySQLRepo struct {
	db *sql.DB
}

// NewMySQLRepo wraps an open database handle
func NewMySQLRepo(db *sql.DB) *MySQLRepo {
	return &MySQLRepo{db: db}
}

// Migrate creates the tables if they do not exist
func (m *MySQLRepo) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := m.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLRepo) CreateAuction(ctx context.Context, a models.Auction) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO auctions (`+auctionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AuctionID, a.SellerID, a.Title, a.Description, a.StartingBid,
		nullInt(a.ReservePrice), nullInt(a.BuyNowPrice), nullInt(a.CurrentBid), a.BidCount,
		string(a.Status), a.StartsAt, a.EndsAt, nullString(a.WinnerID), nullInt(a.FinalPrice),
		a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return fmt.Errorf("create auction %s: %w", a.AuctionID, biddingerrors.ErrAuctionExists)
		}
		return storeErr("create auction "+a.AuctionID, err)
	}
	return nil
}

func (m *MySQLRepo) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, auctionID)
	a, err := scanAuction(row)
	if err != nil {
		return models.Auction{}, lookupErr("get auction "+auctionID, err)
	}
	return a, nil
}

func (m *MySQLRepo) GetBids(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if _, err := m.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return m.queryBids(ctx, m.db, `SELECT `+bidColumns+` FROM bids WHERE auction_id = ? ORDER BY placed_at`, auctionID)
}

// Snapshot reads the auction and its recent bids in one repeatable-read transaction
func (m *MySQLRepo) Snapshot(ctx context.Context, auctionID string, recentBids int) (models.Auction, []models.Bid, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return models.Auction{}, nil, storeErr("begin snapshot", err)
	}
	defer tx.Rollback()

	a, err := scanAuction(tx.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, auctionID))
	if err != nil {
		return models.Auction{}, nil, lookupErr("snapshot auction "+auctionID, err)
	}

	if recentBids < 0 {
		recentBids = math.MaxInt32
	}
	bids, err := m.queryBids(ctx, tx, `
		SELECT `+bidColumns+` FROM (
			SELECT `+bidColumns+` FROM bids WHERE auction_id = ? ORDER BY placed_at DESC LIMIT ?
		) recent ORDER BY placed_at`, auctionID, recentBids)
	if err != nil {
		return models.Auction{}, nil, err
	}
	return a, bids, tx.Commit()
}

func (m *MySQLRepo) ListAuctions(ctx context.Context, status models.AuctionStatus) ([]models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY ends_at, id`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list auctions", err)
	}
	defer rows.Close()

	var out []models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, storeErr("scan auction", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list auctions", err)
	}
	return out, nil
}

func (m *MySQLRepo) ListDue(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id FROM auctions
		WHERE (status = ? AND starts_at <= ?) OR (status = ? AND ends_at <= ?)
		ORDER BY id`,
		string(models.StatusDraft), now, string(models.StatusActive), now,
	)
	if err != nil {
		return nil, storeErr("list due auctions", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan due auction", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list due auctions", err)
	}
	return ids, nil
}

func (m *MySQLRepo) GetBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	return m.queryBids(ctx, m.db, `SELECT `+bidColumns+` FROM bids WHERE bidder_id = ? ORDER BY placed_at`, bidderID)
}

// Update locks the auction row, runs fn and writes the mutation in the same
// transaction. A context cancelled before COMMIT rolls everything back.
func (m *MySQLRepo) Update(ctx context.Context, auctionID string, fn UpdateFunc) (models.Auction, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Auction{}, storeErr("begin update", err)
	}
	defer tx.Rollback()

	current, err := scanAuction(tx.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = ? FOR UPDATE`, auctionID))
	if err != nil {
		return models.Auction{}, lookupErr("lock auction "+auctionID, err)
	}

	var last *models.Bid
	lastBids, err := m.queryBids(ctx, tx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = ? ORDER BY placed_at DESC LIMIT 1`, auctionID)
	if err != nil {
		return models.Auction{}, err
	}
	if len(lastBids) == 1 {
		last = &lastBids[0]
	}

	mut, err := fn(current, last)
	if err != nil {
		return models.Auction{}, err
	}
	if mut.IsZero() {
		return current, nil
	}

	next, err := ApplyMutation(current, last, mut)
	if err != nil {
		return models.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, err)
	}

	if b := mut.Bid; b != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO bids (`+bidColumns+`) VALUES (?, ?, ?, ?, ?)`,
			b.BidID, b.AuctionID, b.BidderID, b.Amount, b.PlacedAt); err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
				return models.Auction{}, fmt.Errorf("append bid to auction %s: %w", auctionID, biddingerrors.ErrLedgerOrder)
			}
			return models.Auction{}, storeErr("append bid", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET current_bid = ?, bid_count = ?, status = ?, winner_id = ?, final_price = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		nullInt(next.CurrentBid), next.BidCount, string(next.Status), nullString(next.WinnerID),
		nullInt(next.FinalPrice), next.Version, next.UpdatedAt, auctionID, current.Version,
	)
	if err != nil {
		return models.Auction{}, storeErr("update auction", err)
	}
	if err := checkUpdated(result, auctionID); err != nil {
		return models.Auction{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Auction{}, storeErr("commit update", err)
	}
	return next, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (m *MySQLRepo) queryBids(ctx context.Context, q queryer, query string, args ...any) ([]models.Bid, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query bids", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.PlacedAt); err != nil {
			return nil, storeErr("scan bid", err)
		}
		b.PlacedAt = b.PlacedAt.UTC()
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query bids", err)
	}
	return bids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuction(s scanner) (models.Auction, error) {
	var (
		a                                    models.Auction
		status                               string
		reserve, buyNow, current, finalPrice sql.NullInt64
		winner                               sql.NullString
	)
	err := s.Scan(&a.AuctionID, &a.SellerID, &a.Title, &a.Description, &a.StartingBid,
		&reserve, &buyNow, &current, &a.BidCount, &status, &a.StartsAt, &a.EndsAt,
		&winner, &finalPrice, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Auction{}, err
	}

	a.Status = models.AuctionStatus(status)
	a.ReservePrice = fromNullInt(reserve)
	a.BuyNowPrice = fromNullInt(buyNow)
	a.CurrentBid = fromNullInt(current)
	a.FinalPrice = fromNullInt(finalPrice)
	if winner.Valid {
		a.WinnerID = &winner.String
	}
	a.StartsAt, a.EndsAt = a.StartsAt.UTC(), a.EndsAt.UTC()
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return models.Int64(v.Int64)
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func lookupErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, biddingerrors.ErrAuctionNotFound)
	}
	return storeErr(op, err)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrStoreUnavailable, err)
}

// checkUpdated fails unless the versioned update touched the row. A lost
// row lock surfaces as a store failure so callers see it as retryable.
func checkUpdated(result sql.Result, auctionID string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("update auction", err)
	}
	if rows == 0 {
		return storeErr("update auction "+auctionID, ErrOptimisticLock)
	}
	return nil
}
