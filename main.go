package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	bidding "auction-bidding/internal/biddingService"
	"auction-bidding/internal/clock"
	"auction-bidding/internal/config"
	"auction-bidding/internal/models"
	"auction-bidding/internal/notifier"
	"auction-bidding/internal/repository"
	"auction-bidding/internal/server"
	"auction-bidding/services/bidding/rpc"
	"auction-bidding/utils"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
)

const relayQueueSize = 10000

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, db := openStore(ctx, cfg)

	hub := notifier.NewHub(cfg.SubscriberBuffer, cfg.GapTimeout)
	var (
		events bidding.Publisher = hub
		rdb    *redis.Client
		wg     sync.WaitGroup
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			utils.Fatal("failed to connect redis", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
		}
		relay := notifier.NewRedisRelay(rdb, hub, relayQueueSize)
		events = relay

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relay.Run(ctx); err != nil {
				utils.Error("relay stopped", map[string]any{"error": err.Error()})
			}
		}()
		utils.Info("relaying events through redis", map[string]any{"addr": cfg.RedisAddr})
	}

	biddingSvc := bidding.NewBiddingService(repo, events, hub, clock.System{}, bidding.Options{
		MinIncrement: cfg.MinIncrement,
		RecentBids:   cfg.RecentBids,
	})

	sweeper := clock.NewSweeper(cfg.SweepInterval, biddingSvc.SettleDue)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	// gRPC
	grpcServer := grpc.NewServer()
	rpc.RegisterAuctionServiceServer(grpcServer, rpc.NewServer(biddingSvc))
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		utils.Fatal("failed to listen", map[string]any{"addr": cfg.GRPCAddr, "error": err.Error()})
	}
	go func() {
		utils.Info("gRPC server listening", map[string]any{"addr": cfg.GRPCAddr})
		if err := grpcServer.Serve(lis); err != nil {
			utils.Error("gRPC server error", map[string]any{"error": err.Error()})
		}
	}()

	// HTTP
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.SetupRouter(biddingSvc),
	}
	go func() {
		utils.Info("Starting auction server", map[string]any{"addr": cfg.HTTPAddr})
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			utils.Error("HTTP server error", map[string]any{"error": err.Error()})
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Info("shutting down", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	// open event streams only end once the hub closes
	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		utils.Warn("HTTP server shutdown", map[string]any{"error": err.Error()})
	}
	grpcServer.GracefulStop()

	cancel()
	wg.Wait()

	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	utils.Info("stopped", nil)
}

// openStore connects MySQL when a DSN is configured and falls back to the
// in-memory store, seeded with sample auctions, otherwise.
func openStore(ctx context.Context, cfg config.Config) (repository.AuctionDB, *sql.DB) {
	if cfg.MySQLDSN == "" {
		repo := repository.NewMemoryRepo()
		prepopulateAuctions(ctx, repo)
		return repo, nil
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		utils.Fatal("failed to connect mysql", map[string]any{"error": err.Error()})
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		utils.Fatal("failed to ping mysql", map[string]any{"error": err.Error()})
	}
	repo := repository.NewMySQLRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		utils.Fatal("failed to migrate mysql", map[string]any{"error": err.Error()})
	}
	utils.Info("connected to mysql", nil)
	return repo, db
}

// prepopulateAuctions adds sample auctions to the in-memory repo
func prepopulateAuctions(ctx context.Context, repo *repository.MemoryRepo) {
	now := time.Now().UTC()
	auctions := []models.Auction{
		{AuctionID: "auction1", SellerID: "seller1", Title: "title1", Description: "description1", StartingBid: 100},
		{AuctionID: "auction2", SellerID: "seller1", Title: "title2", Description: "description2", StartingBid: 200, ReservePrice: models.Int64(500)},
		{AuctionID: "auction3", SellerID: "seller2", Title: "title3", Description: "description3", StartingBid: 150, BuyNowPrice: models.Int64(1000)},
	}

	for _, a := range auctions {
		a.Status = models.StatusActive
		a.StartsAt = now
		a.EndsAt = now.Add(24 * time.Hour)
		a.CreatedAt = now
		a.UpdatedAt = now
		if err := repo.CreateAuction(ctx, a); err != nil {
			utils.Warn("failed to seed auction", map[string]any{"auction_id": a.AuctionID, "error": err.Error()})
		}
	}
}
