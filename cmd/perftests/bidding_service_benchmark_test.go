package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	bidding "auction-bidding/internal/biddingService"
	"auction-bidding/internal/clock"
	"auction-bidding/internal/models"
	"auction-bidding/internal/notifier"
	"auction-bidding/internal/repository"
)

const startingBid = 100

// newBenchService creates a service over the in-memory store with
// numAuctions active auctions named auction_0..auction_N-1.
func newBenchService(numAuctions int) (*bidding.BiddingService, *notifier.Hub) {
	repo := repository.NewMemoryRepo()
	hub := notifier.NewHub(256, time.Second)
	svc := bidding.NewBiddingService(repo, hub, hub, clock.System{}, bidding.Options{})

	now := time.Now().UTC()
	for i := 0; i < numAuctions; i++ {
		_ = repo.CreateAuction(context.Background(), models.Auction{
			AuctionID:   fmt.Sprintf("auction_%d", i),
			SellerID:    "bench_seller",
			Title:       fmt.Sprintf("Benchmark auction %d", i),
			StartingBid: startingBid,
			Status:      models.StatusActive,
			StartsAt:    now.Add(-time.Minute),
			EndsAt:      now.Add(24 * time.Hour),
		})
	}
	return svc, hub
}

// Benchmark 1: PlaceBid - Isolated Auctions (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	svc, _ := newBenchService(b.N)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		userID := fmt.Sprintf("user_%d", i)
		auctionID := fmt.Sprintf("auction_%d", i)
		amount := startingBid + bidding.DefaultMinIncrement + int64(rand.Intn(100))
		if _, err := svc.PlaceBid(ctx, auctionID, userID, amount); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - Shared Auction (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedAuction(b *testing.B) {
	svc, _ := newBenchService(1)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = startingBid
	var accepted int64

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			userID := fmt.Sprintf("user_parallel_%d", rnd.Int())
			nextBid := atomic.AddInt64(&lastBid, bidding.DefaultMinIncrement+int64(rnd.Intn(5)))
			if _, err := svc.PlaceBid(ctx, "auction_0", userID, nextBid); err == nil {
				atomic.AddInt64(&accepted, 1)
			}
		}
	})
	b.ReportMetric(float64(accepted)/float64(b.N), "accepted/op")
}

// Benchmark 3: GetAuctionState - Single - Threaded (Low Contention)
func Benchmark_GetAuctionState_SingleThreaded(b *testing.B) {
	svc, _ := newBenchService(b.N)
	ctx := context.Background()

	for i := 0; i < b.N; i++ {
		auctionID := fmt.Sprintf("auction_%d", i)
		for j := 1; j <= 10; j++ {
			userID := fmt.Sprintf("user_%d_%d", i, j)
			_, _ = svc.PlaceBid(ctx, auctionID, userID, startingBid+int64(j)*bidding.DefaultMinIncrement)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		auctionID := fmt.Sprintf("auction_%d", i)
		if _, err := svc.GetAuctionState(ctx, auctionID, ""); err != nil {
			b.Fatalf("failed to get auction state: %v", err)
		}
	}
}

// Benchmark 4: GetAuctionState - Concurrent (High Contention)
func Benchmark_GetAuctionState_ConcurrentSharedAuction(b *testing.B) {
	svc, _ := newBenchService(1)
	ctx := context.Background()

	for j := 1; j <= 100; j++ {
		userID := fmt.Sprintf("user_%d", j)
		_, _ = svc.PlaceBid(ctx, "auction_0", userID, startingBid+int64(j)*bidding.DefaultMinIncrement)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.GetAuctionState(ctx, "auction_0", ""); err != nil {
				b.Errorf("failed to get auction state: %v", err)
				return
			}
		}
	})
}

// Benchmark 5: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedAuction(b *testing.B) {
	svc, _ := newBenchService(1)
	ctx := context.Background()

	var lastBid int64 = startingBid
	for j := 0; j < 50; j++ {
		userID := fmt.Sprintf("user_seed_%d", j)
		_, _ = svc.PlaceBid(ctx, "auction_0", userID, atomic.AddInt64(&lastBid, bidding.DefaultMinIncrement))
	}

	b.ReportAllocs()
	b.ResetTimer()

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			if rnd.Intn(10) < 3 {
				userID := fmt.Sprintf("user_writer_%d", rnd.Int())
				nextBid := atomic.AddInt64(&lastBid, bidding.DefaultMinIncrement+int64(rnd.Intn(5)))
				_, _ = svc.PlaceBid(ctx, "auction_0", userID, nextBid)
				continue
			}
			_, _ = svc.GetAuctionState(ctx, "auction_0", "")
		}
	})
}

// Benchmark 6: Event fan-out to many live subscribers of one auction
func Benchmark_Hub_FanOut(b *testing.B) {
	for _, subscribers := range []int{1, 100, 1000} {
		b.Run(fmt.Sprintf("subscribers_%d", subscribers), func(b *testing.B) {
			hub := notifier.NewHub(1024, time.Second)
			defer hub.Close()
			for i := 0; i < subscribers; i++ {
				sub := hub.Subscribe("auction_0", 0)
				go func() {
					for range sub.C() {
					}
				}()
			}

			b.ReportAllocs()
			b.ResetTimer()

			for i := 1; i <= b.N; i++ {
				hub.Publish(models.Event{
					Type:      models.EventBidAccepted,
					AuctionID: "auction_0",
					Version:   int64(i),
					Amount:    int64(i) * bidding.DefaultMinIncrement,
				})
			}
		})
	}
}
