package perftests

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auction-bidding/internal/biddingerrors"
	bidding "auction-bidding/internal/biddingService"
)

// LoadScenario defines configurable benchmark parameters
type LoadScenario struct {
	Name            string
	NumAuctions     int
	ReadRatio       int // out of 10
	MaxBidIncrement int
	Burst           bool // if true, no delay between ops
}

// OperationMetrics collects latencies safely
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (min, max, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return
	}
	latencies := append([]time.Duration(nil), om.latencies...)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)))]
	p99 = latencies[int(0.99*float64(len(latencies)))]
	return
}

// Benchmark_Load_BiddingSystem runs multiple scenarios
func Benchmark_Load_BiddingSystem(b *testing.B) {
	scenarios := []LoadScenario{
		{"Low-Contention-WriteHeavy", 200, 0, 50, false},
		{"High-Contention-WriteHeavy", 10, 0, 20, false},
		{"Mixed-Workload", 50, 7, 30, false},
		{"ReadHeavy", 50, 9, 20, false},
		{"Edge-Case-SingleAuction", 1, 5, 10, false},
		{"Peak-Burst", 50, 0, 20, true},
	}

	for _, s := range scenarios {
		b.Run(s.Name, func(b *testing.B) {
			runParallelScenario(b, s)
		})
	}
}

func runParallelScenario(b *testing.B, s LoadScenario) {
	b.ReportAllocs()

	svc, _ := newBenchService(s.NumAuctions)
	ctx := context.Background()

	var totalOps, acceptedBids, tooLowBids, failedBids, totalReads int64
	auctionSuccess := make([]int64, s.NumAuctions)
	lastOffered := make([]int64, s.NumAuctions)
	for i := range lastOffered {
		lastOffered[i] = startingBid
	}
	metrics := &OperationMetrics{}

	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(time.Now().Nanosecond())))

		for pb.Next() {
			auctionIndex := rnd.Intn(s.NumAuctions)
			auctionID := fmt.Sprintf("auction_%d", auctionIndex)
			opType := rnd.Intn(10)

			opStart := time.Now()
			if opType < s.ReadRatio {
				if _, err := svc.GetAuctionState(ctx, auctionID, ""); err != nil {
					b.Logf("ignored read error: %v", err)
				}
				atomic.AddInt64(&totalReads, 1)
			} else {
				amount := atomic.AddInt64(&lastOffered[auctionIndex],
					bidding.DefaultMinIncrement+int64(rnd.Intn(s.MaxBidIncrement)))
				userID := fmt.Sprintf("user_%d", rnd.Int())
				_, err := svc.PlaceBid(ctx, auctionID, userID, amount)
				switch {
				case err == nil:
					atomic.AddInt64(&acceptedBids, 1)
					atomic.AddInt64(&auctionSuccess[auctionIndex], 1)
				case errors.Is(err, biddingerrors.ErrBidTooLow):
					// lost the race to a concurrent higher bid
					atomic.AddInt64(&tooLowBids, 1)
				default:
					b.Logf("ignored bid error: %v", err)
					atomic.AddInt64(&failedBids, 1)
				}
			}

			metrics.Record(time.Since(opStart))
			atomic.AddInt64(&totalOps, 1)

			if !s.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	throughput := float64(totalOps) / elapsed.Seconds()
	min, max, avg, p95, p99 := metrics.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf(
		"Scenario: %s | Auctions: %d | Total Ops: %d | Accepted Bids: %d | Outbid: %d | Failed Bids: %d | Reads: %d | Elapsed: %s | Throughput: %.2f ops/sec | Latency(us) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f | Memory Alloc: %.2f MB",
		s.Name, s.NumAuctions, totalOps, acceptedBids, tooLowBids, failedBids, totalReads, elapsed,
		throughput,
		float64(min.Microseconds()), float64(avg.Microseconds()), float64(max.Microseconds()),
		float64(p95.Microseconds()), float64(p99.Microseconds()),
		float64(mem.Alloc)/1024/1024,
	)

	if failedBids > 0 {
		b.Errorf("%d bids failed for reasons other than being outbid", failedBids)
	}
	for i, v := range auctionSuccess {
		if v > 0 {
			b.Logf("Auction %d accepted bids: %d", i, v)
		}
	}
}
