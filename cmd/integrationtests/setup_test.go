package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	bidding "auction-bidding/internal/biddingService"
	"auction-bidding/internal/clock"
	"auction-bidding/internal/models"
	"auction-bidding/internal/notifier"
	"auction-bidding/internal/repository"
	"auction-bidding/internal/server"
	"auction-bidding/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// testNow is the fixed instant the fake clock starts at
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testEnv is a full router over the in-memory store with a controllable clock
type testEnv struct {
	router *gin.Engine
	clock  *clock.Fake
	svc    *bidding.BiddingService
}

// SetupTestRouterWithAuctions initializes the router and seeds the repo with
// auctions. Unset fields default to an active auction open for one hour.
func SetupTestRouterWithAuctions(t *testing.T, auctions ...models.Auction) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, a := range auctions {
		if a.Status == "" {
			a.Status = models.StatusActive
		}
		if a.SellerID == "" {
			a.SellerID = "seller"
		}
		if a.StartsAt.IsZero() {
			a.StartsAt = testNow.Add(-time.Minute)
		}
		if a.EndsAt.IsZero() {
			a.EndsAt = testNow.Add(time.Hour)
		}
		require.NoError(t, repo.CreateAuction(context.Background(), a))
	}

	clk := clock.NewFake(testNow)
	hub := notifier.NewHub(64, time.Second)
	t.Cleanup(hub.Close)

	svc := bidding.NewBiddingService(repo, hub, hub, clk, bidding.Options{MinIncrement: 50, RecentBids: 10})
	return testEnv{router: server.SetupRouter(svc), clock: clk, svc: svc}
}

// ExecuteRequestAndParse executes an HTTP request as userID and parses the
// response. For 201 responses the data object is returned.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, userID string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(helpers.UserHeader, userID)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if w.Code == 201 {
			resp = resp["data"].(map[string]any)
		}
	}

	return resp, w
}

// placeBid posts a bid and returns the parsed response
func placeBid(t *testing.T, env testEnv, auctionID, bidderID string, amount int64) (map[string]any, *httptest.ResponseRecorder) {
	return ExecuteRequestAndParse(t, env.router, "POST", "/auctions/"+auctionID+"/bids", bidderID,
		map[string]any{"amount": amount})
}

// auctionState fetches the auction as viewerID and returns its data object
func auctionState(t *testing.T, env testEnv, auctionID, viewerID string) map[string]any {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, env.router, "GET", "/auctions/"+auctionID, viewerID, nil)
	require.Equal(t, 200, w.Code)
	return resp["data"].(map[string]any)
}
