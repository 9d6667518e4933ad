package server

import (
	"net/http"

	handler "auction-bidding/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(CurrentUserMiddleware)

	biddingHandler := handler.NewBiddingHandler(biddingService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auctions := router.Group("/auctions")
	{
		auctions.POST("", biddingHandler.CreateAuctionHandler)
		auctions.GET("", biddingHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.POST("/:auction_id/publish", biddingHandler.PublishAuctionHandler)
		auctions.POST("/:auction_id/cancel", biddingHandler.CancelAuctionHandler)
		auctions.POST("/:auction_id/bids", biddingHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsHandler)
		auctions.POST("/:auction_id/buy-now", biddingHandler.BuyNowHandler)
		auctions.GET("/:auction_id/events", biddingHandler.StreamEventsHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/auctions", biddingHandler.GetBidderAuctionsHandler)
	}

	return router
}
