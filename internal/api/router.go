package api

import (
	"github.com/gin-gonic/gin"

	"github.com/shieldfi/testnet-rewards/internal/websocket"
)

// SetupRouter initializes the Gin router and sets up the routes
func SetupRouter(svc RewardsService, wsManager *websocket.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(ErrorMiddleware())

	h := NewHandler(svc)

	// User-related routes
	r.GET("/user/:address", h.GetAccount)
	r.GET("/user/:address/activities", h.GetUserActivities)
	r.GET("/user/:address/rank", h.GetUserRank)
	r.GET("/user/:address/progress", h.GetTierProgress)

	// Award routes
	r.POST("/user/:address/deposit", h.AwardDeposit)
	r.POST("/user/:address/bridge", h.AwardBridge)
	r.POST("/user/:address/withdrawal", h.AwardWithdrawal)
	r.POST("/user/:address/login", h.AwardDailyLogin)
	r.POST("/user/:address/swap", h.AwardSwap)
	r.POST("/user/:address/boost", h.AwardBoost)
	r.POST("/user/:address/staking", h.AwardStakingDaily)
	r.POST("/user/:address/bug-report", h.AwardBugReport)
	r.POST("/user/:address/social-share", h.AwardSocialShare)
	r.POST("/user/:address/faucet-claim", h.AwardFaucetClaim)

	// Referral routes
	r.POST("/referral", h.ProcessReferral)
	r.GET("/referral/:code", h.ValidateReferralCode)

	// Leaderboard routes
	r.GET("/leaderboard", h.GetLeaderboard)
	r.GET("/leaderboard/stats", h.GetLeaderboardStats)

	// WebSocket route
	r.GET("/ws", func(c *gin.Context) {
		wsManager.HandleWebSocket(c.Writer, c.Request)
	})

	return r
}
