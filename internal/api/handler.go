package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shieldfi/testnet-rewards/internal/db"
	"github.com/shieldfi/testnet-rewards/internal/rewards"
	"github.com/shieldfi/testnet-rewards/internal/types"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	defaultActivityLimit    = 50
)

// RewardsService is the slice of the rewards engine the HTTP layer needs.
type RewardsService interface {
	GetOrCreateAccount(wallet string) (*db.PointsAccount, error)
	GetUserActivities(wallet string, limit int) ([]db.TestnetActivity, error)
	GetUserRank(wallet string) (int, error)
	GetLeaderboard(limit int) ([]db.LeaderboardEntry, error)
	GetLeaderboardStats() (*db.LeaderboardStats, error)
	ValidateReferralCode(code string) (*db.PointsAccount, error)
	ProcessReferral(referrerWallet, referredWallet string, refs types.CorrelationRefs) (bool, error)
	AwardDepositPoints(wallet string, amountUSD float64, refs types.CorrelationRefs) (*rewards.ActivityResult, error)
	AwardBridgePoints(wallet string, direction types.BridgeDirection, refs types.CorrelationRefs) (*rewards.ActivityResult, error)
	AwardWithdrawalPoints(wallet string, refs types.CorrelationRefs) (*rewards.ActivityResult, error)
	AwardDailyLoginPoints(wallet string) (*rewards.ActivityResult, error)
	AwardSwapPoints(wallet string, refs types.CorrelationRefs) (*rewards.ActivityResult, error)
	AwardBoostActivatedPoints(wallet string) (*rewards.ActivityResult, error)
	AwardStakingDailyPoints(wallet string) (*rewards.ActivityResult, error)
	AwardBugReportPoints(wallet, description string) (*rewards.ActivityResult, error)
	AwardSocialSharePoints(wallet string) (*rewards.ActivityResult, error)
	AwardFaucetClaimPoints(wallet string) (*rewards.ActivityResult, error)
}

// Handler exposes the rewards engine over HTTP.
type Handler struct {
	svc RewardsService
}

func NewHandler(svc RewardsService) *Handler {
	return &Handler{svc: svc}
}

// awardResponse renders an award outcome: a guard rejection is a defined
// no-op, not an error, so it still returns 200.
func awardResponse(c *gin.Context, result *rewards.ActivityResult, err error) {
	if err != nil {
		c.Error(err)
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"awarded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"awarded":        true,
		"points_awarded": result.PointsAwarded,
		"activity":       result.Activity,
		"account":        result.Account,
	})
}

// GetAccount handles GET /user/:address
func (h *Handler) GetAccount(c *gin.Context) {
	acct, err := h.svc.GetOrCreateAccount(c.Param("address"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

// GetUserActivities handles GET /user/:address/activities
func (h *Handler) GetUserActivities(c *gin.Context) {
	limit := parseLimit(c.DefaultQuery("limit", ""), defaultActivityLimit)
	activities, err := h.svc.GetUserActivities(c.Param("address"), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// GetUserRank handles GET /user/:address/rank
func (h *Handler) GetUserRank(c *gin.Context) {
	rank, err := h.svc.GetUserRank(c.Param("address"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rank": rank})
}

// GetTierProgress handles GET /user/:address/progress
func (h *Handler) GetTierProgress(c *gin.Context) {
	acct, err := h.svc.GetOrCreateAccount(c.Param("address"))
	if err != nil {
		c.Error(err)
		return
	}
	progress := rewards.NextTierProgress(acct.TotalPoints, rewards.Tier(acct.Tier))
	c.JSON(http.StatusOK, gin.H{
		"tier":             acct.Tier,
		"total_points":     acct.TotalPoints,
		"next_tier":        progress.NextTier,
		"points_needed":    progress.PointsNeeded,
		"progress_percent": progress.ProgressPercent,
	})
}

// GetLeaderboard handles GET /leaderboard
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := parseLimit(c.DefaultQuery("limit", ""), defaultLeaderboardLimit)
	leaderboard, err := h.svc.GetLeaderboard(limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": leaderboard})
}

// GetLeaderboardStats handles GET /leaderboard/stats
func (h *Handler) GetLeaderboardStats(c *gin.Context) {
	stats, err := h.svc.GetLeaderboardStats()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ValidateReferralCode handles GET /referral/:code
func (h *Handler) ValidateReferralCode(c *gin.Context) {
	acct, err := h.svc.ValidateReferralCode(c.Param("code"))
	if err != nil {
		c.Error(err)
		return
	}
	if acct == nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "referrer": acct.WalletAddress})
}

type referralRequest struct {
	Referrer string `json:"referrer" binding:"required"`
	Referred string `json:"referred" binding:"required"`
	TxHash   string `json:"tx_hash"`
}

// ProcessReferral handles POST /referral
func (h *Handler) ProcessReferral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "referrer and referred wallets are required"})
		return
	}
	bound, err := h.svc.ProcessReferral(req.Referrer, req.Referred, types.CorrelationRefs{TxHash: req.TxHash})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bound": bound})
}

type depositRequest struct {
	AmountUSD  float64 `json:"amount_usd" binding:"required,gt=0"`
	TxHash     string  `json:"tx_hash"`
	VaultID    string  `json:"vault_id"`
	PositionID string  `json:"position_id"`
}

// AwardDeposit handles POST /user/:address/deposit
func (h *Handler) AwardDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a positive amount_usd is required"})
		return
	}
	result, err := h.svc.AwardDepositPoints(c.Param("address"), req.AmountUSD, types.CorrelationRefs{
		TxHash:     req.TxHash,
		VaultID:    req.VaultID,
		PositionID: req.PositionID,
	})
	awardResponse(c, result, err)
}

type bridgeRequest struct {
	Direction string `json:"direction" binding:"required"`
	TxHash    string `json:"tx_hash"`
}

// AwardBridge handles POST /user/:address/bridge
func (h *Handler) AwardBridge(c *gin.Context) {
	var req bridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction is required"})
		return
	}
	result, err := h.svc.AwardBridgePoints(c.Param("address"),
		types.BridgeDirection(req.Direction), types.CorrelationRefs{TxHash: req.TxHash})
	awardResponse(c, result, err)
}

type correlationRequest struct {
	TxHash     string `json:"tx_hash"`
	VaultID    string `json:"vault_id"`
	PositionID string `json:"position_id"`
}

func (r correlationRequest) refs() types.CorrelationRefs {
	return types.CorrelationRefs{TxHash: r.TxHash, VaultID: r.VaultID, PositionID: r.PositionID}
}

// AwardWithdrawal handles POST /user/:address/withdrawal
func (h *Handler) AwardWithdrawal(c *gin.Context) {
	var req correlationRequest
	_ = c.ShouldBindJSON(&req)
	result, err := h.svc.AwardWithdrawalPoints(c.Param("address"), req.refs())
	awardResponse(c, result, err)
}

// AwardDailyLogin handles POST /user/:address/login
func (h *Handler) AwardDailyLogin(c *gin.Context) {
	result, err := h.svc.AwardDailyLoginPoints(c.Param("address"))
	awardResponse(c, result, err)
}

// AwardSwap handles POST /user/:address/swap
func (h *Handler) AwardSwap(c *gin.Context) {
	var req correlationRequest
	_ = c.ShouldBindJSON(&req)
	result, err := h.svc.AwardSwapPoints(c.Param("address"), req.refs())
	awardResponse(c, result, err)
}

// AwardBoost handles POST /user/:address/boost
func (h *Handler) AwardBoost(c *gin.Context) {
	result, err := h.svc.AwardBoostActivatedPoints(c.Param("address"))
	awardResponse(c, result, err)
}

// AwardStakingDaily handles POST /user/:address/staking
func (h *Handler) AwardStakingDaily(c *gin.Context) {
	result, err := h.svc.AwardStakingDailyPoints(c.Param("address"))
	awardResponse(c, result, err)
}

type bugReportRequest struct {
	Description string `json:"description" binding:"required"`
}

// AwardBugReport handles POST /user/:address/bug-report
func (h *Handler) AwardBugReport(c *gin.Context) {
	var req bugReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}
	result, err := h.svc.AwardBugReportPoints(c.Param("address"), req.Description)
	awardResponse(c, result, err)
}

// AwardSocialShare handles POST /user/:address/social-share
func (h *Handler) AwardSocialShare(c *gin.Context) {
	result, err := h.svc.AwardSocialSharePoints(c.Param("address"))
	awardResponse(c, result, err)
}

// AwardFaucetClaim handles POST /user/:address/faucet-claim
func (h *Handler) AwardFaucetClaim(c *gin.Context) {
	result, err := h.svc.AwardFaucetClaimPoints(c.Param("address"))
	awardResponse(c, result, err)
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return limit
}
