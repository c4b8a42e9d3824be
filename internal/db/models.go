package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType tags a point-earning action in the ledger.
type ActivityType string

const (
	ActivityDeposit        ActivityType = "deposit"
	ActivityFirstDeposit   ActivityType = "first_deposit"
	ActivityWithdrawal     ActivityType = "withdrawal"
	ActivityStakeShield    ActivityType = "stake_shield"
	ActivityBridgeXRPLFlr  ActivityType = "bridge_xrpl_flare"
	ActivityBridgeFlrXRPL  ActivityType = "bridge_flare_xrpl"
	ActivityReferral       ActivityType = "referral"
	ActivityBugReport      ActivityType = "bug_report"
	ActivitySocialShare    ActivityType = "social_share"
	ActivityDailyLogin     ActivityType = "daily_login"
	ActivitySwap           ActivityType = "swap"
	ActivityBoostActivated ActivityType = "boost_activated"
	ActivityFaucetClaim    ActivityType = "faucet_claim"
)

// PointCategory selects which subtotal column an award increments.
type PointCategory string

const (
	CategoryDeposit   PointCategory = "deposit_points"
	CategoryStaking   PointCategory = "staking_points"
	CategoryBridge    PointCategory = "bridge_points"
	CategoryReferral  PointCategory = "referral_points"
	CategoryBugReport PointCategory = "bug_report_points"
	CategorySocial    PointCategory = "social_points"
	CategoryOther     PointCategory = "other_points"
)

// PointsAccount is the per-wallet aggregate row. The wallet address is
// stored case-folded and is the primary key.
type PointsAccount struct {
	WalletAddress   string          `json:"wallet_address"`
	TotalPoints     int64           `json:"total_points"`
	DepositPoints   int64           `json:"deposit_points"`
	StakingPoints   int64           `json:"staking_points"`
	BridgePoints    int64           `json:"bridge_points"`
	ReferralPoints  int64           `json:"referral_points"`
	BugReportPoints int64           `json:"bug_report_points"`
	SocialPoints    int64           `json:"social_points"`
	OtherPoints     int64           `json:"other_points"`
	Tier            string          `json:"tier"`
	Multiplier      decimal.Decimal `json:"multiplier"`
	ReferralCode    string          `json:"referral_code"`
	ReferralCount   int             `json:"referral_count"`
	ReferredBy      string          `json:"referred_by,omitempty"`
	ReferralTxHash  string          `json:"referral_tx_hash,omitempty"`
	IsOG            bool            `json:"is_og"`
	Badges          []string        `json:"badges"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TestnetActivity is one immutable ledger row. Rows are never updated or
// deleted once written.
type TestnetActivity struct {
	ID            string                 `json:"id"`
	WalletAddress string                 `json:"wallet_address"`
	ActivityType  ActivityType           `json:"activity_type"`
	PointsEarned  int64                  `json:"points_earned"`
	TxHash        string                 `json:"tx_hash,omitempty"`
	VaultID       string                 `json:"vault_id,omitempty"`
	PositionID    string                 `json:"position_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Description   string                 `json:"description,omitempty"`
	DayBucket     time.Time              `json:"day_bucket"`
	CreatedAt     time.Time              `json:"created_at"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	WalletAddress string `json:"wallet_address"`
	TotalPoints   int64  `json:"total_points"`
	Tier          string `json:"tier"`
	IsOG          bool   `json:"is_og"`
}

// LeaderboardStats aggregates the whole program.
type LeaderboardStats struct {
	Participants int64            `json:"participants"`
	TotalPoints  int64            `json:"total_points"`
	TierCounts   map[string]int64 `json:"tier_counts"`
}
