package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// DBService defines the store operations the rewards engine needs. All
// durable state lives behind this interface; the engine itself is
// stateless between calls.
type DBService interface {
	// GetAccount fetches an account or returns a NotFoundError.
	GetAccount(wallet string) (*PointsAccount, error)
	// CreateAccount inserts a new account with the given referral code.
	// Returns ErrDuplicateReferralCode if the code is already taken and
	// ErrAccountExists if the wallet already has an account.
	CreateAccount(wallet, referralCode string) (*PointsAccount, error)
	// GetAccountByReferralCode does an exact-match lookup on the code.
	GetAccountByReferralCode(code string) (*PointsAccount, error)
	// SetReferredBy binds the referrer, first write wins. Returns false
	// when referred_by was already set. An optional binding transaction
	// hash is stored alongside for the eventual referral activity.
	SetReferredBy(wallet, referrer, bindTxHash string) (bool, error)
	// IncrementReferralCount bumps the referrer's referral_count by one.
	IncrementReferralCount(wallet string) error
	// UpdateTier writes the derived tier fields after a reclassification.
	UpdateTier(wallet, tier string, multiplier decimal.Decimal, isOG bool) error

	// HasActivity reports whether any ledger row of the given type exists
	// for the wallet.
	HasActivity(wallet string, activityType ActivityType) (bool, error)
	// HasActivityOnDay reports whether a ledger row of the given type
	// exists for the wallet in the given UTC day bucket.
	HasActivityOnDay(wallet string, activityType ActivityType, day time.Time) (bool, error)
	// RecordActivityAndUpdatePoints appends the ledger row and atomically
	// increments total_points plus the category subtotal in one
	// transaction. Returns the account state after the increment, or
	// ErrDuplicateActivity if a guard uniqueness constraint rejected the
	// insert.
	RecordActivityAndUpdatePoints(activity *TestnetActivity, category PointCategory) (*PointsAccount, error)
	// GetUserActivities returns the wallet's ledger rows, newest first.
	GetUserActivities(wallet string, limit int) ([]TestnetActivity, error)

	// GetLeaderboard returns the top accounts by total points descending.
	GetLeaderboard(limit int) ([]LeaderboardEntry, error)
	// GetLeaderboardStats aggregates participants, points and tier counts.
	GetLeaderboardStats() (*LeaderboardStats, error)
	// GetUserRank returns the wallet's competition rank: ties share a
	// rank and the rank after a tied group skips the gap.
	GetUserRank(wallet string) (int, error)

	Close() error
}
