package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/shieldfi/testnet-rewards/internal/errors"
)

const accountColumns = `wallet_address, total_points, deposit_points, staking_points,
	bridge_points, referral_points, bug_report_points, social_points, other_points,
	tier, multiplier, referral_code, referral_count, COALESCE(referred_by, ''),
	COALESCE(referral_tx_hash, ''), is_og, badges, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*PointsAccount, error) {
	var a PointsAccount
	err := row.Scan(
		&a.WalletAddress, &a.TotalPoints, &a.DepositPoints, &a.StakingPoints,
		&a.BridgePoints, &a.ReferralPoints, &a.BugReportPoints, &a.SocialPoints, &a.OtherPoints,
		&a.Tier, &a.Multiplier, &a.ReferralCode, &a.ReferralCount, &a.ReferredBy,
		&a.ReferralTxHash, &a.IsOG, pq.Array(&a.Badges), &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// categoryColumn guards the interpolated column name. Only the seven known
// subtotal columns may ever reach the UPDATE statement.
func categoryColumn(category PointCategory) (string, error) {
	switch category {
	case CategoryDeposit, CategoryStaking, CategoryBridge, CategoryReferral,
		CategoryBugReport, CategorySocial, CategoryOther:
		return string(category), nil
	default:
		return "", fmt.Errorf("unknown point category: %q", category)
	}
}

// GetAccount retrieves an account by its normalized wallet address.
func (s *DBServiceImpl) GetAccount(wallet string) (*PointsAccount, error) {
	row := s.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE wallet_address = $1`, wallet)
	acct, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "account", Identifier: wallet}
	}
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "get account", Err: err}
	}
	return acct, nil
}

// CreateAccount inserts a fresh account row with zero totals.
func (s *DBServiceImpl) CreateAccount(wallet, referralCode string) (*PointsAccount, error) {
	row := s.db.QueryRow(`
		INSERT INTO accounts (wallet_address, referral_code)
		VALUES ($1, $2)
		RETURNING `+accountColumns, wallet, referralCode)
	acct, err := scanAccount(row)
	if err != nil {
		switch uniqueViolation(err) {
		case constraintAccountPK:
			return nil, ErrAccountExists
		case constraintReferralCode:
			return nil, ErrDuplicateReferralCode
		}
		return nil, &errors.DatabaseError{Operation: "create account", Err: err}
	}
	return acct, nil
}

// GetAccountByReferralCode does an exact-match lookup; the caller is
// responsible for upper-casing the entered code first.
func (s *DBServiceImpl) GetAccountByReferralCode(code string) (*PointsAccount, error) {
	row := s.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code)
	acct, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "referral code", Identifier: code}
	}
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "get account by referral code", Err: err}
	}
	return acct, nil
}

// SetReferredBy binds the referrer with first-write-wins semantics: the
// WHERE clause only matches while referred_by is still NULL, so a second
// binding attempt affects zero rows. The binding transaction hash rides
// along and is attached to the referral activity when the credit fires.
func (s *DBServiceImpl) SetReferredBy(wallet, referrer, bindTxHash string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE accounts
		SET referred_by = $2, referral_tx_hash = NULLIF($3, ''), updated_at = NOW()
		WHERE wallet_address = $1 AND referred_by IS NULL`, wallet, referrer, bindTxHash)
	if err != nil {
		return false, &errors.DatabaseError{Operation: "set referred_by", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &errors.DatabaseError{Operation: "set referred_by rows affected", Err: err}
	}
	return n == 1, nil
}

func (s *DBServiceImpl) IncrementReferralCount(wallet string) error {
	_, err := s.db.Exec(`
		UPDATE accounts
		SET referral_count = referral_count + 1, updated_at = NOW()
		WHERE wallet_address = $1`, wallet)
	if err != nil {
		return &errors.DatabaseError{Operation: "increment referral count", Err: err}
	}
	return nil
}

func (s *DBServiceImpl) UpdateTier(wallet, tier string, multiplier decimal.Decimal, isOG bool) error {
	_, err := s.db.Exec(`
		UPDATE accounts
		SET tier = $2, multiplier = $3, is_og = $4, updated_at = NOW()
		WHERE wallet_address = $1`, wallet, tier, multiplier, isOG)
	if err != nil {
		return &errors.DatabaseError{Operation: "update tier", Err: err}
	}
	return nil
}

func (s *DBServiceImpl) HasActivity(wallet string, activityType ActivityType) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM activities WHERE wallet_address = $1 AND activity_type = $2
		)`, wallet, string(activityType)).Scan(&exists)
	if err != nil {
		return false, &errors.DatabaseError{Operation: "check activity existence", Err: err}
	}
	return exists, nil
}

func (s *DBServiceImpl) HasActivityOnDay(wallet string, activityType ActivityType, day time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM activities
			WHERE wallet_address = $1 AND activity_type = $2 AND day_bucket = $3
		)`, wallet, string(activityType), day.UTC().Format("2006-01-02")).Scan(&exists)
	if err != nil {
		return false, &errors.DatabaseError{Operation: "check daily activity existence", Err: err}
	}
	return exists, nil
}

// RecordActivityAndUpdatePoints appends the ledger row and increments the
// wallet's totals in one transaction. The points increment is a single
// UPDATE statement so concurrent awards for the same wallet cannot drop
// points, and the guard's partial unique indexes make dedup authoritative:
// a violated guard constraint rolls the whole transaction back and surfaces
// as ErrDuplicateActivity.
func (s *DBServiceImpl) RecordActivityAndUpdatePoints(activity *TestnetActivity, category PointCategory) (*PointsAccount, error) {
	col, err := categoryColumn(category)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	var metadata []byte
	if activity.Metadata != nil {
		metadata, err = json.Marshal(activity.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal activity metadata: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO activities (id, wallet_address, activity_type, points_earned,
			tx_hash, vault_id, position_id, metadata, description, day_bucket)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`,
		activity.ID, activity.WalletAddress, string(activity.ActivityType), activity.PointsEarned,
		activity.TxHash, activity.VaultID, activity.PositionID, metadata, activity.Description,
		activity.DayBucket.UTC().Format("2006-01-02"))
	if err != nil {
		switch uniqueViolation(err) {
		case constraintOnceEver, constraintOnceDaily, constraintDepositTx:
			return nil, ErrDuplicateActivity
		}
		return nil, &errors.DatabaseError{Operation: "insert activity", Err: err}
	}

	row := tx.QueryRow(fmt.Sprintf(`
		UPDATE accounts
		SET total_points = total_points + $2, %s = %s + $2, updated_at = NOW()
		WHERE wallet_address = $1
		RETURNING `+accountColumns, col, col),
		activity.WalletAddress, activity.PointsEarned)
	acct, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "account", Identifier: activity.WalletAddress}
	}
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "update points", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &errors.DatabaseError{Operation: "commit activity", Err: err}
	}
	return acct, nil
}

// GetUserActivities returns the wallet's ledger rows, newest first.
func (s *DBServiceImpl) GetUserActivities(wallet string, limit int) ([]TestnetActivity, error) {
	rows, err := s.db.Query(`
		SELECT id, wallet_address, activity_type, points_earned,
			COALESCE(tx_hash, ''), COALESCE(vault_id, ''), COALESCE(position_id, ''),
			metadata, description, day_bucket, created_at
		FROM activities
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2`, wallet, limit)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query user activities", Err: err}
	}
	defer rows.Close()

	var activities []TestnetActivity
	for rows.Next() {
		var a TestnetActivity
		var activityType string
		var metadata []byte
		if err := rows.Scan(&a.ID, &a.WalletAddress, &activityType, &a.PointsEarned,
			&a.TxHash, &a.VaultID, &a.PositionID, &metadata, &a.Description,
			&a.DayBucket, &a.CreatedAt); err != nil {
			return nil, &errors.DatabaseError{Operation: "scan activity", Err: err}
		}
		a.ActivityType = ActivityType(activityType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal activity metadata: %w", err)
			}
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.DatabaseError{Operation: "iterate activities", Err: err}
	}
	return activities, nil
}

// GetLeaderboard returns the top accounts with competition ranks: RANK()
// assigns tied totals the same rank and skips the gap after a tied group.
func (s *DBServiceImpl) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT RANK() OVER (ORDER BY total_points DESC), wallet_address, total_points, tier, is_og
		FROM accounts
		ORDER BY total_points DESC, wallet_address
		LIMIT $1`, limit)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query leaderboard", Err: err}
	}
	defer rows.Close()

	var leaderboard []LeaderboardEntry
	for rows.Next() {
		var entry LeaderboardEntry
		if err := rows.Scan(&entry.Rank, &entry.WalletAddress, &entry.TotalPoints, &entry.Tier, &entry.IsOG); err != nil {
			return nil, &errors.DatabaseError{Operation: "scan leaderboard entry", Err: err}
		}
		leaderboard = append(leaderboard, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.DatabaseError{Operation: "iterate leaderboard", Err: err}
	}
	return leaderboard, nil
}

func (s *DBServiceImpl) GetLeaderboardStats() (*LeaderboardStats, error) {
	stats := &LeaderboardStats{TierCounts: make(map[string]int64)}

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(total_points), 0) FROM accounts`).
		Scan(&stats.Participants, &stats.TotalPoints)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query leaderboard stats", Err: err}
	}

	rows, err := s.db.Query(`SELECT tier, COUNT(*) FROM accounts GROUP BY tier`)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query tier histogram", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tier string
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, &errors.DatabaseError{Operation: "scan tier histogram", Err: err}
		}
		stats.TierCounts[tier] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.DatabaseError{Operation: "iterate tier histogram", Err: err}
	}
	return stats, nil
}

// GetUserRank computes the wallet's competition rank: one more than the
// number of accounts with strictly more points.
func (s *DBServiceImpl) GetUserRank(wallet string) (int, error) {
	acct, err := s.GetAccount(wallet)
	if err != nil {
		return 0, err
	}

	var ahead int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM accounts WHERE total_points > $1`, acct.TotalPoints).
		Scan(&ahead)
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "count higher-ranked accounts", Err: err}
	}
	return ahead + 1, nil
}
