package rewards

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shieldfi/testnet-rewards/internal/db"
	apperrors "github.com/shieldfi/testnet-rewards/internal/errors"
	"github.com/shieldfi/testnet-rewards/internal/types"
	"github.com/shieldfi/testnet-rewards/pkg/logger"
)

// EventSink receives live updates produced by the engine. Implemented by
// the websocket manager; a nil sink disables broadcasting.
type EventSink interface {
	BroadcastPointsUpdate(wallet string, totalPoints int64, tier string) error
	BroadcastTierPromotion(wallet string, tier string, multiplier decimal.Decimal) error
}

// Service is the rewards engine. It is stateless between calls: all
// durable state lives behind the store, so any number of instances may run
// concurrently.
type Service struct {
	store  db.DBService
	events EventSink
}

func NewService(store db.DBService, events EventSink) *Service {
	return &Service{store: store, events: events}
}

// LogActivityInput describes one point-earning event to record.
type LogActivityInput struct {
	Wallet         string
	Type           db.ActivityType
	PointsOverride *int64
	Refs           types.CorrelationRefs
	Metadata       map[string]interface{}
	Description    string
}

// ActivityResult is returned for an accepted award. A nil result with a
// nil error means the guard rejected the activity (already claimed); that
// is a defined no-op, not a failure.
type ActivityResult struct {
	Activity      *db.TestnetActivity
	Account       *db.PointsAccount
	PointsAwarded int64
}

// NormalizeWallet validates and case-folds an EVM wallet address so that
// differently-cased representations resolve to one account.
func NormalizeWallet(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", &apperrors.ValidationError{Field: "wallet address", Message: addr}
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// LogActivity records one activity through the dedup guard, appends the
// ledger row, updates the wallet's totals atomically and reclassifies the
// tier. The existence check ahead of the insert is a fast path; the
// store's uniqueness constraints decide duplicates authoritatively, and a
// lost race comes back as the same no-op result.
func (s *Service) LogActivity(in LogActivityInput) (*ActivityResult, error) {
	wallet, err := NormalizeWallet(in.Wallet)
	if err != nil {
		return nil, err
	}

	cfg, ok := ConfigFor(in.Type)
	if !ok {
		return nil, &apperrors.ValidationError{Field: "activity type", Message: string(in.Type)}
	}

	acct, err := s.ensureAccount(wallet)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch PolicyFor(in.Type) {
	case GuardOneTimeEver:
		exists, err := s.store.HasActivity(wallet, in.Type)
		if err != nil {
			return nil, err
		}
		if exists {
			logger.Debug("activity %s already claimed by %s", in.Type, wallet)
			return nil, nil
		}
	case GuardOncePerDay:
		exists, err := s.store.HasActivityOnDay(wallet, in.Type, now)
		if err != nil {
			return nil, err
		}
		if exists {
			logger.Debug("activity %s already claimed today by %s", in.Type, wallet)
			return nil, nil
		}
	}

	points := cfg.BasePoints
	if in.PointsOverride != nil {
		points = *in.PointsOverride
	}
	description := in.Description
	if description == "" {
		description = cfg.Description
	}

	activity := &db.TestnetActivity{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		ActivityType:  in.Type,
		PointsEarned:  points,
		TxHash:        in.Refs.TxHash,
		VaultID:       in.Refs.VaultID,
		PositionID:    in.Refs.PositionID,
		Metadata:      in.Metadata,
		Description:   description,
		DayBucket:     now,
		CreatedAt:     now,
	}

	updated, err := s.store.RecordActivityAndUpdatePoints(activity, CategoryFor(in.Type))
	if errors.Is(err, db.ErrDuplicateActivity) {
		// a concurrent call won the insert race
		logger.Debug("activity %s for %s lost dedup race", in.Type, wallet)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	updated, err = s.reclassify(updated)
	if err != nil {
		return nil, err
	}

	// A first deposit by a referred wallet triggers the referrer's credit.
	// The two steps are deliberately not one transaction: a failure here
	// leaves the committed bonus in place and is logged for reconciliation.
	if in.Type == db.ActivityFirstDeposit && acct.ReferredBy != "" {
		s.creditReferrer(acct.ReferredBy, wallet, acct.ReferralTxHash)
	}

	if s.events != nil {
		if err := s.events.BroadcastPointsUpdate(wallet, updated.TotalPoints, updated.Tier); err != nil {
			logger.Warn("failed to broadcast points update for %s: %v", wallet, err)
		}
	}

	return &ActivityResult{Activity: activity, Account: updated, PointsAwarded: points}, nil
}

// reclassify re-runs the tier classifier on the committed total and writes
// the derived fields when the tier moved.
func (s *Service) reclassify(acct *db.PointsAccount) (*db.PointsAccount, error) {
	tier, multiplier := Classify(acct.TotalPoints)
	if string(tier) == acct.Tier {
		return acct, nil
	}

	og := IsOG(tier)
	if err := s.store.UpdateTier(acct.WalletAddress, string(tier), multiplier, og); err != nil {
		return nil, err
	}
	logger.Info("wallet %s promoted to %s tier", acct.WalletAddress, tier)

	acct.Tier = string(tier)
	acct.Multiplier = multiplier
	acct.IsOG = og

	if s.events != nil {
		if err := s.events.BroadcastTierPromotion(acct.WalletAddress, string(tier), multiplier); err != nil {
			logger.Warn("failed to broadcast tier promotion for %s: %v", acct.WalletAddress, err)
		}
	}
	return acct, nil
}

// ensureAccount lazily creates the wallet's account with a fresh referral
// code, retrying on a code collision.
func (s *Service) ensureAccount(wallet string) (*db.PointsAccount, error) {
	acct, err := s.store.GetAccount(wallet)
	if err == nil {
		return acct, nil
	}
	var notFound *apperrors.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		acct, err = s.store.CreateAccount(wallet, NewReferralCode())
		if err == nil {
			return acct, nil
		}
		if errors.Is(err, db.ErrAccountExists) {
			// a concurrent call created it first
			return s.store.GetAccount(wallet)
		}
		if errors.Is(err, db.ErrDuplicateReferralCode) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("could not generate a unique referral code for %s after %d attempts",
		wallet, referralCodeAttempts)
}

// creditReferrer bumps the referrer's count and awards the referral bonus,
// carrying the binding transaction hash recorded when the referral was
// bound. Failures are logged, never propagated: the referred wallet's
// bonus is already committed.
func (s *Service) creditReferrer(referrer, referred, bindTxHash string) {
	if err := s.store.IncrementReferralCount(referrer); err != nil {
		logger.Error("failed to increment referral count for %s: %v", referrer, err)
		return
	}
	_, err := s.LogActivity(LogActivityInput{
		Wallet:      referrer,
		Type:        db.ActivityReferral,
		Refs:        types.CorrelationRefs{TxHash: bindTxHash},
		Metadata:    map[string]interface{}{"referred_wallet": referred},
		Description: "Referral bonus for " + referred,
	})
	if err != nil {
		logger.Error("failed to credit referral bonus to %s: %v", referrer, err)
	}
}

// AwardDepositPoints awards amount-scaled deposit points and, when this is
// the wallet's first qualifying deposit, the separate one-time
// first-deposit bonus.
func (s *Service) AwardDepositPoints(wallet string, amountUSD float64, refs types.CorrelationRefs) (*ActivityResult, error) {
	cfg, _ := ConfigFor(db.ActivityDeposit)
	points := int64(math.Floor(amountUSD/depositUSDUnit)) * cfg.BasePoints

	res, err := s.LogActivity(LogActivityInput{
		Wallet:         wallet,
		Type:           db.ActivityDeposit,
		PointsOverride: &points,
		Refs:           refs,
		Metadata:       map[string]interface{}{"amount_usd": amountUSD},
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.LogActivity(LogActivityInput{
		Wallet: wallet,
		Type:   db.ActivityFirstDeposit,
		Refs:   refs,
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// AwardBridgePoints awards points for one bridge transfer in either
// direction.
func (s *Service) AwardBridgePoints(wallet string, direction types.BridgeDirection, refs types.CorrelationRefs) (*ActivityResult, error) {
	var activityType db.ActivityType
	switch direction {
	case types.BridgeXRPLToFlare:
		activityType = db.ActivityBridgeXRPLFlr
	case types.BridgeFlareToXRPL:
		activityType = db.ActivityBridgeFlrXRPL
	default:
		return nil, &apperrors.ValidationError{Field: "bridge direction", Message: string(direction)}
	}
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: activityType, Refs: refs})
}

func (s *Service) AwardWithdrawalPoints(wallet string, refs types.CorrelationRefs) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivityWithdrawal, Refs: refs})
}

func (s *Service) AwardDailyLoginPoints(wallet string) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivityDailyLogin})
}

func (s *Service) AwardSwapPoints(wallet string, refs types.CorrelationRefs) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivitySwap, Refs: refs})
}

func (s *Service) AwardBoostActivatedPoints(wallet string) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivityBoostActivated})
}

func (s *Service) AwardStakingDailyPoints(wallet string) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivityStakeShield})
}

func (s *Service) AwardBugReportPoints(wallet, description string) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivityBugReport, Description: description})
}

func (s *Service) AwardSocialSharePoints(wallet string) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivitySocialShare})
}

func (s *Service) AwardFaucetClaimPoints(wallet string) (*ActivityResult, error) {
	return s.LogActivity(LogActivityInput{Wallet: wallet, Type: db.ActivityFaucetClaim})
}

// ProcessReferral binds the referred wallet to its referrer, first write
// wins. The bonus itself is credited later, when the referred wallet logs
// its first deposit; the binding refs are stored and attached to that
// referral activity. Returns false when the wallet was already bound.
func (s *Service) ProcessReferral(referrerWallet, referredWallet string, refs types.CorrelationRefs) (bool, error) {
	referrer, err := NormalizeWallet(referrerWallet)
	if err != nil {
		return false, err
	}
	referred, err := NormalizeWallet(referredWallet)
	if err != nil {
		return false, err
	}
	if referrer == referred {
		return false, &apperrors.ValidationError{Field: "referral", Message: "self-referral is not allowed"}
	}

	if _, err := s.ensureAccount(referrer); err != nil {
		return false, err
	}
	if _, err := s.ensureAccount(referred); err != nil {
		return false, err
	}

	bound, err := s.store.SetReferredBy(referred, referrer, refs.TxHash)
	if err != nil {
		return false, err
	}
	if !bound {
		logger.Debug("wallet %s already has a referrer, ignoring %s", referred, referrer)
	}
	return bound, nil
}

// ValidateReferralCode resolves an entered code to its owning account.
// Returns nil when the code does not exist.
func (s *Service) ValidateReferralCode(code string) (*db.PointsAccount, error) {
	acct, err := s.store.GetAccountByReferralCode(NormalizeReferralCode(code))
	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// GetOrCreateAccount returns the wallet's account, creating it when it
// does not exist yet.
func (s *Service) GetOrCreateAccount(wallet string) (*db.PointsAccount, error) {
	normalized, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	return s.ensureAccount(normalized)
}

func (s *Service) GetUserActivities(wallet string, limit int) ([]db.TestnetActivity, error) {
	normalized, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	return s.store.GetUserActivities(normalized, limit)
}

func (s *Service) GetLeaderboard(limit int) ([]db.LeaderboardEntry, error) {
	return s.store.GetLeaderboard(limit)
}

func (s *Service) GetLeaderboardStats() (*db.LeaderboardStats, error) {
	return s.store.GetLeaderboardStats()
}

func (s *Service) GetUserRank(wallet string) (int, error) {
	normalized, err := NormalizeWallet(wallet)
	if err != nil {
		return 0, err
	}
	return s.store.GetUserRank(normalized)
}
