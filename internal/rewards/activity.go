package rewards

import (
	"github.com/shieldfi/testnet-rewards/internal/db"
)

// GuardPolicy is the dedup rule applied before an activity is recorded.
type GuardPolicy int

const (
	GuardUnlimited GuardPolicy = iota
	GuardOncePerDay
	GuardOneTimeEver
)

// ActivityConfig holds the static base award for an activity type.
type ActivityConfig struct {
	BasePoints  int64
	Description string
}

// depositUSDUnit is the dollar bucket for amount-scaled deposit awards:
// every full $10 deposited earns the deposit base points once.
const depositUSDUnit = 10

var activityConfigs = map[db.ActivityType]ActivityConfig{
	db.ActivityDeposit:        {BasePoints: 10, Description: "Vault deposit"},
	db.ActivityFirstDeposit:   {BasePoints: 50, Description: "First deposit bonus"},
	db.ActivityWithdrawal:     {BasePoints: 5, Description: "Vault withdrawal"},
	db.ActivityStakeShield:    {BasePoints: 20, Description: "Daily SHIELD staking"},
	db.ActivityBridgeXRPLFlr:  {BasePoints: 30, Description: "Bridge XRPL to Flare"},
	db.ActivityBridgeFlrXRPL:  {BasePoints: 30, Description: "Bridge Flare to XRPL"},
	db.ActivityReferral:       {BasePoints: 100, Description: "Referral bonus"},
	db.ActivityBugReport:      {BasePoints: 150, Description: "Bug report"},
	db.ActivitySocialShare:    {BasePoints: 15, Description: "Social share"},
	db.ActivityDailyLogin:     {BasePoints: 5, Description: "Daily login"},
	db.ActivitySwap:           {BasePoints: 10, Description: "Swap"},
	db.ActivityBoostActivated: {BasePoints: 75, Description: "Boost activated"},
	db.ActivityFaucetClaim:    {BasePoints: 2, Description: "Faucet claim"},
}

// ConfigFor looks up the static base award for an activity type.
func ConfigFor(t db.ActivityType) (ActivityConfig, bool) {
	cfg, ok := activityConfigs[t]
	return cfg, ok
}

// PolicyFor returns the guard policy for an activity type. The migrations'
// partial unique indexes must list the same one-time and daily types.
func PolicyFor(t db.ActivityType) GuardPolicy {
	switch t {
	case db.ActivityFirstDeposit, db.ActivityBoostActivated:
		return GuardOneTimeEver
	case db.ActivityDailyLogin, db.ActivityStakeShield, db.ActivityFaucetClaim, db.ActivitySocialShare:
		return GuardOncePerDay
	case db.ActivityDeposit, db.ActivityWithdrawal, db.ActivitySwap,
		db.ActivityBridgeXRPLFlr, db.ActivityBridgeFlrXRPL,
		db.ActivityReferral, db.ActivityBugReport:
		return GuardUnlimited
	default:
		return GuardUnlimited
	}
}

// CategoryFor maps an activity type to the subtotal column its points land
// in. Every type is listed explicitly so a new type is a visible decision
// here, not a silent fall-through.
func CategoryFor(t db.ActivityType) db.PointCategory {
	switch t {
	case db.ActivityDeposit, db.ActivityFirstDeposit:
		return db.CategoryDeposit
	case db.ActivityStakeShield, db.ActivityBoostActivated:
		return db.CategoryStaking
	case db.ActivityBridgeXRPLFlr, db.ActivityBridgeFlrXRPL:
		return db.CategoryBridge
	case db.ActivityReferral:
		return db.CategoryReferral
	case db.ActivityBugReport:
		return db.CategoryBugReport
	case db.ActivitySocialShare:
		return db.CategorySocial
	case db.ActivityWithdrawal, db.ActivityDailyLogin, db.ActivitySwap, db.ActivityFaucetClaim:
		return db.CategoryOther
	default:
		return db.CategoryOther
	}
}
