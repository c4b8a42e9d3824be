package rewards

import "github.com/shopspring/decimal"

// Tier is one of the four ordered airdrop classes.
type Tier string

const (
	TierBronze  Tier = "bronze"
	TierSilver  Tier = "silver"
	TierGold    Tier = "gold"
	TierDiamond Tier = "diamond"
)

type tierThreshold struct {
	tier       Tier
	minPoints  int64
	multiplier decimal.Decimal
}

// tierTable is evaluated from highest to lowest. Thresholds are static and
// totals only ever grow, so tier transitions are strictly forward.
var tierTable = []tierThreshold{
	{TierDiamond, 5000, decimal.NewFromInt(3)},
	{TierGold, 2000, decimal.NewFromInt(2)},
	{TierSilver, 500, decimal.NewFromFloat(1.5)},
	{TierBronze, 0, decimal.NewFromInt(1)},
}

// Classify maps a cumulative point total to its tier and airdrop
// multiplier. Pure function of the total alone.
func Classify(totalPoints int64) (Tier, decimal.Decimal) {
	for _, t := range tierTable {
		if totalPoints >= t.minPoints {
			return t.tier, t.multiplier
		}
	}
	// unreachable, bronze starts at zero
	return TierBronze, decimal.NewFromInt(1)
}

// IsOG reports whether a tier carries the OG flag.
func IsOG(tier Tier) bool {
	return tier == TierGold || tier == TierDiamond
}

// TierProgress describes how far a total is along the current tier band.
// NextTier is empty at the top tier.
type TierProgress struct {
	NextTier        Tier
	PointsNeeded    int64
	ProgressPercent float64
}

// NextTierProgress interpolates linearly between the given tier's
// threshold and the next tier's.
func NextTierProgress(totalPoints int64, tier Tier) TierProgress {
	idx := -1
	for i, t := range tierTable {
		if t.tier == tier {
			idx = i
			break
		}
	}
	if idx == -1 {
		// unknown tier label, fall back to classifying the total
		derived, _ := Classify(totalPoints)
		return NextTierProgress(totalPoints, derived)
	}
	if idx == 0 {
		return TierProgress{ProgressPercent: 100}
	}

	current := tierTable[idx]
	next := tierTable[idx-1]

	needed := next.minPoints - totalPoints
	if needed < 0 {
		needed = 0
	}
	percent := float64(totalPoints-current.minPoints) / float64(next.minPoints-current.minPoints) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return TierProgress{
		NextTier:        next.tier,
		PointsNeeded:    needed,
		ProgressPercent: percent,
	}
}
