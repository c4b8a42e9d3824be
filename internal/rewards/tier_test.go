package rewards

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name       string
		points     int64
		tier       Tier
		multiplier string
	}{
		{"zero points", 0, TierBronze, "1"},
		{"just below silver", 499, TierBronze, "1"},
		{"silver threshold", 500, TierSilver, "1.5"},
		{"just below gold", 1999, TierSilver, "1.5"},
		{"gold threshold", 2000, TierGold, "2"},
		{"just below diamond", 4999, TierGold, "2"},
		{"diamond threshold", 5000, TierDiamond, "3"},
		{"far beyond diamond", 1000000, TierDiamond, "3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tier, multiplier := Classify(tc.points)
			assert.Equal(t, tc.tier, tier)
			assert.True(t, decimal.RequireFromString(tc.multiplier).Equal(multiplier),
				"expected multiplier %s, got %s", tc.multiplier, multiplier)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		tier, multiplier := Classify(2000)
		assert.Equal(t, TierGold, tier)
		assert.True(t, decimal.NewFromInt(2).Equal(multiplier))
	}
}

func TestIsOG(t *testing.T) {
	assert.False(t, IsOG(TierBronze))
	assert.False(t, IsOG(TierSilver))
	assert.True(t, IsOG(TierGold))
	assert.True(t, IsOG(TierDiamond))
}

func TestNextTierProgress(t *testing.T) {
	t.Run("bronze at zero", func(t *testing.T) {
		p := NextTierProgress(0, TierBronze)
		assert.Equal(t, TierSilver, p.NextTier)
		assert.Equal(t, int64(500), p.PointsNeeded)
		assert.Equal(t, float64(0), p.ProgressPercent)
	})

	t.Run("halfway through bronze", func(t *testing.T) {
		p := NextTierProgress(250, TierBronze)
		assert.Equal(t, TierSilver, p.NextTier)
		assert.Equal(t, int64(250), p.PointsNeeded)
		assert.InDelta(t, 50.0, p.ProgressPercent, 0.01)
	})

	t.Run("silver approaching gold", func(t *testing.T) {
		p := NextTierProgress(1999, TierSilver)
		assert.Equal(t, TierGold, p.NextTier)
		assert.Equal(t, int64(1), p.PointsNeeded)
		assert.InDelta(t, 99.93, p.ProgressPercent, 0.01)
	})

	t.Run("gold midband", func(t *testing.T) {
		p := NextTierProgress(3500, TierGold)
		assert.Equal(t, TierDiamond, p.NextTier)
		assert.Equal(t, int64(1500), p.PointsNeeded)
		assert.InDelta(t, 50.0, p.ProgressPercent, 0.01)
	})

	t.Run("top tier", func(t *testing.T) {
		p := NextTierProgress(9000, TierDiamond)
		assert.Empty(t, p.NextTier)
		assert.Equal(t, int64(0), p.PointsNeeded)
		assert.Equal(t, float64(100), p.ProgressPercent)
	})

	t.Run("unknown tier label falls back to classification", func(t *testing.T) {
		p := NextTierProgress(250, Tier("platinum"))
		assert.Equal(t, TierSilver, p.NextTier)
		assert.Equal(t, int64(250), p.PointsNeeded)
	})
}
