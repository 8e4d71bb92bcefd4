package commission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	testCases := []struct {
		name       string
		entry      int64
		commission int64
		prize      int64
	}{
		{name: "tier 1 upper bound", entry: 250, commission: 50, prize: 450},
		{name: "tier 2 upper bound", entry: 600, commission: 96, prize: 1104},
		{name: "tier 3", entry: 1000, commission: 100, prize: 1900},
		{name: "just above tier 1", entry: 251, commission: 40, prize: 462},
		{name: "small entry", entry: 50, commission: 10, prize: 90},
		{name: "rounds half up", entry: 605, commission: 61, prize: 1149},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := Calculate(tc.entry, DefaultTiers)
			assert.Equal(t, tc.entry*2, res.Pool)
			assert.Equal(t, tc.commission, res.Commission)
			assert.Equal(t, tc.prize, res.Prize)
			assert.Equal(t, res.Pool, res.Commission+res.Prize)
		})
	}
}

func TestCalculate_CustomTiers(t *testing.T) {
	tiers := Tiers{Tier1Max: 100, Tier1Pct: 20, Tier2Max: 200, Tier2Pct: 12.5, Tier3Pct: 0}

	assert.Equal(t, int64(40), Calculate(100, tiers).Commission)
	assert.Equal(t, int64(50), Calculate(200, tiers).Commission)

	res := Calculate(500, tiers)
	assert.Equal(t, int64(0), res.Commission)
	assert.Equal(t, int64(1000), res.Prize)
}
