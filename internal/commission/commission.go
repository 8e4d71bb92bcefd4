package commission

import "github.com/shopspring/decimal"

// Tiers selects the commission percentage by entry amount.
type Tiers struct {
	Tier1Max int64   `json:"tier1_max"`
	Tier1Pct float64 `json:"tier1_pct"`
	Tier2Max int64   `json:"tier2_max"`
	Tier2Pct float64 `json:"tier2_pct"`
	Tier3Pct float64 `json:"tier3_pct"`
}

var DefaultTiers = Tiers{
	Tier1Max: 250,
	Tier1Pct: 10,
	Tier2Max: 600,
	Tier2Pct: 8,
	Tier3Pct: 5,
}

type Result struct {
	Pool       int64 `json:"pool"`
	Commission int64 `json:"commission"`
	Prize      int64 `json:"prize"`
}

// Percent returns the tier percentage that applies to entryAmount.
func (t Tiers) Percent(entryAmount int64) float64 {
	switch {
	case entryAmount <= t.Tier1Max:
		return t.Tier1Pct
	case entryAmount <= t.Tier2Max:
		return t.Tier2Pct
	default:
		return t.Tier3Pct
	}
}

// Calculate splits the two-player pool for entryAmount into commission and
// prize. Commission is rounded half away from zero to a whole unit.
func Calculate(entryAmount int64, tiers Tiers) Result {
	pool := entryAmount * 2
	pct := decimal.NewFromFloat(tiers.Percent(entryAmount))

	fee := decimal.NewFromInt(pool).
		Mul(pct).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	return Result{
		Pool:       pool,
		Commission: fee,
		Prize:      pool - fee,
	}
}
