package config

import (
	"fmt"
	"time"

	"github.com/ludoarena/match-engine/internal/commission"
)

// Settings is the platform-wide snapshot that admins may change at runtime.
// Callers re-read it per operation; it is never cached.
type Settings struct {
	Tier1Max            int64   `db:"tier1_max" json:"tier1_max"`
	Tier1Pct            float64 `db:"tier1_pct" json:"tier1_pct"`
	Tier2Max            int64   `db:"tier2_max" json:"tier2_max"`
	Tier2Pct            float64 `db:"tier2_pct" json:"tier2_pct"`
	Tier3Pct            float64 `db:"tier3_pct" json:"tier3_pct"`
	GameDurationMinutes int     `db:"game_duration_minutes" json:"game_duration_minutes"`
	MatchesEnabled      bool    `db:"matches_enabled" json:"matches_enabled"`
	DisableReason       string  `db:"disable_reason" json:"disable_reason"`
	MinEntryAmount      int64   `db:"min_entry_amount" json:"min_entry_amount"`
}

var DefaultSettings = Settings{
	Tier1Max:            commission.DefaultTiers.Tier1Max,
	Tier1Pct:            commission.DefaultTiers.Tier1Pct,
	Tier2Max:            commission.DefaultTiers.Tier2Max,
	Tier2Pct:            commission.DefaultTiers.Tier2Pct,
	Tier3Pct:            commission.DefaultTiers.Tier3Pct,
	GameDurationMinutes: 30,
	MatchesEnabled:      true,
	MinEntryAmount:      50,
}

func (s Settings) Tiers() commission.Tiers {
	return commission.Tiers{
		Tier1Max: s.Tier1Max,
		Tier1Pct: s.Tier1Pct,
		Tier2Max: s.Tier2Max,
		Tier2Pct: s.Tier2Pct,
		Tier3Pct: s.Tier3Pct,
	}
}

func (s Settings) GameDuration() time.Duration {
	return time.Duration(s.GameDurationMinutes) * time.Minute
}

func (s Settings) Validate() error {
	if s.Tier1Max <= 0 || s.Tier2Max <= s.Tier1Max {
		return fmt.Errorf("tier bounds must satisfy 0 < tier1_max < tier2_max")
	}
	for _, pct := range []float64{s.Tier1Pct, s.Tier2Pct, s.Tier3Pct} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("tier percentages must be within 0-100")
		}
	}
	if s.GameDurationMinutes <= 0 {
		return fmt.Errorf("game_duration_minutes must be positive")
	}
	if s.MinEntryAmount <= 0 {
		return fmt.Errorf("min_entry_amount must be positive")
	}
	return nil
}
