package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ludoarena/match-engine/internal/config"
)

// SettingsStore is the configuration provider for platform settings.
type SettingsStore struct {
	db *sqlx.DB
}

func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

const updateSettingsQuery = `
	UPDATE platform_settings SET
		tier1_max = :tier1_max, tier1_pct = :tier1_pct,
		tier2_max = :tier2_max, tier2_pct = :tier2_pct,
		tier3_pct = :tier3_pct,
		game_duration_minutes = :game_duration_minutes,
		matches_enabled = :matches_enabled,
		disable_reason = :disable_reason,
		min_entry_amount = :min_entry_amount
	WHERE id = 1
`

// Snapshot reads the current settings row.
func (s *SettingsStore) Snapshot(ctx context.Context) (config.Settings, error) {
	var settings config.Settings
	err := s.db.GetContext(ctx, &settings, `
		SELECT tier1_max, tier1_pct, tier2_max, tier2_pct, tier3_pct,
			game_duration_minutes, matches_enabled, disable_reason, min_entry_amount
		FROM platform_settings WHERE id = 1`)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to read platform settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsStore) Update(ctx context.Context, settings config.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx, updateSettingsQuery, settings)
	return err
}
