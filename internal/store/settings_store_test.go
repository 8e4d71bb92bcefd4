package store

import (
	"context"
	"testing"

	"github.com/ludoarena/match-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	s := NewSettingsStore(db)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings, snap)

	snap.MatchesEnabled = false
	snap.DisableReason = "maintenance"
	snap.Tier3Pct = 4.5
	require.NoError(t, s.Update(ctx, snap))

	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, again.MatchesEnabled)
	assert.Equal(t, "maintenance", again.DisableReason)
	assert.Equal(t, 4.5, again.Tier3Pct)

	snap.Tier2Max = 0
	assert.Error(t, s.Update(ctx, snap))
}
