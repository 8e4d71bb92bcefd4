package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("JOIN_WINDOW", "3m")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("EXPIRY_SWEEP_BATCH", "50")
	t.Setenv("ADMIN_EMAILS", " Ops@Example.com ,, judge@example.com")

	cfg := Load()

	assert.Equal(t, 3*time.Minute, cfg.JoinWindow)
	assert.Equal(t, 2*time.Second, cfg.SweepInterval)
	assert.Equal(t, 50, cfg.SweepBatch)
	assert.Equal(t, []string{"Ops@Example.com", "judge@example.com"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("ops@example.com"))
	assert.False(t, cfg.IsAdminEmail("player@example.com"))
	assert.False(t, cfg.IsAdminEmail(""))
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings.Validate())

	bad := DefaultSettings
	bad.Tier2Max = bad.Tier1Max
	assert.Error(t, bad.Validate())

	bad = DefaultSettings
	bad.Tier3Pct = 120
	assert.Error(t, bad.Validate())

	bad = DefaultSettings
	bad.MinEntryAmount = 0
	assert.Error(t, bad.Validate())
}
