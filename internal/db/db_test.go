package db

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	defer database.Close()

	require.NoError(t, RunMigrations(database.DB, "file://../../migrations"))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(database.DB, "file://../../migrations"))

	var tier1Max int64
	err = database.Get(&tier1Max, "SELECT tier1_max FROM platform_settings WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), tier1Max)
}
