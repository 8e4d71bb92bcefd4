package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	matches := NewMatchStore(db)
	results := NewResultStore(db)

	m := newWaitingMatch(uuid.New(), 100)
	m.Status = match.StatusResultPending
	insertMatch(t, db, matches, m)

	none, err := results.FindByMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	req := &match.ResultRequest{ID: uuid.New(), MatchID: m.ID, Status: match.RequestPending, CreatedAt: baseTime}
	claim := &match.ResultClaim{
		ID: uuid.New(), RequestID: req.ID, MatchID: m.ID, UserID: m.CreatorID,
		UserName: "creator", Type: match.ClaimWin, EvidenceRef: "shot.png", SubmittedAt: baseTime,
	}

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, results.CreateRequest(ctx, tx, req))
	require.NoError(t, results.AddClaim(ctx, tx, claim))

	dup := *claim
	dup.ID = uuid.New()
	err = results.AddClaim(ctx, tx, &dup)
	assert.ErrorIs(t, err, match.ErrConflict)
	require.NoError(t, tx.Commit())

	fetched, err := results.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Claims, 1)
	assert.Equal(t, match.ClaimWin, fetched.Claims[0].Type)
	assert.NotNil(t, fetched.ClaimFrom(m.CreatorID))

	pending, err := results.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Len(t, pending[0].Claims, 1)

	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, results.ClearClaims(ctx, tx, req.ID))
	admin := uuid.New()
	require.NoError(t, results.Resolve(ctx, tx, req.ID, &m.CreatorID, admin, baseTime))
	assert.ErrorIs(t, results.Resolve(ctx, tx, req.ID, nil, admin, baseTime), match.ErrConflict)
	require.NoError(t, tx.Commit())

	fetched, err = results.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Claims)
	assert.Equal(t, match.RequestResolved, fetched.Status)
	require.NotNil(t, fetched.ResolvedBy)
	assert.Equal(t, admin, *fetched.ResolvedBy)

	_, err = results.GetRequest(ctx, uuid.New())
	assert.ErrorIs(t, err, match.ErrNotFound)
}
