package match

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusWaiting, StatusLive, true},
		{StatusWaiting, StatusCancelled, true},
		{StatusWaiting, StatusResultPending, false},
		{StatusWaiting, StatusCompleted, false},
		{StatusLive, StatusLive, true},
		{StatusLive, StatusResultPending, true},
		{StatusLive, StatusCompleted, true},
		{StatusLive, StatusWaiting, false},
		{StatusResultPending, StatusLive, true},
		{StatusResultPending, StatusCompleted, true},
		{StatusResultPending, StatusCancelled, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusWaiting, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to))
		})
	}
}

func TestPlayersColumn(t *testing.T) {
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	players := Players{{UserID: uuid.New(), UserName: "red", AmountPaid: 50, JoinedAt: joined}}

	v, err := players.Value()
	require.NoError(t, err)

	var scanned Players
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, players, scanned)

	var empty Players
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	assert.Error(t, scanned.Scan(42))
}

func TestMatchHelpers(t *testing.T) {
	creator, opponent := uuid.New(), uuid.New()
	m := &Match{
		ID:          uuid.New(),
		CreatorID:   creator,
		EntryAmount: 100,
		Players: Players{
			{UserID: creator, AmountPaid: 100},
			{UserID: opponent, AmountPaid: 90},
		},
	}

	assert.True(t, m.IsFull())
	assert.True(t, m.IsParticipant(opponent))
	assert.False(t, m.IsParticipant(uuid.New()))
	assert.Equal(t, int64(190), m.TotalPaid())
	assert.False(t, m.Started())
	assert.Nil(t, m.ExpectedEndAt(30*time.Minute))

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.GameActualStartAt = &start
	assert.True(t, m.Started())
	assert.Equal(t, start.Add(30*time.Minute), *m.ExpectedEndAt(30 * time.Minute))

	c := m.Clone()
	c.Players[0].AmountPaid = 1
	assert.Equal(t, int64(100), m.Players[0].AmountPaid)
}
