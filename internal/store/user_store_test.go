package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/match"
	users "github.com/ludoarena/match-engine/internal/user"
	"github.com/ludoarena/match-engine/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	s := NewUserStore(db)

	u := &users.User{
		ID:         uuid.New(),
		Email:      "red@example.com",
		Username:   "red",
		Provider:   utils.Ptr("discord"),
		ProviderID: utils.Ptr("42"),
		AvatarURL:  utils.Ptr("https://cdn.example.com/a.png"),
		CreatedAt:  baseTime,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	byProvider, err := s.GetUserByProvider(ctx, "discord", "42")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byProvider.ID)
	assert.False(t, byProvider.IsAdmin)

	u.Username = "red2"
	u.IsAdmin = true
	require.NoError(t, s.UpdateUserProfile(ctx, u))

	fetched, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "red2", fetched.Username)
	assert.True(t, fetched.IsAdmin)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, match.ErrNotFound)
}
