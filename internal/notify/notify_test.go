package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisNotifierPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "match-events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(client, "match-events")
	e := Event{
		Type:    EventMatchLive,
		MatchID: uuid.New(),
		At:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:    map[string]any{"opponent": "blue"},
	}
	n.Notify(ctx, e)

	select {
	case msg := <-sub.Channel():
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, e.Type, got.Type)
		assert.Equal(t, e.MatchID, got.MatchID)
		assert.Equal(t, "blue", got.Data["opponent"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestRedisNotifierSwallowsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	n := NewRedisNotifier(client, "match-events")
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), Event{Type: EventMatchCancelled, MatchID: uuid.New()})
	})
}

func TestMultiNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	id := uuid.New()
	Multi{NewLogNotifier(logger), Nop{}}.Notify(context.Background(), Event{Type: EventGameStarted, MatchID: id})

	assert.Contains(t, buf.String(), `"type":"game-started"`)
	assert.Contains(t, buf.String(), id.String())
}
