package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	EventMatchLive      EventType = "match-live"
	EventWaitingUpdated EventType = "waiting-updated"
	EventGameStarted    EventType = "game-started"
	EventMatchCancelled EventType = "match-cancelled"
	EventLossSubmitted  EventType = "loss-submitted"
)

type Event struct {
	Type    EventType      `json:"type"`
	MatchID uuid.UUID      `json:"match_id"`
	At      time.Time      `json:"at"`
	Data    map[string]any `json:"data,omitempty"`
}

// Notifier receives state-change events. Delivery is fire-and-forget:
// implementations log failures and never report them to the caller.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// LogNotifier writes events to slog.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, e Event) {
	n.logger.InfoContext(ctx, "match event", "type", e.Type, "match_id", e.MatchID, "data", e.Data)
}

// RedisNotifier publishes events as JSON on a pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, timeout: 2 * time.Second}
}

func (n *RedisNotifier) Notify(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to encode match event", "type", e.Type, "match_id", e.MatchID, "error", err)
		return
	}

	// Request contexts may already be done by the time the event fires.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.client.Publish(pubCtx, n.channel, payload).Err(); err != nil {
		slog.Warn("failed to publish match event", "type", e.Type, "match_id", e.MatchID, "error", err)
	}
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		n.Notify(ctx, e)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
