package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/notify"
	"github.com/ludoarena/match-engine/internal/store"
	users "github.com/ludoarena/match-engine/internal/user"
)

// Deps is shared by the engine components.
type Deps struct {
	DB       *sqlx.DB
	Matches  *store.MatchStore
	Results  *store.ResultStore
	Settings *store.SettingsStore
	Ledger   *ledger.Ledger
	Notifier notify.Notifier

	JoinWindow     time.Duration
	RoomCodeWindow time.Duration

	// Clock defaults to time.Now in UTC.
	Clock func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) notify(ctx context.Context, typ notify.EventType, m *match.Match, data map[string]any) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.Notify(ctx, notify.Event{Type: typ, MatchID: m.ID, At: d.now(), Data: data})
}

// resolvePending closes the match's result request, if one is still open,
// inside tx. Every path that ends a match goes through here so no request
// outlives its match.
func (d Deps) resolvePending(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, winnerID *uuid.UUID, resolvedBy uuid.UUID) error {
	req, err := d.Results.FindByMatchTx(ctx, tx, matchID)
	if err != nil {
		return fmt.Errorf("failed to load result request: %w", err)
	}
	if req == nil || req.Status != match.RequestPending {
		return nil
	}
	return d.Results.Resolve(ctx, tx, req.ID, winnerID, resolvedBy, d.now())
}

// MatchView adds derived fields to a match for API responses.
type MatchView struct {
	*match.Match
	ExpectedEndAt *time.Time `json:"expected_end_at,omitempty"`
}

func newView(m *match.Match, gameDuration time.Duration) MatchView {
	return MatchView{Match: m, ExpectedEndAt: m.ExpectedEndAt(gameDuration)}
}

func newViews(ms []match.Match, gameDuration time.Duration) []MatchView {
	views := make([]MatchView, len(ms))
	for i := range ms {
		views[i] = newView(&ms[i], gameDuration)
	}
	return views
}

func requireActor(actor *users.User) error {
	if actor == nil {
		return match.ErrAuthorization
	}
	return nil
}

func requireAdmin(actor *users.User) error {
	if actor == nil || !actor.IsAdmin {
		return match.ErrAuthorization
	}
	return nil
}
