package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/notify"
	"github.com/ludoarena/match-engine/internal/store"
	users "github.com/ludoarena/match-engine/internal/user"
)

const listLimit = 50

var roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,16}$`)

// MatchService implements the player-facing operations that are not
// joins or claims.
type MatchService struct {
	Deps
	settlement *SettlementExecutor
}

func NewMatchService(deps Deps, settlement *SettlementExecutor) *MatchService {
	return &MatchService{Deps: deps, settlement: settlement}
}

// Create escrows the creator's stake and opens a waiting match.
func (s *MatchService) Create(ctx context.Context, actor *users.User, entryAmount int64) (*MatchView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.MatchesEnabled {
		if settings.DisableReason != "" {
			return nil, fmt.Errorf("%w: %s", match.ErrMatchesDisabled, settings.DisableReason)
		}
		return nil, match.ErrMatchesDisabled
	}
	if entryAmount < settings.MinEntryAmount {
		return nil, fmt.Errorf("%w: minimum entry is %d", match.ErrValidation, settings.MinEntryAmount)
	}

	now := s.now()
	m := &match.Match{
		ID:          uuid.New(),
		CreatorID:   actor.ID,
		EntryAmount: entryAmount,
		Players: match.Players{{
			UserID:     actor.ID,
			UserName:   actor.Username,
			AmountPaid: entryAmount,
			JoinedAt:   now,
		}},
		Status:       match.StatusWaiting,
		JoinExpiryAt: now.Add(s.JoinWindow),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.Matches.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	if _, err := s.Ledger.Debit(ctx, tx, ledger.Entry{
		UserID:      actor.ID,
		Amount:      entryAmount,
		Category:    ledger.CategoryMatchEntry,
		Description: fmt.Sprintf("Entry for Ludo match %s", m.ID),
		MatchID:     &m.ID,
		Key:         ledger.EntryKey(m.ID, actor.ID),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.notify(ctx, notify.EventWaitingUpdated, m, map[string]any{"status": m.Status})
	view := newView(m, settings.GameDuration())
	return &view, nil
}

func (s *MatchService) Get(ctx context.Context, matchID uuid.UUID) (*MatchView, error) {
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	view := newView(m, settings.GameDuration())
	return &view, nil
}

// Cancel lets a player back out before the game has started. In waiting
// only the creator may cancel; once paired either participant may until a
// room code is recorded.
func (s *MatchService) Cancel(ctx context.Context, actor *users.User, matchID uuid.UUID) (*match.Match, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}

	switch m.Status {
	case match.StatusWaiting:
		if m.CreatorID != actor.ID {
			return nil, fmt.Errorf("%w: only the creator can cancel a waiting match", match.ErrAuthorization)
		}
	case match.StatusLive:
		if !m.IsParticipant(actor.ID) {
			return nil, fmt.Errorf("%w: not a participant", match.ErrAuthorization)
		}
		if m.RoomCode != nil {
			return nil, fmt.Errorf("%w: game has already started", match.ErrAuthorization)
		}
	case match.StatusResultPending:
		return nil, fmt.Errorf("%w: game has already started", match.ErrAuthorization)
	default:
		return nil, match.ErrConflict
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	next, err := s.settlement.Refund(ctx, tx, m, match.ReasonPlayerCancelled)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.notify(ctx, notify.EventMatchCancelled, next, map[string]any{"reason": match.ReasonPlayerCancelled})
	if m.Status == match.StatusWaiting {
		s.notify(ctx, notify.EventWaitingUpdated, next, map[string]any{"status": next.Status})
	}
	return next, nil
}

// SubmitRoomCode records the external room code. Only the creator may set
// it, once, while the match is live and the room-code window is open.
func (s *MatchService) SubmitRoomCode(ctx context.Context, actor *users.User, matchID uuid.UUID, code string) (*MatchView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if !roomCodePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: room code must be 4-16 letters or digits", match.ErrValidation)
	}

	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.CreatorID != actor.ID {
		return nil, fmt.Errorf("%w: only the creator can set the room code", match.ErrAuthorization)
	}
	if m.Status != match.StatusLive || m.RoomCode != nil {
		return nil, match.ErrConflict
	}

	now := s.now()
	if m.RoomCodeExpiryAt != nil && !now.Before(*m.RoomCodeExpiryAt) {
		return nil, fmt.Errorf("%w: room code window has closed", match.ErrConflict)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	next, err := s.Matches.Transition(ctx, tx, m.ID, m.Version, match.StatusLive, func(mm *match.Match) error {
		mm.RoomCode = &code
		mm.GameActualStartAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	view := newView(next, settings.GameDuration())
	s.notify(ctx, notify.EventGameStarted, next, map[string]any{
		"room_code":       code,
		"expected_end_at": view.ExpectedEndAt,
	})
	return &view, nil
}

// Forfeit concedes a started match. The other player is refunded and the
// forfeiter's stake is not returned.
func (s *MatchService) Forfeit(ctx context.Context, actor *users.User, matchID uuid.UUID) (*match.Match, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(actor.ID) {
		return nil, fmt.Errorf("%w: not a participant", match.ErrAuthorization)
	}
	if m.Status != match.StatusLive {
		return nil, match.ErrConflict
	}
	if !m.Started() {
		return nil, fmt.Errorf("%w: game has not started, cancel instead", match.ErrValidation)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.resolvePending(ctx, tx, m.ID, nil, actor.ID); err != nil {
		return nil, err
	}
	next, err := s.settlement.Forfeit(ctx, tx, m, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.notify(ctx, notify.EventMatchCancelled, next, map[string]any{
		"reason":       *next.CancelReason,
		"forfeited_by": actor.ID,
	})
	return next, nil
}

func (s *MatchService) ListMine(ctx context.Context, actor *users.User, filter store.UserFilter) ([]MatchView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	switch filter {
	case "":
		filter = store.FilterAll
	case store.FilterAll, store.FilterActive, store.FilterCompleted, store.FilterCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", match.ErrValidation, filter)
	}

	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := s.Matches.ListForUser(ctx, actor.ID, filter, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return newViews(ms, settings.GameDuration()), nil
}

// ListOpen returns waiting matches that can still be joined.
func (s *MatchService) ListOpen(ctx context.Context) ([]MatchView, error) {
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := s.Matches.ListOpen(ctx, s.now(), listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open matches: %w", err)
	}
	return newViews(ms, settings.GameDuration()), nil
}

func (s *MatchService) ListRunning(ctx context.Context) ([]MatchView, error) {
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := s.Matches.ListRunning(ctx, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list running matches: %w", err)
	}
	return newViews(ms, settings.GameDuration()), nil
}
