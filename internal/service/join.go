package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/notify"
	users "github.com/ludoarena/match-engine/internal/user"
)

// JoinCheck is the answer to a non-committing join peek.
type JoinCheck struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// JoinArbiter admits exactly one opponent into a waiting match.
type JoinArbiter struct {
	Deps
}

func NewJoinArbiter(deps Deps) *JoinArbiter {
	return &JoinArbiter{Deps: deps}
}

// CheckJoinable reports whether actor could join right now. Nothing is
// reserved or charged.
func (a *JoinArbiter) CheckJoinable(ctx context.Context, actor *users.User, matchID uuid.UUID) (JoinCheck, error) {
	if err := requireActor(actor); err != nil {
		return JoinCheck{}, err
	}
	m, err := a.Matches.Get(ctx, matchID)
	if err != nil {
		return JoinCheck{}, err
	}

	if err := a.precheck(m, actor); err != nil {
		return JoinCheck{Reason: reasonFor(err)}, nil
	}

	balance, err := a.Ledger.Balance(ctx, actor.ID)
	if err != nil {
		return JoinCheck{}, fmt.Errorf("failed to read balance: %w", err)
	}
	if balance < m.EntryAmount {
		return JoinCheck{Reason: "insufficient balance"}, nil
	}
	return JoinCheck{OK: true}, nil
}

// Join seats actor as the opponent. The slot is reserved by a CAS on the
// version observed before the transaction, then the stake is debited; both
// commit together so a caller that loses the race is never charged.
func (a *JoinArbiter) Join(ctx context.Context, actor *users.User, matchID uuid.UUID) (*match.Match, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := a.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := a.precheck(m, actor); err != nil {
		return nil, err
	}

	now := a.now()
	tx, err := a.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	next, err := a.Matches.Transition(ctx, tx, m.ID, m.Version, match.StatusWaiting, func(mm *match.Match) error {
		if mm.IsFull() || !now.Before(mm.JoinExpiryAt) {
			return match.ErrConflict
		}
		roomCodeExpiry := now.Add(a.RoomCodeWindow)
		mm.Players = append(mm.Players, match.Player{
			UserID:     actor.ID,
			UserName:   actor.Username,
			AmountPaid: mm.EntryAmount,
			JoinedAt:   now,
		})
		mm.Status = match.StatusLive
		mm.RoomCodeExpiryAt = &roomCodeExpiry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := a.Ledger.Debit(ctx, tx, ledger.Entry{
		UserID:      actor.ID,
		Amount:      next.EntryAmount,
		Category:    ledger.CategoryMatchEntry,
		Description: fmt.Sprintf("Entry for Ludo match %s", m.ID),
		MatchID:     &next.ID,
		Key:         ledger.EntryKey(m.ID, actor.ID),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("match joined", "match_id", next.ID, "user_id", actor.ID, "status", next.Status)
	a.notify(ctx, notify.EventMatchLive, next, map[string]any{
		"creator_id":          next.CreatorID,
		"opponent_id":         actor.ID,
		"room_code_expiry_at": next.RoomCodeExpiryAt,
	})
	a.notify(ctx, notify.EventWaitingUpdated, next, map[string]any{"status": next.Status})
	return next, nil
}

var (
	errOwnMatch = fmt.Errorf("%w: you cannot join your own match", match.ErrValidation)
	errExpired  = fmt.Errorf("%w: match has expired", match.ErrConflict)
)

func (a *JoinArbiter) precheck(m *match.Match, actor *users.User) error {
	switch {
	case m.CreatorID == actor.ID:
		return errOwnMatch
	case m.Status != match.StatusWaiting || m.IsFull():
		return match.ErrConflict
	case !a.now().Before(m.JoinExpiryAt):
		return errExpired
	}
	return nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, errOwnMatch):
		return "you cannot join your own match"
	case errors.Is(err, errExpired):
		return "match has expired"
	default:
		return match.ErrConflict.Error()
	}
}
