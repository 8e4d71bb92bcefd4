package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ludoarena/match-engine/internal/commission"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/store"
)

// SettlementExecutor moves a match into a terminal state and books the
// matching fund movements in the same transaction. If any ledger call
// fails the caller rolls back and the match stays where it was.
type SettlementExecutor struct {
	matches *store.MatchStore
	ledger  *ledger.Ledger
}

func NewSettlementExecutor(matches *store.MatchStore, l *ledger.Ledger) *SettlementExecutor {
	return &SettlementExecutor{matches: matches, ledger: l}
}

// Payout completes the match for winnerID and credits the prize computed
// from the canonical entry amount.
func (e *SettlementExecutor) Payout(ctx context.Context, tx *sqlx.Tx, m *match.Match, winnerID uuid.UUID, tiers commission.Tiers) (*match.Match, error) {
	if !m.IsParticipant(winnerID) {
		return nil, fmt.Errorf("%w: winner is not part of this match", match.ErrValidation)
	}
	if !m.IsFull() {
		return nil, fmt.Errorf("%w: match has no opponent", match.ErrValidation)
	}

	split := commission.Calculate(m.EntryAmount, tiers)
	next, err := e.matches.Transition(ctx, tx, m.ID, m.Version, m.Status, func(mm *match.Match) error {
		mm.Status = match.StatusCompleted
		mm.WinnerID = &winnerID
		mm.Commission = &split.Commission
		mm.Prize = &split.Prize
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.ledger.Credit(ctx, tx, ledger.Entry{
		UserID:      winnerID,
		Amount:      split.Prize,
		Category:    ledger.CategoryMatchWin,
		Description: fmt.Sprintf("Won Ludo match %s", m.ID),
		MatchID:     &next.ID,
		Key:         ledger.PayoutKey(m.ID),
	}); err != nil {
		return nil, fmt.Errorf("failed to pay out match %s: %w", m.ID, err)
	}

	slog.Info("match settled", "match_id", m.ID, "winner_id", winnerID,
		"pool", split.Pool, "commission", split.Commission, "prize", split.Prize)
	return next, nil
}

// Refund cancels the match and returns each player's amountPaid.
func (e *SettlementExecutor) Refund(ctx context.Context, tx *sqlx.Tx, m *match.Match, reason string) (*match.Match, error) {
	next, err := e.matches.Transition(ctx, tx, m.ID, m.Version, m.Status, func(mm *match.Match) error {
		mm.Status = match.StatusCancelled
		mm.CancelReason = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range next.Players {
		if err := e.refundPlayer(ctx, tx, next, p, reason); err != nil {
			return nil, err
		}
	}

	slog.Info("match refunded", "match_id", m.ID, "reason", reason, "total", next.TotalPaid())
	return next, nil
}

// Forfeit cancels a started match on behalf of forfeiterID. Everyone else
// is refunded; the forfeiter's stake is retained and recorded as
// commission.
func (e *SettlementExecutor) Forfeit(ctx context.Context, tx *sqlx.Tx, m *match.Match, forfeiterID uuid.UUID) (*match.Match, error) {
	forfeiter := m.Player(forfeiterID)
	if forfeiter == nil {
		return nil, fmt.Errorf("%w: not a participant", match.ErrAuthorization)
	}
	retained := forfeiter.AmountPaid
	reason := "forfeited by " + forfeiter.UserName

	next, err := e.matches.Transition(ctx, tx, m.ID, m.Version, m.Status, func(mm *match.Match) error {
		mm.Status = match.StatusCancelled
		mm.CancelReason = &reason
		mm.ForfeitedBy = &forfeiterID
		mm.Commission = &retained
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range next.Players {
		if p.UserID == forfeiterID {
			continue
		}
		if err := e.refundPlayer(ctx, tx, next, p, reason); err != nil {
			return nil, err
		}
	}

	slog.Info("match forfeited", "match_id", m.ID, "user_id", forfeiterID, "retained", retained)
	return next, nil
}

func (e *SettlementExecutor) refundPlayer(ctx context.Context, tx *sqlx.Tx, m *match.Match, p match.Player, reason string) error {
	if p.AmountPaid <= 0 {
		return nil
	}
	_, err := e.ledger.Credit(ctx, tx, ledger.Entry{
		UserID:      p.UserID,
		Amount:      p.AmountPaid,
		Category:    ledger.CategoryMatchRefund,
		Description: fmt.Sprintf("Refund for Ludo match %s (%s)", m.ID, reason),
		MatchID:     &m.ID,
		Key:         ledger.RefundKey(m.ID, p.UserID),
	})
	if err != nil {
		return fmt.Errorf("failed to refund %s for match %s: %w", p.UserID, m.ID, err)
	}
	return nil
}
