package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/notify"
	users "github.com/ludoarena/match-engine/internal/user"
)

const reasonAdminCancelled = "cancelled by admin"

// AdjudicationResolver holds the admin-only decisions: approve a winner,
// reject the claims, or cancel outright.
type AdjudicationResolver struct {
	Deps
	settlement *SettlementExecutor
}

func NewAdjudicationResolver(deps Deps, settlement *SettlementExecutor) *AdjudicationResolver {
	return &AdjudicationResolver{Deps: deps, settlement: settlement}
}

// Approve completes a live or result_pending match for winnerID and pays
// out the prize. Any pending result request is resolved with it.
func (r *AdjudicationResolver) Approve(ctx context.Context, actor *users.User, matchID, winnerID uuid.UUID) (*match.Match, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	settings, err := r.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m, err := r.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != match.StatusLive && m.Status != match.StatusResultPending {
		return nil, match.ErrConflict
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := r.resolvePending(ctx, tx, m.ID, &winnerID, actor.ID); err != nil {
		return nil, err
	}
	next, err := r.settlement.Payout(ctx, tx, m, winnerID, settings.Tiers())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("result approved", "match_id", m.ID, "winner_id", winnerID, "admin_id", actor.ID)
	return next, nil
}

// Reject discards the submitted claims and returns the match to live so the
// players can claim again. No funds move.
func (r *AdjudicationResolver) Reject(ctx context.Context, actor *users.User, matchID uuid.UUID) (*match.Match, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	m, err := r.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != match.StatusResultPending {
		return nil, match.ErrConflict
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := r.Results.FindByMatchTx(ctx, tx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result request: %w", err)
	}
	if req == nil || req.Status != match.RequestPending {
		return nil, fmt.Errorf("%w: no pending result request for match %s", match.ErrNotFound, m.ID)
	}
	if err := r.Results.ClearClaims(ctx, tx, req.ID); err != nil {
		return nil, fmt.Errorf("failed to clear claims: %w", err)
	}
	next, err := r.Matches.Transition(ctx, tx, m.ID, m.Version, match.StatusResultPending, func(mm *match.Match) error {
		mm.Status = match.StatusLive
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("result rejected", "match_id", m.ID, "admin_id", actor.ID)
	return next, nil
}

// ForceCancel refunds every player their amountPaid and cancels a waiting
// or live match, started or not.
func (r *AdjudicationResolver) ForceCancel(ctx context.Context, actor *users.User, matchID uuid.UUID, reason string) (*match.Match, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = reasonAdminCancelled
	}

	m, err := r.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != match.StatusWaiting && m.Status != match.StatusLive {
		return nil, match.ErrConflict
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := r.resolvePending(ctx, tx, m.ID, nil, actor.ID); err != nil {
		return nil, err
	}
	next, err := r.settlement.Refund(ctx, tx, m, reason)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("match force-cancelled", "match_id", m.ID, "admin_id", actor.ID, "reason", reason)
	r.notify(ctx, notify.EventMatchCancelled, next, map[string]any{"reason": reason})
	if m.Status == match.StatusWaiting {
		r.notify(ctx, notify.EventWaitingUpdated, next, map[string]any{"status": next.Status})
	}
	return next, nil
}

// StatusChange is the body of a forced status update: completed with a
// winner, or cancelled with a reason.
type StatusChange struct {
	Status   match.Status `json:"status"`
	WinnerID *uuid.UUID   `json:"winner_id,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}

func (r *AdjudicationResolver) ForceSetStatus(ctx context.Context, actor *users.User, matchID uuid.UUID, change StatusChange) (*match.Match, error) {
	switch change.Status {
	case match.StatusCompleted:
		if change.WinnerID == nil {
			return nil, fmt.Errorf("%w: winner_id is required", match.ErrValidation)
		}
		return r.Approve(ctx, actor, matchID, *change.WinnerID)
	case match.StatusCancelled:
		return r.ForceCancel(ctx, actor, matchID, change.Reason)
	default:
		return nil, fmt.Errorf("%w: status must be completed or cancelled", match.ErrValidation)
	}
}

func (r *AdjudicationResolver) ApproveRequest(ctx context.Context, actor *users.User, requestID, winnerID uuid.UUID) (*match.Match, error) {
	req, err := r.pendingRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	return r.Approve(ctx, actor, req.MatchID, winnerID)
}

func (r *AdjudicationResolver) RejectRequest(ctx context.Context, actor *users.User, requestID uuid.UUID) (*match.Match, error) {
	req, err := r.pendingRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	return r.Reject(ctx, actor, req.MatchID)
}

// PendingRequest pairs a result request with its match for review.
type PendingRequest struct {
	match.ResultRequest
	Match *match.Match `json:"match"`
}

func (r *AdjudicationResolver) ListPending(ctx context.Context, actor *users.User) ([]PendingRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reqs, err := r.Results.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list result requests: %w", err)
	}

	out := make([]PendingRequest, 0, len(reqs))
	for _, req := range reqs {
		m, err := r.Matches.Get(ctx, req.MatchID)
		if err != nil {
			return nil, err
		}
		out = append(out, PendingRequest{ResultRequest: req, Match: m})
	}
	return out, nil
}

func (r *AdjudicationResolver) pendingRequest(ctx context.Context, actor *users.User, requestID uuid.UUID) (*match.ResultRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req, err := r.Results.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != match.RequestPending {
		return nil, fmt.Errorf("%w: result request already resolved", match.ErrConflict)
	}
	return req, nil
}
