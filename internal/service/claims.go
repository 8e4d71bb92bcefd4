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

// ResultClaimCollector records self-reported outcomes. Claims never settle
// a match on their own; an admin always decides.
type ResultClaimCollector struct {
	Deps
}

func NewResultClaimCollector(deps Deps) *ResultClaimCollector {
	return &ResultClaimCollector{Deps: deps}
}

// SubmitResult is a win claim backed by a screenshot reference.
func (c *ResultClaimCollector) SubmitResult(ctx context.Context, actor *users.User, matchID uuid.UUID, evidenceRef string) (*match.ResultRequest, error) {
	evidenceRef = strings.TrimSpace(evidenceRef)
	if evidenceRef == "" {
		return nil, fmt.Errorf("%w: a screenshot is required", match.ErrValidation)
	}
	return c.SubmitClaim(ctx, actor, matchID, match.ClaimWin, evidenceRef)
}

func (c *ResultClaimCollector) SubmitLoss(ctx context.Context, actor *users.User, matchID uuid.UUID) (*match.ResultRequest, error) {
	return c.SubmitClaim(ctx, actor, matchID, match.ClaimLoss, "")
}

// CheckClaimable reports whether actor may submit a claim on the match
// right now. Callers that store evidence run it before uploading.
func (c *ResultClaimCollector) CheckClaimable(ctx context.Context, actor *users.User, matchID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	m, _, err := c.claimable(ctx, actor, matchID)
	if err != nil {
		return err
	}
	req, err := c.Results.FindByMatch(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load result request: %w", err)
	}
	if req != nil && (req.Status != match.RequestPending || req.ClaimFrom(actor.ID) != nil) {
		return fmt.Errorf("%w: result already submitted for this match", match.ErrConflict)
	}
	return nil
}

// SubmitClaim appends actor's claim to the match's result request,
// creating the request on the first claim and moving the match to
// result_pending. A second claim from the same player is a conflict.
func (c *ResultClaimCollector) SubmitClaim(ctx context.Context, actor *users.User, matchID uuid.UUID, typ match.ClaimType, evidenceRef string) (*match.ResultRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown claim type %q", match.ErrValidation, typ)
	}

	m, player, err := c.claimable(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	tx, err := c.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := c.Results.FindByMatchTx(ctx, tx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result request: %w", err)
	}
	if req == nil {
		req = &match.ResultRequest{
			ID:        uuid.New(),
			MatchID:   m.ID,
			Status:    match.RequestPending,
			CreatedAt: now,
			Claims:    []match.ResultClaim{},
		}
		if err := c.Results.CreateRequest(ctx, tx, req); err != nil {
			return nil, fmt.Errorf("failed to create result request: %w", err)
		}
	}
	if req.Status != match.RequestPending {
		return nil, fmt.Errorf("%w: result already decided", match.ErrConflict)
	}
	if req.ClaimFrom(actor.ID) != nil {
		return nil, fmt.Errorf("%w: result already submitted for this match", match.ErrConflict)
	}

	claim := match.ResultClaim{
		ID:          uuid.New(),
		RequestID:   req.ID,
		MatchID:     m.ID,
		UserID:      actor.ID,
		UserName:    player.UserName,
		Type:        typ,
		EvidenceRef: evidenceRef,
		SubmittedAt: now,
	}
	if err := c.Results.AddClaim(ctx, tx, &claim); err != nil {
		return nil, err
	}

	// Also bumps the version when already pending, so a claim racing an
	// admin decision loses cleanly.
	if _, err := c.Matches.Transition(ctx, tx, m.ID, m.Version, m.Status, func(mm *match.Match) error {
		mm.Status = match.StatusResultPending
		return nil
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	req.Claims = append(req.Claims, claim)

	slog.Info("result claim submitted", "match_id", m.ID, "user_id", actor.ID, "type", typ)
	if typ == match.ClaimLoss {
		c.notify(ctx, notify.EventLossSubmitted, m, map[string]any{"user_id": actor.ID, "user_name": player.UserName})
	}
	return req, nil
}

func (c *ResultClaimCollector) claimable(ctx context.Context, actor *users.User, matchID uuid.UUID) (*match.Match, *match.Player, error) {
	m, err := c.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	player := m.Player(actor.ID)
	if player == nil {
		return nil, nil, fmt.Errorf("%w: not a participant", match.ErrAuthorization)
	}
	if m.Status != match.StatusLive && m.Status != match.StatusResultPending {
		return nil, nil, match.ErrConflict
	}
	if !m.Started() {
		return nil, nil, fmt.Errorf("%w: game has not started", match.ErrValidation)
	}
	return m, player, nil
}
