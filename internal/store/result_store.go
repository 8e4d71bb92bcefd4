package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/mattn/go-sqlite3"
)

// ResultStore persists result requests and their claims.
type ResultStore struct {
	db *sqlx.DB
}

func NewResultStore(db *sqlx.DB) *ResultStore {
	return &ResultStore{db: db}
}

const (
	createRequestQuery = `
		INSERT INTO result_requests (id, match_id, status, winner_id, resolved_at, resolved_by, created_at)
		VALUES (:id, :match_id, :status, :winner_id, :resolved_at, :resolved_by, :created_at)
	`
	createClaimQuery = `
		INSERT INTO result_claims (id, request_id, match_id, user_id, user_name, claim_type, evidence_ref, submitted_at)
		VALUES (:id, :request_id, :match_id, :user_id, :user_name, :claim_type, :evidence_ref, :submitted_at)
	`
	resolveRequestQuery = `
		UPDATE result_requests SET status = 'resolved', winner_id = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ? AND status = 'pending'
	`
	pendingRequestsQuery = `
		SELECT r.* FROM result_requests r
		JOIN matches m ON m.id = r.match_id
		WHERE r.status = 'pending' AND m.status = 'result_pending'
		ORDER BY r.created_at ASC
	`
)

func (s *ResultStore) GetRequest(ctx context.Context, id uuid.UUID) (*match.ResultRequest, error) {
	var req match.ResultRequest
	if err := s.db.GetContext(ctx, &req, "SELECT * FROM result_requests WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: result request %s", match.ErrNotFound, id)
		}
		return nil, err
	}
	if err := loadClaims(ctx, s.db, []*match.ResultRequest{&req}); err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByMatch returns the request for a match, or nil when no claim has
// been submitted yet.
func (s *ResultStore) FindByMatch(ctx context.Context, matchID uuid.UUID) (*match.ResultRequest, error) {
	return findByMatch(ctx, s.db, matchID)
}

func (s *ResultStore) FindByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) (*match.ResultRequest, error) {
	return findByMatch(ctx, tx, matchID)
}

func findByMatch(ctx context.Context, q sqlx.QueryerContext, matchID uuid.UUID) (*match.ResultRequest, error) {
	var req match.ResultRequest
	if err := sqlx.GetContext(ctx, q, &req, "SELECT * FROM result_requests WHERE match_id = ?", matchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := loadClaims(ctx, q, []*match.ResultRequest{&req}); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *ResultStore) CreateRequest(ctx context.Context, tx *sqlx.Tx, req *match.ResultRequest) error {
	_, err := tx.NamedExecContext(ctx, createRequestQuery, req)
	return err
}

// AddClaim appends a claim. A second claim by the same user on the same
// match is reported as match.ErrConflict.
func (s *ResultStore) AddClaim(ctx context.Context, tx *sqlx.Tx, claim *match.ResultClaim) error {
	_, err := tx.NamedExecContext(ctx, createClaimQuery, claim)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: result already submitted for this match", match.ErrConflict)
		}
		return err
	}
	return nil
}

func (s *ResultStore) ClearClaims(ctx context.Context, tx *sqlx.Tx, requestID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM result_claims WHERE request_id = ?", requestID)
	return err
}

// Resolve closes a pending request. Resolved requests are immutable, so a
// second call fails with match.ErrConflict.
func (s *ResultStore) Resolve(ctx context.Context, tx *sqlx.Tx, requestID uuid.UUID, winnerID *uuid.UUID, resolvedBy uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx, resolveRequestQuery, winnerID, at, resolvedBy, requestID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%w: result request %s already resolved", match.ErrConflict, requestID)
	}
	return nil
}

// ListPending returns unresolved requests whose match is awaiting review.
func (s *ResultStore) ListPending(ctx context.Context) ([]match.ResultRequest, error) {
	var reqs []match.ResultRequest
	if err := s.db.SelectContext(ctx, &reqs, pendingRequestsQuery); err != nil {
		return nil, err
	}
	ptrs := make([]*match.ResultRequest, len(reqs))
	for i := range reqs {
		ptrs[i] = &reqs[i]
	}
	if err := loadClaims(ctx, s.db, ptrs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func loadClaims(ctx context.Context, q sqlx.QueryerContext, reqs []*match.ResultRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	ids := make([]string, len(reqs))
	byID := make(map[uuid.UUID]*match.ResultRequest, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID.String()
		byID[r.ID] = r
		r.Claims = []match.ResultClaim{}
	}

	query, args, err := sqlx.In("SELECT * FROM result_claims WHERE request_id IN (?) ORDER BY submitted_at ASC", ids)
	if err != nil {
		return err
	}
	var claims []match.ResultClaim
	if err := sqlx.SelectContext(ctx, q, &claims, query, args...); err != nil {
		return fmt.Errorf("failed to load claims: %w", err)
	}
	for _, c := range claims {
		if r, ok := byID[c.RequestID]; ok {
			r.Claims = append(r.Claims, c)
		}
	}
	return nil
}
