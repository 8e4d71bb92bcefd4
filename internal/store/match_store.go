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
)

// MatchStore holds canonical match state. Every write after creation goes
// through Transition.
type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

const (
	getMatchQuery    = "SELECT * FROM matches WHERE id = ?"
	createMatchQuery = `
		INSERT INTO matches (id, creator_id, opponent_id, entry_amount, players, status, join_expiry_at,
			room_code, room_code_expiry_at, game_actual_start_at, winner_id, cancel_reason, forfeited_by,
			commission, prize, version, created_at, updated_at)
		VALUES (:id, :creator_id, :opponent_id, :entry_amount, :players, :status, :join_expiry_at,
			:room_code, :room_code_expiry_at, :game_actual_start_at, :winner_id, :cancel_reason, :forfeited_by,
			:commission, :prize, :version, :created_at, :updated_at)
	`
	casUpdateQuery = `
		UPDATE matches SET
			opponent_id = ?, players = ?, status = ?, room_code = ?, room_code_expiry_at = ?,
			game_actual_start_at = ?, winner_id = ?, cancel_reason = ?, forfeited_by = ?,
			commission = ?, prize = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?
	`
	expiredMatchesQuery = `
		SELECT * FROM matches
		WHERE (status = 'waiting' AND join_expiry_at <= ?)
		   OR (status = 'live' AND room_code IS NULL AND room_code_expiry_at <= ?)
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`
)

func (s *MatchStore) Create(ctx context.Context, tx *sqlx.Tx, m *match.Match) error {
	if m.Players == nil {
		m.Players = match.Players{}
	}
	_, err := tx.NamedExecContext(ctx, createMatchQuery, m)
	return err
}

func (s *MatchStore) Get(ctx context.Context, id uuid.UUID) (*match.Match, error) {
	return getMatch(ctx, s.db, id)
}

func (s *MatchStore) GetTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*match.Match, error) {
	return getMatch(ctx, tx, id)
}

func getMatch(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*match.Match, error) {
	var m match.Match
	if err := sqlx.GetContext(ctx, q, &m, getMatchQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: match %s", match.ErrNotFound, id)
		}
		return nil, err
	}
	return &m, nil
}

// Transition applies mutate to the match only if it is still at
// expectedVersion and expectedStatus, bumping the version on success.
// A stale caller gets match.ErrConflict and nothing is written.
func (s *MatchStore) Transition(
	ctx context.Context,
	tx *sqlx.Tx,
	id uuid.UUID,
	expectedVersion int64,
	expectedStatus match.Status,
	mutate func(*match.Match) error,
) (*match.Match, error) {
	cur, err := s.GetTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if cur.Version != expectedVersion || cur.Status != expectedStatus {
		return nil, fmt.Errorf("%w: match %s is %s at v%d, expected %s at v%d",
			match.ErrConflict, id, cur.Status, cur.Version, expectedStatus, expectedVersion)
	}

	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if !match.CanTransition(cur.Status, next.Status) {
		return nil, fmt.Errorf("%w: illegal transition %s -> %s", match.ErrConflict, cur.Status, next.Status)
	}
	if len(next.Players) > match.MaxPlayers {
		return nil, fmt.Errorf("%w: match %s is full", match.ErrConflict, id)
	}

	next.OpponentID = nil
	for _, p := range next.Players {
		if p.UserID != next.CreatorID {
			uid := p.UserID
			next.OpponentID = &uid
		}
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := tx.ExecContext(ctx, casUpdateQuery,
		next.OpponentID, next.Players, next.Status, next.RoomCode, next.RoomCodeExpiryAt,
		next.GameActualStartAt, next.WinnerID, next.CancelReason, next.ForfeitedBy,
		next.Commission, next.Prize, next.Version, next.UpdatedAt,
		id, expectedVersion, expectedStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update match %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: match %s changed concurrently", match.ErrConflict, id)
	}
	return next, nil
}

// ListExpired returns matches whose join or room-code timer has lapsed,
// oldest first. offset skips candidates the caller already tried.
func (s *MatchStore) ListExpired(ctx context.Context, now time.Time, limit, offset int) ([]match.Match, error) {
	var matches []match.Match
	err := s.db.SelectContext(ctx, &matches, expiredMatchesQuery, now, now, limit, offset)
	return matches, err
}

func (s *MatchStore) ListOpen(ctx context.Context, now time.Time, limit int) ([]match.Match, error) {
	var matches []match.Match
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE status = 'waiting' AND join_expiry_at > ? ORDER BY created_at DESC LIMIT ?",
		now, limit)
	return matches, err
}

func (s *MatchStore) ListRunning(ctx context.Context, limit int) ([]match.Match, error) {
	var matches []match.Match
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE status IN ('live', 'result_pending') ORDER BY updated_at DESC LIMIT ?",
		limit)
	return matches, err
}

// UserFilter narrows ListForUser.
type UserFilter string

const (
	FilterAll       UserFilter = "all"
	FilterActive    UserFilter = "active"
	FilterCompleted UserFilter = "completed"
	FilterCancelled UserFilter = "cancelled"
)

func (f UserFilter) statuses() []match.Status {
	switch f {
	case FilterActive:
		return []match.Status{match.StatusWaiting, match.StatusLive, match.StatusResultPending}
	case FilterCompleted:
		return []match.Status{match.StatusCompleted}
	case FilterCancelled:
		return []match.Status{match.StatusCancelled}
	default:
		return nil
	}
}

func (s *MatchStore) ListForUser(ctx context.Context, userID uuid.UUID, filter UserFilter, limit int) ([]match.Match, error) {
	query := "SELECT * FROM matches WHERE (creator_id = ? OR opponent_id = ?)"
	args := []interface{}{userID, userID}

	if statuses := filter.statuses(); len(statuses) > 0 {
		q, inArgs, err := sqlx.In(" AND status IN (?)", statuses)
		if err != nil {
			return nil, err
		}
		query += q
		args = append(args, inArgs...)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	var matches []match.Match
	err := s.db.SelectContext(ctx, &matches, s.db.Rebind(query), args...)
	return matches, err
}

// List is the admin listing; status may be empty for all matches.
func (s *MatchStore) List(ctx context.Context, status match.Status, limit, offset int) ([]match.Match, int, error) {
	where := ""
	var args []interface{}
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM matches"+where, args...); err != nil {
		return nil, 0, err
	}

	var matches []match.Match
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	return matches, total, err
}

// DeleteCancelled physically removes the given matches, skipping any that
// are not cancelled. Returns the number of rows removed.
func (s *MatchStore) DeleteCancelled(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	query, args, err := sqlx.In("DELETE FROM matches WHERE status = 'cancelled' AND id IN (?)", strIDs)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
