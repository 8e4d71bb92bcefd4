package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/notify"
	"github.com/ludoarena/match-engine/internal/store"
	users "github.com/ludoarena/match-engine/internal/user"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "sqlite3", driver)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier keeps every event for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types(matchID uuid.UUID) []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.EventType
	for _, e := range n.events {
		if e.MatchID == matchID {
			out = append(out, e.Type)
		}
	}
	return out
}

type harness struct {
	db       *sqlx.DB
	clock    *fakeClock
	events   *recordingNotifier
	deps     Deps
	matches  *MatchService
	joins    *JoinArbiter
	claims   *ResultClaimCollector
	resolver *AdjudicationResolver
	admin    *AdminService
	expiry   *ExpiryScheduler
	ledger   *ledger.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	events := &recordingNotifier{}
	l := ledger.New(db)

	deps := Deps{
		DB:             db,
		Matches:        store.NewMatchStore(db),
		Results:        store.NewResultStore(db),
		Settings:       store.NewSettingsStore(db),
		Ledger:         l,
		Notifier:       events,
		JoinWindow:     10 * time.Minute,
		RoomCodeWindow: 5 * time.Minute,
		Clock:          clock.Now,
	}
	settlement := NewSettlementExecutor(deps.Matches, l)

	return &harness{
		db:       db,
		clock:    clock,
		events:   events,
		deps:     deps,
		matches:  NewMatchService(deps, settlement),
		joins:    NewJoinArbiter(deps),
		claims:   NewResultClaimCollector(deps),
		resolver: NewAdjudicationResolver(deps, settlement),
		admin:    NewAdminService(deps),
		expiry:   NewExpiryScheduler(deps, settlement, SweepOptions{Batch: 50, Concurrency: 4}),
		ledger:   l,
	}
}

func (h *harness) player(t *testing.T, name string, balance int64) *users.User {
	t.Helper()
	u := &users.User{ID: uuid.New(), Username: name, Email: name + "@example.com"}
	if balance > 0 {
		_, err := h.ledger.Deposit(context.Background(), u.ID, balance, "test funds")
		require.NoError(t, err)
	}
	return u
}

func (h *harness) adminUser() *users.User {
	return &users.User{ID: uuid.New(), Username: "referee", IsAdmin: true}
}

func (h *harness) balance(t *testing.T, u *users.User) int64 {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), u.ID)
	require.NoError(t, err)
	return b
}

func (h *harness) get(t *testing.T, id uuid.UUID) *match.Match {
	t.Helper()
	m, err := h.deps.Matches.Get(context.Background(), id)
	require.NoError(t, err)
	return m
}

// startedMatch creates a match, joins it and records a room code.
func (h *harness) startedMatch(t *testing.T, entry int64) (*match.Match, *users.User, *users.User) {
	t.Helper()
	ctx := context.Background()
	creator := h.player(t, "red", 1000)
	opponent := h.player(t, "blue", 1000)

	view, err := h.matches.Create(ctx, creator, entry)
	require.NoError(t, err)
	_, err = h.joins.Join(ctx, opponent, view.ID)
	require.NoError(t, err)
	_, err = h.matches.SubmitRoomCode(ctx, creator, view.ID, "LUDO1234")
	require.NoError(t, err)

	return h.get(t, view.ID), creator, opponent
}

// netMovement sums every ledger row booked against a match.
func (h *harness) netMovement(t *testing.T, matchID uuid.UUID) int64 {
	t.Helper()
	rows, err := h.ledger.MatchTransactions(context.Background(), matchID)
	require.NoError(t, err)
	var total int64
	for _, r := range rows {
		total += r.Amount
	}
	return total
}
