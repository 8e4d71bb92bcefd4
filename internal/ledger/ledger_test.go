package ledger

import (
	"context"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err)

	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "sqlite3", driver)
	require.NoError(t, err)

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err)
	}
	return database
}

func inTx(t *testing.T, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	t.Helper()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func TestDebitAndCredit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	l := New(db)
	user := uuid.New()
	matchID := uuid.New()

	balance, err := l.Deposit(ctx, user, 100, "top up")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	testCases := []struct {
		name        string
		amount      int64
		key         string
		wantBalance int64
		wantErr     error
	}{
		{"debit within balance", 60, EntryKey(matchID, user), 40, nil},
		{"replayed key is a no-op", 60, EntryKey(matchID, user), 40, nil},
		{"overdraw is rejected", 41, "other", 0, match.ErrInsufficientFunds},
		{"zero amount is invalid", 0, "zero", 0, match.ErrValidation},
		{"missing key is invalid", 10, "", 0, match.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got int64
			err := inTx(t, db, func(tx *sqlx.Tx) error {
				var err error
				got, err = l.Debit(ctx, tx, Entry{
					UserID: user, Amount: tc.amount, Category: CategoryMatchEntry,
					MatchID: &matchID, Key: tc.key,
				})
				return err
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantBalance, got)
		})
	}

	balance, err = l.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	err = inTx(t, db, func(tx *sqlx.Tx) error {
		_, err := l.Credit(ctx, tx, Entry{
			UserID: user, Amount: 60, Category: CategoryMatchRefund,
			MatchID: &matchID, Key: RefundKey(matchID, user),
		})
		if err != nil {
			return err
		}
		_, err = l.Credit(ctx, tx, Entry{
			UserID: user, Amount: 60, Category: CategoryMatchRefund,
			MatchID: &matchID, Key: RefundKey(matchID, user),
		})
		return err
	})
	require.NoError(t, err)

	balance, err = l.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	rows, err := l.MatchTransactions(ctx, matchID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(-60), rows[0].Amount)
	assert.Equal(t, int64(60), rows[1].Amount)
	assert.Equal(t, CategoryMatchRefund, rows[1].Category)

	all, err := l.Transactions(ctx, user, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDebitUnfundedWallet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	l := New(db)
	err := inTx(t, db, func(tx *sqlx.Tx) error {
		_, err := l.Debit(context.Background(), tx, Entry{
			UserID: uuid.New(), Amount: 1, Category: CategoryMatchEntry, Key: "k",
		})
		return err
	})
	assert.ErrorIs(t, err, match.ErrInsufficientFunds)

	balance, err := l.Balance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRollbackUndoesMovement(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	l := New(db)
	user := uuid.New()
	_, err := l.Deposit(ctx, user, 50, "")
	require.NoError(t, err)

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	_, err = l.Debit(ctx, tx, Entry{UserID: user, Amount: 50, Category: CategoryMatchEntry, Key: "rolled-back"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	balance, err := l.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	// The key was never committed, so it can be used again.
	err = inTx(t, db, func(tx *sqlx.Tx) error {
		_, err := l.Debit(ctx, tx, Entry{UserID: user, Amount: 50, Category: CategoryMatchEntry, Key: "rolled-back"})
		return err
	})
	require.NoError(t, err)
	balance, err = l.Balance(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, balance)
}
