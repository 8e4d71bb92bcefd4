package ledger

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

// Transaction categories written by the engine.
const (
	CategoryMatchEntry  = "match entry"
	CategoryMatchWin    = "match win"
	CategoryMatchRefund = "match refund"
	CategoryDeposit     = "deposit"
)

// Entry describes one fund movement. Key must be unique per movement; a
// replayed key is answered from the original row without moving money.
type Entry struct {
	UserID      uuid.UUID
	Amount      int64
	Category    string
	Description string
	MatchID     *uuid.UUID
	Key         string
}

type Transaction struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	MatchID        *uuid.UUID `db:"match_id" json:"match_id,omitempty"`
	Amount         int64      `db:"amount" json:"amount"`
	Category       string     `db:"category" json:"category"`
	Description    string     `db:"description" json:"description"`
	IdempotencyKey string     `db:"idempotency_key" json:"-"`
	BalanceAfter   int64      `db:"balance_after" json:"balance_after"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Ledger is the wallet bookkeeping backed by the wallets and
// wallet_transactions tables. Debit and Credit run inside the caller's
// transaction so a match transition and its money move commit together.
type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const (
	debitQuery = `
		UPDATE wallets SET balance = balance - ?, updated_at = ?
		WHERE user_id = ? AND balance >= ?
	`
	creditQuery = `
		INSERT INTO wallets (user_id, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET balance = balance + excluded.balance, updated_at = excluded.updated_at
	`
	insertTransactionQuery = `
		INSERT INTO wallet_transactions (id, user_id, match_id, amount, category, description, idempotency_key, balance_after, created_at)
		VALUES (:id, :user_id, :match_id, :amount, :category, :description, :idempotency_key, :balance_after, :created_at)
	`
)

// Debit removes e.Amount from the user's wallet. The balance never goes
// negative: a short wallet yields match.ErrInsufficientFunds.
func (l *Ledger) Debit(ctx context.Context, tx *sqlx.Tx, e Entry) (int64, error) {
	if err := validate(e); err != nil {
		return 0, err
	}
	if prior, ok, err := l.replayed(ctx, tx, e.Key); err != nil || ok {
		return prior, err
	}

	res, err := tx.ExecContext(ctx, debitQuery, e.Amount, l.now(), e.UserID, e.Amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, fmt.Errorf("%w: need %d", match.ErrInsufficientFunds, e.Amount)
	}
	return l.record(ctx, tx, e, -e.Amount)
}

// Credit adds e.Amount to the user's wallet, creating it if needed.
func (l *Ledger) Credit(ctx context.Context, tx *sqlx.Tx, e Entry) (int64, error) {
	if err := validate(e); err != nil {
		return 0, err
	}
	if prior, ok, err := l.replayed(ctx, tx, e.Key); err != nil || ok {
		return prior, err
	}

	if _, err := tx.ExecContext(ctx, creditQuery, e.UserID, e.Amount, l.now()); err != nil {
		return 0, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return l.record(ctx, tx, e, e.Amount)
}

// Deposit funds a wallet outside of any match.
func (l *Ledger) Deposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (int64, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := l.Credit(ctx, tx, Entry{
		UserID:      userID,
		Amount:      amount,
		Category:    CategoryDeposit,
		Description: description,
		Key:         "deposit:" + uuid.NewString(),
	})
	if err != nil {
		return 0, err
	}
	return balance, tx.Commit()
}

// Balance returns zero for a user who has never been funded.
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := l.db.GetContext(ctx, &balance, "SELECT balance FROM wallets WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (l *Ledger) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := l.db.SelectContext(ctx, &txs,
		"SELECT * FROM wallet_transactions WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		userID, limit)
	return txs, err
}

// MatchTransactions lists every movement booked against a match, oldest
// first.
func (l *Ledger) MatchTransactions(ctx context.Context, matchID uuid.UUID) ([]Transaction, error) {
	var txs []Transaction
	err := l.db.SelectContext(ctx, &txs,
		"SELECT * FROM wallet_transactions WHERE match_id = ? ORDER BY created_at ASC, rowid ASC",
		matchID)
	return txs, err
}

func (l *Ledger) replayed(ctx context.Context, tx *sqlx.Tx, key string) (int64, bool, error) {
	var balanceAfter int64
	err := tx.GetContext(ctx, &balanceAfter,
		"SELECT balance_after FROM wallet_transactions WHERE idempotency_key = ?", key)
	switch {
	case err == nil:
		return balanceAfter, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
}

func (l *Ledger) record(ctx context.Context, tx *sqlx.Tx, e Entry, signed int64) (int64, error) {
	var balance int64
	if err := tx.GetContext(ctx, &balance, "SELECT balance FROM wallets WHERE user_id = ?", e.UserID); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	row := Transaction{
		ID:             uuid.New(),
		UserID:         e.UserID,
		MatchID:        e.MatchID,
		Amount:         signed,
		Category:       e.Category,
		Description:    e.Description,
		IdempotencyKey: e.Key,
		BalanceAfter:   balance,
		CreatedAt:      l.now(),
	}
	if _, err := tx.NamedExecContext(ctx, insertTransactionQuery, row); err != nil {
		return 0, fmt.Errorf("failed to record transaction: %w", err)
	}
	return balance, nil
}

func validate(e Entry) error {
	if e.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", match.ErrValidation)
	}
	if e.Key == "" {
		return fmt.Errorf("%w: idempotency key required", match.ErrValidation)
	}
	return nil
}

// Keys for match settlement movements. One key per (match, kind, user)
// makes a retried settlement a no-op.
func EntryKey(matchID, userID uuid.UUID) string {
	return fmt.Sprintf("match:%s:entry:%s", matchID, userID)
}

func PayoutKey(matchID uuid.UUID) string {
	return fmt.Sprintf("match:%s:payout", matchID)
}

func RefundKey(matchID, userID uuid.UUID) string {
	return fmt.Sprintf("match:%s:refund:%s", matchID, userID)
}
