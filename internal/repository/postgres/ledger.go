package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/models"
)

type LedgerRepo struct {
	DB DBTX
}

// Create balance with zero amount or return the existing one as is
// Safe to race: only one row per user can be inserted
const getOrCreateBalance = `-- name: GetOrCreateBalance
WITH insert_balance AS (
	INSERT INTO balances (id, user_id, amount, currency)
	VALUES ($1, $2, 0, $3)
	ON CONFLICT (user_id) DO NOTHING
	RETURNING id, user_id, amount, currency, created_at, updated_at
)
SELECT * FROM insert_balance
UNION
SELECT id, user_id, amount, currency, created_at, updated_at FROM balances WHERE user_id = $2
`

func (r *LedgerRepo) GetOrCreateBalance(ctx context.Context, userID string, currency string) (models.Balance, error) {
	var balance models.Balance
	var err error

	// Under read committed a concurrent insert may commit between the CTE's
	// snapshot and conflict resolution, leaving both branches empty.
	// The row exists by then, so the next attempt finds it
	for attempt := 0; attempt < 3; attempt++ {
		rows, _ := r.DB.Query(ctx, getOrCreateBalance, uuid.New(), userID, currency)
		balance, err = pgx.CollectOneRow(rows, rowToBalance)
		if err == nil {
			return balance, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			break
		}
	}

	return balance, fmt.Errorf("db error: %w", err)
}

const getBalance = `-- name: GetBalance
SELECT id, user_id, amount, currency, created_at, updated_at FROM balances
WHERE user_id = $1
`

func (r *LedgerRepo) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, getBalance, userID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return balance, apperrors.ErrUserNotFound
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

// Conditional update: the row is locked for the duration of the statement, so
// concurrent deltas for one user serialize and never read a stale amount
const applyDelta = `-- name: ApplyDelta
UPDATE balances
SET amount = amount + $2, updated_at = $3
WHERE user_id = $1 AND amount + $2 >= 0
RETURNING id, user_id, amount, currency, created_at, updated_at
`

func (r *LedgerRepo) ApplyDelta(ctx context.Context, userID string, delta decimal.Decimal) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, applyDelta, userID, delta, time.Now())
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either the balance is missing or the delta would make it negative
		if _, getErr := r.GetBalance(ctx, userID); getErr != nil {
			return balance, getErr
		}
		return balance, apperrors.ErrBalanceInsufficient
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, created_at, user_id, type, amount, currency, description, reference, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
RETURNING id, created_at, user_id, type, amount, currency, description, COALESCE(reference, ''), status
`

func (r *LedgerRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createTransaction,
		t.ID, t.CreatedAt, t.UserID, t.Type, t.Amount, t.Currency, t.Description, t.Reference, t.Status,
	)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrDuplicateReference
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const findTransactionByReference = `-- name: FindTransactionByReference
SELECT id, created_at, user_id, type, amount, currency, description, COALESCE(reference, ''), status
FROM transactions
WHERE reference = $1
`

func (r *LedgerRepo) FindTransactionByReference(ctx context.Context, reference string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, findTransactionByReference, reference)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrTransactionNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const listTransactions = `-- name: ListTransactions
SELECT id, created_at, user_id, type, amount, currency, description, COALESCE(reference, ''), status
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (r *LedgerRepo) ListTransactions(ctx context.Context, userID string, limit int, offset int) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactions, userID, limit, offset)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.ID, &b.UserID, &b.Amount, &b.Currency, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Description, &t.Reference, &t.Status)
	return t, err
}
