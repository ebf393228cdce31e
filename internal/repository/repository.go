package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/models"
)

// Ledger repository interface
type LedgerRepo interface {
	// Return the user balance, creating a zero one if it does not exist yet.
	// Concurrent calls for the same user must not create two records
	GetOrCreateBalance(ctx context.Context, userID string, currency string) (models.Balance, error)

	// Return the user balance as is
	// If the balance does not exist must return apperrors.ErrUserNotFound
	GetBalance(ctx context.Context, userID string) (models.Balance, error)

	// Atomically add delta (may be negative) to the user balance.
	// A result below zero must be rejected with apperrors.ErrBalanceInsufficient.
	// If the balance does not exist must return apperrors.ErrUserNotFound
	ApplyDelta(ctx context.Context, userID string, delta decimal.Decimal) (models.Balance, error)

	// Insert immutable ledger entry.
	// A duplicate non-empty reference must return apperrors.ErrDuplicateReference
	CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// Find transaction by its external reference
	// If not found must return apperrors.ErrTransactionNotFound
	FindTransactionByReference(ctx context.Context, reference string) (models.Transaction, error)

	// List user transactions ordered newest first
	ListTransactions(ctx context.Context, userID string, limit int, offset int) ([]models.Transaction, error)
}

// Project repository interface
type ProjectRepo interface {
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)

	// If project not found (or owned by another user) must return apperrors.ErrProjectNotFound
	GetProject(ctx context.Context, id uuid.UUID, userID string) (models.Project, error)
	UpdateProject(ctx context.Context, p models.Project) (models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID, userID string) error

	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
	ListProjectsByStatus(ctx context.Context, userID string, status string) ([]models.Project, error)

	// Case-insensitive substring match on title, description or tags
	SearchProjects(ctx context.Context, userID string, query string) ([]models.Project, error)

	// Number of projects per status for the user
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
}

type Storage interface {
	Ledger() LedgerRepo
	Project() ProjectRepo

	// Run fn within single db transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
