package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// Balance is the current ledger state for a single user.
// UserID is the opaque subject issued by the identity provider.
type Balance struct {
	ID        uuid.UUID
	UserID    string
	Amount    decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an append-only ledger entry.
// Reference, when not empty, correlates the entry with an external payment
// intent or a project and is unique across the whole ledger.
type Transaction struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UserID      string
	Type        string
	Amount      decimal.Decimal
	Currency    string
	Description string
	Reference   string
	Status      string
}
