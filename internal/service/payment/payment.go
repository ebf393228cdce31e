// Package payment owns the balance ledger: every balance mutation goes through
// this service and is recorded as exactly one transaction.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/gateway"
	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
	"github.com/mkravets/projectdesk/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Gateway is the part of the payment processor API the service depends on
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, meta gateway.Metadata) (gateway.Intent, error)
	RetrieveIntent(ctx context.Context, id string) (gateway.Intent, error)
}

// BalanceUpdate is the outcome of a credit or debit.
// AlreadyProcessed is set when the reference had been applied before: the
// returned transaction then is the previously recorded one and the balance is
// unchanged by this call.
type BalanceUpdate struct {
	Balance          models.Balance
	Transaction      models.Transaction
	AlreadyProcessed bool
	Note             string
}

type PaymentService struct {
	storage  repository.Storage
	gateway  Gateway
	logger   logger.Logger
	currency string
}

func NewService(storage repository.Storage, gw Gateway, currency string, l logger.Logger) *PaymentService {
	if currency == "" {
		currency = models.CurrencyINR
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &PaymentService{
		storage:  storage,
		gateway:  gw,
		logger:   l,
		currency: currency,
	}
}

// GetBalance returns the user balance, lazily creating a zero one
func (s *PaymentService) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	return s.storage.Ledger().GetOrCreateBalance(ctx, userID, s.currency)
}

// HasSufficientBalance reports whether the balance covers the amount.
// Pure read, no side effect besides the lazy balance creation
func (s *PaymentService) HasSufficientBalance(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}

	return balance.Amount.GreaterThanOrEqual(amount), nil
}

// Credit increases the balance and records a credit transaction.
// Idempotent on reference: a reference that was applied before (by any path,
// including a concurrent call) returns the previously recorded transaction and
// does not credit again. The unique index on reference is the authoritative
// guard; the lookup below is only a fast path.
func (s *PaymentService) Credit(ctx context.Context, userID string, amount decimal.Decimal, reference string, description string) (BalanceUpdate, error) {
	var upd BalanceUpdate

	if !amount.IsPositive() {
		return upd, apperrors.ErrAmountNotPositive
	}
	if reference == "" {
		return upd, apperrors.ErrReferenceRequired
	}

	existing, err := s.alreadyApplied(ctx, userID, reference)
	switch {
	case err == nil:
		s.logger.Warn("Duplicate credit prevented", "user_id", userID, "reference", reference)
		return existing, nil
	case !errors.Is(err, apperrors.ErrTransactionNotFound):
		return upd, err
	}

	// Credits apply to known users only, unlike the lazy GetBalance
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		balance, err := st.Ledger().ApplyDelta(ctx, userID, amount)
		if err != nil {
			return err
		}

		transaction, err := st.Ledger().CreateTransaction(ctx, models.Transaction{
			UserID:      userID,
			Type:        models.TransactionTypeCredit,
			Amount:      amount,
			Currency:    balance.Currency,
			Description: description,
			Reference:   reference,
			Status:      models.TransactionStatusCompleted,
		})
		if err != nil {
			return err
		}

		upd = BalanceUpdate{Balance: balance, Transaction: transaction}
		return nil
	})

	// Lost the insert race: the whole tx rolled back, return the winner's entry
	if errors.Is(err, apperrors.ErrDuplicateReference) {
		s.logger.Warn("Concurrent duplicate credit prevented", "user_id", userID, "reference", reference)
		return s.alreadyApplied(ctx, userID, reference)
	}
	if err != nil {
		return upd, fmt.Errorf("failed to credit balance: %w", err)
	}

	s.logger.Info("Balance credited",
		"user_id", userID, "amount", amount.String(), "reference", reference,
		"new_balance", upd.Balance.Amount.String(),
	)
	return upd, nil
}

// Debit decreases the balance and records a debit transaction.
// Fails with apperrors.ErrBalanceInsufficient without any partial mutation.
// The reference here is descriptive (a project id), NOT a dedup key: retrying
// a debit applies it again. Callers that cannot guarantee a single call should
// use DebitOnce instead.
func (s *PaymentService) Debit(ctx context.Context, userID string, amount decimal.Decimal, reference string, description string) (BalanceUpdate, error) {
	var upd BalanceUpdate

	if !amount.IsPositive() {
		return upd, apperrors.ErrAmountNotPositive
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		balance, err := st.Ledger().ApplyDelta(ctx, userID, amount.Neg())
		if err != nil {
			return err
		}

		transaction, err := st.Ledger().CreateTransaction(ctx, models.Transaction{
			UserID:      userID,
			Type:        models.TransactionTypeDebit,
			Amount:      amount,
			Currency:    balance.Currency,
			Description: description,
			Reference:   reference,
			Status:      models.TransactionStatusCompleted,
		})
		if err != nil {
			return err
		}

		upd = BalanceUpdate{Balance: balance, Transaction: transaction}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrBalanceInsufficient) || errors.Is(err, apperrors.ErrUserNotFound) || errors.Is(err, apperrors.ErrDuplicateReference) {
			return upd, err
		}
		return upd, fmt.Errorf("failed to debit balance: %w", err)
	}

	s.logger.Info("Balance debited",
		"user_id", userID, "amount", amount.String(), "reference", reference,
		"new_balance", upd.Balance.Amount.String(),
	)
	return upd, nil
}

// DebitOnce is the reference-guarded debit: a reference that was applied
// before short-circuits exactly like Credit does
func (s *PaymentService) DebitOnce(ctx context.Context, userID string, amount decimal.Decimal, reference string, description string) (BalanceUpdate, error) {
	if reference == "" {
		return BalanceUpdate{}, apperrors.ErrReferenceRequired
	}

	existing, err := s.alreadyApplied(ctx, userID, reference)
	switch {
	case err == nil:
		s.logger.Warn("Duplicate debit prevented", "user_id", userID, "reference", reference)
		return existing, nil
	case !errors.Is(err, apperrors.ErrTransactionNotFound):
		return BalanceUpdate{}, err
	}

	upd, err := s.Debit(ctx, userID, amount, reference, description)
	if errors.Is(err, apperrors.ErrDuplicateReference) {
		return s.alreadyApplied(ctx, userID, reference)
	}

	return upd, err
}

// CreatePaymentIntent starts a balance top-up with the payment processor.
// The original amount and the user id travel in the intent metadata so both
// confirmation paths can verify them later
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID string, amount decimal.Decimal) (gateway.Intent, error) {
	if !amount.IsPositive() {
		return gateway.Intent{}, apperrors.ErrAmountNotPositive
	}

	intent, err := s.gateway.CreateIntent(ctx, amount, s.currency, gateway.Metadata{
		gateway.MetaUserID:         userID,
		gateway.MetaKind:           gateway.KindBalanceTopup,
		gateway.MetaOriginalAmount: amount.String(),
	})
	if err != nil {
		return gateway.Intent{}, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.logger.Info("Payment intent created", "user_id", userID, "intent_id", intent.ID, "amount", amount.String())
	return intent, nil
}

// ProcessDirectPayment is the client-confirmation path: the claimed payment is
// verified against the processor's record before any credit. Every gate must
// pass, in order:
//  1. the intent status is succeeded
//  2. the claimed amount equals the processor-reported amount exactly
//  3. the user id in the intent metadata equals the caller's
//  4. the intent was not credited before (then return the prior result as
//     success with a note, not as an error)
func (s *PaymentService) ProcessDirectPayment(ctx context.Context, userID string, amount decimal.Decimal, intentID string) (BalanceUpdate, error) {
	var upd BalanceUpdate

	if !amount.IsPositive() {
		return upd, apperrors.ErrAmountNotPositive
	}
	if intentID == "" {
		return upd, apperrors.ErrReferenceRequired
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return upd, fmt.Errorf("failed to verify payment: %w", err)
	}

	if intent.Status != gateway.IntentStatusSucceeded {
		return upd, fmt.Errorf("%w: status %q", apperrors.ErrPaymentNotSucceeded, intent.Status)
	}

	if !intent.Amount.Equal(amount) {
		s.logger.Warn("Payment amount mismatch",
			"user_id", userID, "intent_id", intentID,
			"claimed", amount.String(), "reported", intent.Amount.String(),
		)
		return upd, fmt.Errorf("%w: expected %s, got %s", apperrors.ErrAmountMismatch, amount.String(), intent.Amount.String())
	}

	if intent.Metadata[gateway.MetaUserID] != userID {
		s.logger.Warn("Payment identity mismatch", "user_id", userID, "intent_id", intentID)
		return upd, apperrors.ErrIdentityMismatch
	}

	upd, err = s.Credit(ctx, userID, amount, intentID, "Balance top-up (direct confirmation)")
	if err != nil {
		return upd, err
	}
	if upd.AlreadyProcessed {
		upd.Note = "Payment already processed (returning existing data)"
	}

	return upd, nil
}

// HandleEvent is the asynchronous confirmation path.
// Unknown event kinds and succeeded payments that are not balance top-ups are
// ignored, not errors. A returned error means the delivery should be retried
// by the gateway
func (s *PaymentService) HandleEvent(ctx context.Context, event gateway.Event) error {
	switch e := event.(type) {
	case gateway.PaymentSucceeded:
		userID := e.Metadata[gateway.MetaUserID]
		if userID == "" || e.Metadata[gateway.MetaKind] != gateway.KindBalanceTopup {
			s.logger.Warn("Payment succeeded but is not a balance top-up", "event_id", e.ID, "intent_id", e.IntentID)
			return nil
		}

		upd, err := s.Credit(ctx, userID, e.Amount, e.IntentID, "Balance top-up")
		if err != nil {
			return fmt.Errorf("failed to apply succeeded payment %s: %w", e.IntentID, err)
		}

		s.logger.Info("Webhook payment applied",
			"event_id", e.ID, "intent_id", e.IntentID, "user_id", userID,
			"already_processed", upd.AlreadyProcessed,
		)
		return nil

	case gateway.PaymentFailed:
		// Observational only, no balance mutation
		s.logger.Warn("Payment failed",
			"event_id", e.ID, "intent_id", e.IntentID,
			"user_id", e.Metadata[gateway.MetaUserID], "reason", e.Reason,
		)
		return nil

	default:
		s.logger.Debug("Ignoring webhook event", "event_id", event.EventID())
		return nil
	}
}

// ListTransactions returns the user history, newest first
func (s *PaymentService) ListTransactions(ctx context.Context, userID string, limit int, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	return s.storage.Ledger().ListTransactions(ctx, userID, limit, offset)
}

// alreadyApplied returns the recorded transaction for the reference together
// with the current balance
func (s *PaymentService) alreadyApplied(ctx context.Context, userID string, reference string) (BalanceUpdate, error) {
	transaction, err := s.storage.Ledger().FindTransactionByReference(ctx, reference)
	if err != nil {
		return BalanceUpdate{}, err
	}

	balance, err := s.storage.Ledger().GetBalance(ctx, userID)
	if err != nil {
		return BalanceUpdate{}, err
	}

	return BalanceUpdate{
		Balance:          balance,
		Transaction:      transaction,
		AlreadyProcessed: true,
	}, nil
}
