package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound = errors.New("user balance not found")

	ErrAmountNotPositive   = errors.New("amount must be positive")
	ErrReferenceRequired   = errors.New("reference is required")
	ErrBalanceInsufficient = errors.New("insufficient balance")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateReference  = errors.New("transaction reference already used")

	ErrPaymentNotSucceeded = errors.New("payment is not succeeded")
	ErrAmountMismatch      = errors.New("claimed amount does not match the payment")
	ErrIdentityMismatch    = errors.New("payment belongs to a different user")

	ErrInvalidSignature   = errors.New("webhook signature is invalid")
	ErrIntentNotFound     = errors.New("payment intent not found")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	ErrProjectNotFound = errors.New("project not found")
)
