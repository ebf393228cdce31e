package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/handlers/render"
	"github.com/mkravets/projectdesk/internal/handlers/userctx"
	"github.com/mkravets/projectdesk/internal/logger"
)

const maxWebhookBodyBytes = 64 * 1024

type transactionResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Reference   string    `json:"reference,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func handleGetBalance(paymentService paymentService, l logger.Logger) http.Handler {
	type response struct {
		Balance  float64 `json:"balance"`
		Currency string  `json:"currency"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		balance, err := paymentService.GetBalance(r.Context(), userID)

		switch err {
		case nil:
			amount, _ := balance.Amount.Float64()
			render.JSON(w, response{Balance: amount, Currency: balance.Currency})
		default:
			l.Error("Failed to get balance", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleCreatePaymentIntent(paymentService paymentService, l logger.Logger) http.Handler {
	type request struct {
		Amount decimal.Decimal `json:"amount" validate:"required"`
	}

	type response struct {
		ClientSecret    string `json:"clientSecret"`
		PaymentIntentID string `json:"paymentIntentId"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		intent, err := paymentService.CreatePaymentIntent(r.Context(), userID, req.Amount)

		switch {
		case err == nil:
			render.JSON(w, response{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID})
		case errors.Is(err, apperrors.ErrAmountNotPositive):
			render.ServiceError(w, "Valid amount is required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrGatewayUnavailable):
			l.Error("Payment gateway unavailable", "error", err, "user_id", userID)
			render.ServiceError(w, "Payment gateway unavailable", http.StatusBadGateway)
		default:
			l.Error("Failed to create payment intent", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListTransactions(paymentService paymentService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		transactions, err := paymentService.ListTransactions(r.Context(), userID, limit, offset)
		if err != nil {
			l.Error("Failed to list transactions", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]transactionResponse, 0, len(transactions))
		for _, t := range transactions {
			amount, _ := t.Amount.Float64()
			resp = append(resp, transactionResponse{
				ID:          t.ID,
				Type:        t.Type,
				Amount:      amount,
				Currency:    t.Currency,
				Description: t.Description,
				Reference:   t.Reference,
				Status:      t.Status,
				CreatedAt:   t.CreatedAt,
			})
		}
		render.JSON(w, resp)
	})
}

func handleProcessDirectPayment(paymentService paymentService, l logger.Logger) http.Handler {
	type request struct {
		Amount          decimal.Decimal `json:"amount" validate:"required"`
		PaymentIntentID string          `json:"paymentIntentId" validate:"required"`
	}

	type response struct {
		NewBalance  float64             `json:"newBalance"`
		Transaction transactionResponse `json:"transaction"`
		Note        string              `json:"note,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		upd, err := paymentService.ProcessDirectPayment(r.Context(), userID, req.Amount, req.PaymentIntentID)

		switch {
		case err == nil:
			newBalance, _ := upd.Balance.Amount.Float64()
			amount, _ := upd.Transaction.Amount.Float64()
			render.JSON(w, response{
				NewBalance: newBalance,
				Transaction: transactionResponse{
					ID:          upd.Transaction.ID,
					Type:        upd.Transaction.Type,
					Amount:      amount,
					Currency:    upd.Transaction.Currency,
					Description: upd.Transaction.Description,
					Reference:   upd.Transaction.Reference,
					Status:      upd.Transaction.Status,
					CreatedAt:   upd.Transaction.CreatedAt,
				},
				Note: upd.Note,
			})
		case errors.Is(err, apperrors.ErrPaymentNotSucceeded):
			render.ServiceError(w, "Payment not successful", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrAmountMismatch):
			render.ServiceError(w, "Payment amount mismatch", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrIdentityMismatch):
			render.ServiceError(w, "Payment user verification failed", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrIntentNotFound):
			render.ServiceError(w, "Payment intent not found", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User balance not found", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrGatewayUnavailable):
			l.Error("Payment gateway unavailable", "error", err, "user_id", userID, "reference", req.PaymentIntentID)
			render.ServiceError(w, "Payment gateway unavailable", http.StatusBadGateway)
		default:
			l.Error("Failed to process direct payment", "error", err, "user_id", userID, "reference", req.PaymentIntentID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleWebhook(paymentService paymentService, verifier webhookVerifier, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Signature is computed over the raw body, read it before any decoding
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			render.ServiceError(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		event, err := verifier.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			l.Warn("Webhook signature verification failed", "error", err)
			render.ServiceError(w, "Webhook signature verification failed", http.StatusBadRequest)
			return
		}

		if err := paymentService.HandleEvent(r.Context(), event); err != nil {
			// Non-200 makes the gateway redeliver, no in-process retry
			l.Error("Webhook processing failed", "error", err, "event_id", event.EventID())
			render.ServiceError(w, "Webhook processing failed", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Message: "Webhook processed successfully"})
	})
}

func handleCheckProjectEligibility(projectService projectService, paymentService paymentService, l logger.Logger) http.Handler {
	type response struct {
		Eligible       bool    `json:"eligible"`
		CurrentBalance float64 `json:"currentBalance"`
		RequiredAmount float64 `json:"requiredAmount"`
		Shortfall      float64 `json:"shortfall,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		balance, err := paymentService.GetBalance(r.Context(), userID)
		if err != nil {
			l.Error("Failed to get balance", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		fee := projectService.Fee()
		current, _ := balance.Amount.Float64()
		required, _ := fee.Float64()

		resp := response{
			Eligible:       balance.Amount.GreaterThanOrEqual(fee),
			CurrentBalance: current,
			RequiredAmount: required,
		}
		if !resp.Eligible {
			shortfall, _ := fee.Sub(balance.Amount).Float64()
			resp.Shortfall = shortfall
		}
		render.JSON(w, resp)
	})
}
