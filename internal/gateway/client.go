// Package gateway wraps the external payment processor REST API: creating and
// retrieving payment intents and decoding signed webhook deliveries.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/logger"
)

const (
	IntentStatusSucceeded  = "succeeded"
	IntentStatusProcessing = "processing"
	IntentStatusFailed     = "failed"
)

// Metadata keys the service attaches to every top-up intent
const (
	MetaUserID         = "userId"
	MetaKind           = "type"
	MetaOriginalAmount = "originalAmount"

	KindBalanceTopup = "balance_topup"
)

type Metadata map[string]string

// Intent is the processor's view of a single payment.
// Amount is in major currency units; the wire format uses minor units and the
// conversion happens only at this boundary.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
	Currency     string
	Metadata     Metadata
}

type wireIntent struct {
	ID           string   `json:"id"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Status       string   `json:"status"`
	Amount       int64    `json:"amount"`
	Currency     string   `json:"currency"`
	Metadata     Metadata `json:"metadata"`
}

func (w wireIntent) toIntent() Intent {
	meta := w.Metadata
	if meta == nil {
		meta = Metadata{}
	}

	return Intent{
		ID:           w.ID,
		ClientSecret: w.ClientSecret,
		Status:       w.Status,
		Amount:       minorToAmount(w.Amount),
		Currency:     w.Currency,
		Metadata:     meta,
	}
}

type Client struct {
	client *resty.Client
	logger logger.Logger
}

func NewClient(baseURL string, secretKey string, l logger.Logger) *Client {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client: client,
		logger: l,
	}
}

// CreateIntent registers a new charge intent with the processor.
// The returned client secret is handed to the frontend to complete the payment
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, meta Metadata) (Intent, error) {
	body := map[string]any{
		"amount":   amountToMinor(amount),
		"currency": currency,
		"metadata": meta,
	}

	var wi wireIntent
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&wi).
		Post("/v1/payment_intents")
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %w", apperrors.ErrGatewayUnavailable, err)
	}

	if resp.IsError() {
		c.logger.Warn("Failed to create payment intent", "status_code", resp.StatusCode())
		return Intent{}, fmt.Errorf("%w: unexpected status %d", apperrors.ErrGatewayUnavailable, resp.StatusCode())
	}

	c.logger.Debug("Payment intent created", "intent_id", wi.ID, "amount", wi.Amount)
	return wi.toIntent(), nil
}

// RetrieveIntent fetches the authoritative state of the intent by its id
func (c *Client) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	var wi wireIntent
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&wi).
		Get("/v1/payment_intents/" + id)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %w", apperrors.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return Intent{}, apperrors.ErrIntentNotFound
	case resp.IsError():
		c.logger.Warn("Failed to retrieve payment intent", "intent_id", id, "status_code", resp.StatusCode())
		return Intent{}, fmt.Errorf("%w: unexpected status %d", apperrors.ErrGatewayUnavailable, resp.StatusCode())
	}

	return wi.toIntent(), nil
}

func amountToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func minorToAmount(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
