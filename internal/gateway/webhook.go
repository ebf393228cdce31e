package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/apperrors"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// DefaultTolerance is how old a webhook timestamp may be before the delivery
// is rejected as a possible replay
const DefaultTolerance = 5 * time.Minute

// Event is a webhook payload decoded once at the boundary.
// Exactly one variant implements it per delivery.
type Event interface {
	EventID() string
}

type PaymentSucceeded struct {
	ID       string
	IntentID string
	Amount   decimal.Decimal
	Currency string
	Metadata Metadata
}

func (e PaymentSucceeded) EventID() string { return e.ID }

type PaymentFailed struct {
	ID       string
	IntentID string
	Metadata Metadata
	Reason   string
}

func (e PaymentFailed) EventID() string { return e.ID }

// UnknownEvent is any delivery kind the service does not handle.
// It is ignored, not an error
type UnknownEvent struct {
	ID   string
	Type string
}

func (e UnknownEvent) EventID() string { return e.ID }

type wireEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			wireIntent
			LastError string `json:"last_payment_error,omitempty"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookVerifier checks delivery signatures and decodes event payloads
type WebhookVerifier struct {
	Secret    string
	Tolerance time.Duration

	// now is replaceable in tests
	now func() time.Time
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{
		Secret:    secret,
		Tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// ConstructEvent verifies the signature header and decodes the payload.
// Signature scheme is the processor's "t=<unix>,v1=<hex hmac-sha256>" over
// "<unix>.<payload>" keyed with the endpoint signing secret.
// Returns apperrors.ErrInvalidSignature on any verification failure, so the
// payload never reaches event dispatch unverified
func (v *WebhookVerifier) ConstructEvent(payload []byte, sigHeader string) (Event, error) {
	ts, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidSignature, err)
	}

	now := v.now
	if now == nil {
		now = time.Now
	}
	if v.Tolerance > 0 && now().Sub(time.Unix(ts, 0)) > v.Tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", apperrors.ErrInvalidSignature)
	}

	expected := Sign(payload, v.Secret, ts)
	verified := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, fmt.Errorf("%w: no matching v1 signature", apperrors.ErrInvalidSignature)
	}

	return decodeEvent(payload)
}

// Sign computes the v1 signature for the payload, exposed so tests and fake
// gateways can produce valid deliveries
func Sign(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts int64, signatures []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("signature header is empty")
	}

	for _, part := range strings.Split(header, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, fmt.Errorf("malformed signature header")
		}

		switch k {
		case "t":
			ts, err = strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("malformed timestamp: %w", err)
			}
		case "v1":
			signatures = append(signatures, val)
		}
	}

	if ts == 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("signature header misses timestamp or v1 signature")
	}

	return ts, signatures, nil
}

func decodeEvent(payload []byte) (Event, error) {
	var we wireEvent
	if err := json.Unmarshal(payload, &we); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	intent := we.Data.Object.toIntent()

	switch we.Type {
	case EventPaymentSucceeded:
		return PaymentSucceeded{
			ID:       we.ID,
			IntentID: intent.ID,
			Amount:   intent.Amount,
			Currency: intent.Currency,
			Metadata: intent.Metadata,
		}, nil
	case EventPaymentFailed:
		return PaymentFailed{
			ID:       we.ID,
			IntentID: intent.ID,
			Metadata: intent.Metadata,
			Reason:   we.Data.Object.LastError,
		}, nil
	default:
		return UnknownEvent{ID: we.ID, Type: we.Type}, nil
	}
}
