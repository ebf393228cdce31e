package e2e

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/projectdesk/internal/gateway"
	"github.com/mkravets/projectdesk/internal/handlers"
	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
	"github.com/mkravets/projectdesk/internal/repository/postgres"
	"github.com/mkravets/projectdesk/internal/service/payment"
	"github.com/mkravets/projectdesk/internal/service/project"
	"github.com/mkravets/projectdesk/internal/service/quote"
	"github.com/mkravets/projectdesk/internal/testutil"
)

const (
	AuthSecret    = "test-auth-secret"
	WebhookSecret = "whsec_test"
)

// ProjectFee matches the default creation fee the server is configured with
var ProjectFee = decimal.NewFromInt(100)

type Services struct {
	Payments *payment.PaymentService
	Projects *project.ProjectService
	Quotes   *quote.QuoteService
}

// ServeWithTx runs the full router on a db transaction (one connection cause
// one transaction). The transaction is passed to the inner function, so
// testutil.InTx can safely nest on it.
// The payment gateway is replaced with the given fake
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, gw payment.Gateway, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		payments := payment.NewService(storage, gw, models.CurrencyINR, nil)
		projects := project.NewService(storage, payments, ProjectFee, nil)
		quotes := quote.NewService("http://localhost:1", nil)

		router := handlers.NewRouter(
			payments,
			projects,
			quotes,
			gateway.NewWebhookVerifier(WebhookSecret),
			AuthSecret,
			logger.NewNoOpLogger(),
		)

		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			Payments: payments,
			Projects: projects,
			Quotes:   quotes,
		})
	})
}

// Token mints a bearer token the way the identity provider does
func Token(t *testing.T, userID string) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(AuthSecret))
	require.NoError(t, err, "signing test token should not fail")

	return signed
}
