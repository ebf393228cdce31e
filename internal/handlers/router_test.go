package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/gateway"
	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
	"github.com/mkravets/projectdesk/internal/repository/postgres"
	"github.com/mkravets/projectdesk/internal/service/payment"
	"github.com/mkravets/projectdesk/internal/service/project"
	"github.com/mkravets/projectdesk/internal/testutil"
)

const (
	testAuthSecret    = "test-auth-secret"
	testWebhookSecret = "whsec_test"
)

// fakeGateway serves canned intents instead of calling the processor
type fakeGateway struct {
	intents map[string]gateway.Intent
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency string, meta gateway.Metadata) (gateway.Intent, error) {
	return gateway.Intent{
		ID:           "pi_created",
		ClientSecret: "pi_created_secret",
		Status:       gateway.IntentStatusProcessing,
		Amount:       amount,
		Currency:     currency,
		Metadata:     meta,
	}, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, id string) (gateway.Intent, error) {
	intent, ok := g.intents[id]
	if !ok {
		return gateway.Intent{}, apperrors.ErrIntentNotFound
	}
	return intent, nil
}

type fakeQuotes struct{}

func (fakeQuotes) GetRandomQuote(context.Context) models.Quote {
	return models.Quote{Content: "Make it work, make it right, make it fast.", Author: "Kent Beck"}
}

// token mints a bearer token the way the identity provider does
func token(t *testing.T, userID string) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testAuthSecret))
	require.NoError(t, err, "signing test token should not fail")

	return signed
}

func doRequest(t *testing.T, method string, url string, body string, bearer string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	return resp, string(respBody)
}

func TestRouter(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	fee := decimal.NewFromInt(100)

	// Run http server with production services on top of a rolled back transaction
	withTx := func(t *testing.T, gw *fakeGateway, fn func(url string, payments *payment.PaymentService)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			payments := payment.NewService(storage, gw, models.CurrencyINR, nil)
			projects := project.NewService(storage, payments, fee, nil)

			mux := NewRouter(
				payments,
				projects,
				fakeQuotes{},
				gateway.NewWebhookVerifier(testWebhookSecret),
				testAuthSecret,
				logger.NewNoOpLogger(),
			)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			fn(srv.URL, payments)
		})
	}

	topUp := func(t *testing.T, payments *payment.PaymentService, userID string, amount int64) {
		t.Helper()
		_, err := payments.GetBalance(t.Context(), userID)
		require.NoError(t, err)
		_, err = payments.Credit(t.Context(), userID, decimal.NewFromInt(amount), "test-top-up", "")
		require.NoError(t, err)
	}

	t.Run("auth", func(t *testing.T) {
		withTx(t, &fakeGateway{}, func(url string, _ *payment.PaymentService) {
			t.Run("no token", func(t *testing.T) {
				resp, _ := doRequest(t, http.MethodGet, url+"/api/payments/balance", "", "")

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("token signed with wrong secret", func(t *testing.T) {
				bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"sub": "user-123",
					"exp": time.Now().Add(time.Hour).Unix(),
				}).SignedString([]byte("other-secret"))
				require.NoError(t, err)

				resp, _ := doRequest(t, http.MethodGet, url+"/api/payments/balance", "", bad)

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("expired token", func(t *testing.T) {
				expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"sub": "user-123",
					"exp": time.Now().Add(-time.Hour).Unix(),
				}).SignedString([]byte(testAuthSecret))
				require.NoError(t, err)

				resp, _ := doRequest(t, http.MethodGet, url+"/api/payments/balance", "", expired)

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("token without expiration", func(t *testing.T) {
				eternal, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"sub": "user-123",
				}).SignedString([]byte(testAuthSecret))
				require.NoError(t, err)

				resp, _ := doRequest(t, http.MethodGet, url+"/api/payments/balance", "", eternal)

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		})
	})

	t.Run("get balance", func(t *testing.T) {
		withTx(t, &fakeGateway{}, func(url string, _ *payment.PaymentService) {
			resp, body := doRequest(t, http.MethodGet, url+"/api/payments/balance", "", token(t, "user-123"))

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"balance": 0, "currency": "INR"}`, body)
		})
	})

	t.Run("create payment intent", func(t *testing.T) {
		withTx(t, &fakeGateway{}, func(url string, _ *payment.PaymentService) {
			t.Run("create ok", func(t *testing.T) {
				resp, body := doRequest(t, http.MethodPost, url+"/api/payments/create-payment-intent",
					`{"amount": 500}`, token(t, "user-123"))

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"clientSecret": "pi_created_secret", "paymentIntentId": "pi_created"}`, body)
			})

			t.Run("missing amount", func(t *testing.T) {
				resp, _ := doRequest(t, http.MethodPost, url+"/api/payments/create-payment-intent",
					`{}`, token(t, "user-123"))

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			})

			t.Run("negative amount", func(t *testing.T) {
				resp, _ := doRequest(t, http.MethodPost, url+"/api/payments/create-payment-intent",
					`{"amount": -5}`, token(t, "user-123"))

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			})
		})
	})

	t.Run("process direct payment", func(t *testing.T) {
		gw := &fakeGateway{intents: map[string]gateway.Intent{
			"pi_1": {
				ID:       "pi_1",
				Status:   gateway.IntentStatusSucceeded,
				Amount:   decimal.NewFromInt(500),
				Currency: models.CurrencyINR,
				Metadata: gateway.Metadata{
					gateway.MetaUserID: "user-123",
					gateway.MetaKind:   gateway.KindBalanceTopup,
				},
			},
		}}

		t.Run("verified payment credits balance", func(t *testing.T) {
			withTx(t, gw, func(url string, payments *payment.PaymentService) {
				_, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)

				resp, body := doRequest(t, http.MethodPost, url+"/api/payments/process-direct-payment",
					`{"amount": 500, "paymentIntentId": "pi_1"}`, token(t, "user-123"))

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, `"newBalance":500`)
				require.Contains(t, body, `"reference":"pi_1"`)

				t.Run("repeated confirmation returns note", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodPost, url+"/api/payments/process-direct-payment",
						`{"amount": 500, "paymentIntentId": "pi_1"}`, token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.Contains(t, body, "Payment already processed")
					require.Contains(t, body, `"newBalance":500`, "balance should be credited exactly once")
				})
			})
		})

		t.Run("amount mismatch", func(t *testing.T) {
			withTx(t, gw, func(url string, payments *payment.PaymentService) {
				_, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)

				resp, body := doRequest(t, http.MethodPost, url+"/api/payments/process-direct-payment",
					`{"amount": 400, "paymentIntentId": "pi_1"}`, token(t, "user-123"))

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				require.Contains(t, body, "Payment amount mismatch")
			})
		})

		t.Run("foreign intent", func(t *testing.T) {
			withTx(t, gw, func(url string, payments *payment.PaymentService) {
				_, err := payments.GetBalance(t.Context(), "other-user")
				require.NoError(t, err)

				resp, body := doRequest(t, http.MethodPost, url+"/api/payments/process-direct-payment",
					`{"amount": 500, "paymentIntentId": "pi_1"}`, token(t, "other-user"))

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				require.Contains(t, body, "Payment user verification failed")
			})
		})

		t.Run("unknown intent", func(t *testing.T) {
			withTx(t, gw, func(url string, _ *payment.PaymentService) {
				resp, body := doRequest(t, http.MethodPost, url+"/api/payments/process-direct-payment",
					`{"amount": 500, "paymentIntentId": "pi_unknown"}`, token(t, "user-123"))

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				require.Contains(t, body, "Payment intent not found")
			})
		})

		t.Run("manual-balance-update alias", func(t *testing.T) {
			withTx(t, gw, func(url string, payments *payment.PaymentService) {
				_, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)

				resp, body := doRequest(t, http.MethodPost, url+"/api/payments/manual-balance-update",
					`{"amount": 500, "paymentIntentId": "pi_1"}`, token(t, "user-123"))

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, `"newBalance":500`)
			})
		})
	})

	t.Run("transactions history", func(t *testing.T) {
		withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
			topUp(t, payments, "user-123", 100)
			_, err := payments.Debit(t.Context(), "user-123", decimal.NewFromInt(40), "", "Project creation fee")
			require.NoError(t, err)

			resp, body := doRequest(t, http.MethodGet, url+"/api/payments/transactions", "", token(t, "user-123"))

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, `"type":"debit"`)
			require.Contains(t, body, `"type":"credit"`)
			require.Less(t, strings.Index(body, `"type":"debit"`), strings.Index(body, `"type":"credit"`), "newest entry should go first")
		})
	})

	t.Run("check project eligibility", func(t *testing.T) {
		t.Run("not eligible", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 60)

				resp, body := doRequest(t, http.MethodGet, url+"/api/payments/check-project-eligibility", "", token(t, "user-123"))

				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.JSONEq(t, `{"eligible": false, "currentBalance": 60, "requiredAmount": 100, "shortfall": 40}`, body)
			})
		})

		t.Run("eligible", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 100)

				resp, body := doRequest(t, http.MethodGet, url+"/api/payments/check-project-eligibility", "", token(t, "user-123"))

				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.JSONEq(t, `{"eligible": true, "currentBalance": 100, "requiredAmount": 100}`, body)
			})
		})
	})

	t.Run("webhook", func(t *testing.T) {
		payload := `{
			"id": "evt_1",
			"type": "payment_intent.succeeded",
			"data": {"object": {
				"id": "pi_wh",
				"status": "succeeded",
				"amount": 50000,
				"currency": "INR",
				"metadata": {"userId": "user-123", "type": "balance_topup"}
			}}
		}`

		sign := func(payload string) string {
			ts := time.Now().Unix()
			return fmt.Sprintf("t=%d,v1=%s", ts, gateway.Sign([]byte(payload), testWebhookSecret, ts))
		}

		t.Run("signed delivery credits balance", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				_, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)

				req, err := http.NewRequest(http.MethodPost, url+"/api/payments/webhook", strings.NewReader(payload))
				require.NoError(t, err)
				req.Header.Set("Stripe-Signature", sign(payload))

				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				_ = resp.Body.Close()

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

				balance, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)
				require.True(t, balance.Amount.Equal(decimal.NewFromInt(500)))
			})
		})

		t.Run("unsigned delivery rejected", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				_, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)

				resp, _ := doRequest(t, http.MethodPost, url+"/api/payments/webhook", payload, "")

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)

				balance, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)
				require.True(t, balance.Amount.IsZero(), "unverified delivery must not credit")
			})
		})
	})

	t.Run("projects", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 250)

				resp, body := doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "Website redesign", "tags": ["web"]}`, token(t, "user-123"))

				require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, `"title":"Website redesign"`)
				require.Contains(t, body, `"status":"planning"`)
				require.Contains(t, body, `"priority":"medium"`)

				balance, err := payments.GetBalance(t.Context(), "user-123")
				require.NoError(t, err)
				require.True(t, balance.Amount.Equal(decimal.NewFromInt(150)), "fee should be debited")
			})
		})

		t.Run("insufficient balance", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 60)

				resp, body := doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "Too expensive"}`, token(t, "user-123"))

				require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
				require.JSONEq(t, `{
					"error": "service_error",
					"message": "Insufficient balance to create project",
					"data": {"currentBalance": 60, "requiredAmount": 100, "shortfall": 40}
				}`, body)
			})
		})

		t.Run("missing title", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, _ *payment.PaymentService) {
				resp, _ := doRequest(t, http.MethodPost, url+"/api/projects/", `{}`, token(t, "user-123"))

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			})
		})

		t.Run("get update delete", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 100)

				// Create through the API to get the id
				resp, body := doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "CRUD target"}`, token(t, "user-123"))
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				var projectID string
				_, after, found := strings.Cut(body, `"id":"`)
				require.True(t, found, "response should contain project id")
				projectID = after[:strings.Index(after, `"`)]

				t.Run("get ok", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodGet, url+"/api/projects/"+projectID, "", token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.Contains(t, body, `"title":"CRUD target"`)
				})

				t.Run("get by other user", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodGet, url+"/api/projects/"+projectID, "", token(t, "other-user"))

					require.Equal(t, http.StatusNotFound, resp.StatusCode)
				})

				t.Run("invalid id", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodGet, url+"/api/projects/not-a-uuid", "", token(t, "user-123"))

					require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				})

				t.Run("update ok", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodPut, url+"/api/projects/"+projectID,
						`{"status": "in-progress", "progress": 30}`, token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.Contains(t, body, `"status":"in-progress"`)
					require.Contains(t, body, `"progress":30`)
					require.Contains(t, body, `"title":"CRUD target"`, "untouched fields should be kept")
				})

				t.Run("update with invalid status", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodPut, url+"/api/projects/"+projectID,
						`{"status": "abandoned"}`, token(t, "user-123"))

					require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				})

				t.Run("delete ok", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodDelete, url+"/api/projects/"+projectID, "", token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.JSONEq(t, `{"message": "Project deleted successfully"}`, body)

					resp, _ = doRequest(t, http.MethodGet, url+"/api/projects/"+projectID, "", token(t, "user-123"))
					require.Equal(t, http.StatusNotFound, resp.StatusCode)
				})
			})
		})

		t.Run("update progress", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 100)

				resp, body := doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "Progress target"}`, token(t, "user-123"))
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				_, after, found := strings.Cut(body, `"id":"`)
				require.True(t, found, "response should contain project id")
				projectID := after[:strings.Index(after, `"`)]

				t.Run("patch ok", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodPatch, url+"/api/projects/"+projectID+"/progress",
						`{"progress": 75}`, token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.Contains(t, body, `"progress":75`)
				})

				t.Run("zero progress is accepted", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodPatch, url+"/api/projects/"+projectID+"/progress",
						`{"progress": 0}`, token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.Contains(t, body, `"progress":0`)
				})

				t.Run("missing progress", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodPatch, url+"/api/projects/"+projectID+"/progress",
						`{}`, token(t, "user-123"))

					require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				})

				t.Run("out of range", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodPatch, url+"/api/projects/"+projectID+"/progress",
						`{"progress": 101}`, token(t, "user-123"))

					require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				})

				t.Run("other user project", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodPatch, url+"/api/projects/"+projectID+"/progress",
						`{"progress": 50}`, token(t, "other-user"))

					require.Equal(t, http.StatusNotFound, resp.StatusCode)
				})
			})
		})

		t.Run("filter by status", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 200)

				resp, _ := doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "Active one", "status": "in-progress"}`, token(t, "user-123"))
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				resp, _ = doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "Planned one"}`, token(t, "user-123"))
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				t.Run("matching status", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodGet, url+"/api/projects/status/in-progress", "", token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.Contains(t, body, `"title":"Active one"`)
					require.NotContains(t, body, `"title":"Planned one"`)
				})

				t.Run("unknown status", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodGet, url+"/api/projects/status/abandoned", "", token(t, "user-123"))

					require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				})
			})
		})

		t.Run("search", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 200)

				resp, _ := doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "Website redesign"}`, token(t, "user-123"))
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				resp, _ = doRequest(t, http.MethodPost, url+"/api/projects/",
					`{"title": "Billing migration"}`, token(t, "user-123"))
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				t.Run("match", func(t *testing.T) {
					resp, body := doRequest(t, http.MethodGet, url+"/api/projects/search?q=redesign", "", token(t, "user-123"))

					require.Equal(t, http.StatusOK, resp.StatusCode)
					require.Contains(t, body, `"title":"Website redesign"`)
					require.NotContains(t, body, `"title":"Billing migration"`)
				})

				t.Run("missing query", func(t *testing.T) {
					resp, _ := doRequest(t, http.MethodGet, url+"/api/projects/search", "", token(t, "user-123"))

					require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				})
			})
		})

		t.Run("stats", func(t *testing.T) {
			withTx(t, &fakeGateway{}, func(url string, payments *payment.PaymentService) {
				topUp(t, payments, "user-123", 200)

				for _, title := range []string{"One", "Two"} {
					resp, _ := doRequest(t, http.MethodPost, url+"/api/projects/",
						fmt.Sprintf(`{"title": %q}`, title), token(t, "user-123"))
					require.Equal(t, http.StatusCreated, resp.StatusCode)
				}

				resp, body := doRequest(t, http.MethodGet, url+"/api/projects/stats", "", token(t, "user-123"))

				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.Contains(t, body, `"total":2`)
				require.Contains(t, body, `"planning":2`)
			})
		})
	})

	t.Run("random quote", func(t *testing.T) {
		withTx(t, &fakeGateway{}, func(url string, _ *payment.PaymentService) {
			resp, body := doRequest(t, http.MethodGet, url+"/api/quotes/random", "", "")

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Contains(t, body, "Kent Beck")
		})
	})

	t.Run("health", func(t *testing.T) {
		withTx(t, &fakeGateway{}, func(url string, _ *payment.PaymentService) {
			resp, body := doRequest(t, http.MethodGet, url+"/health", "", "")

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Contains(t, body, "Server is running")
		})
	})
}
