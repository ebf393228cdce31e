package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/gateway"
	"github.com/mkravets/projectdesk/internal/handlers/middleware"
	"github.com/mkravets/projectdesk/internal/handlers/render"
	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
	"github.com/mkravets/projectdesk/internal/service/payment"
	"github.com/mkravets/projectdesk/internal/service/project"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	paymentService paymentService,
	projectService projectService,
	quoteService quoteService,
	verifier webhookVerifier,
	authSecret string,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authSecret)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	payments := http.NewServeMux()
	payments.Handle("GET /balance", withAuth(handleGetBalance(paymentService, logger)))
	payments.Handle("POST /create-payment-intent", withAuth(handleCreatePaymentIntent(paymentService, logger)))
	payments.Handle("GET /transactions", withAuth(handleListTransactions(paymentService, logger)))
	payments.Handle("GET /check-project-eligibility", withAuth(handleCheckProjectEligibility(projectService, paymentService, logger)))
	payments.Handle("POST /process-direct-payment", withAuth(handleProcessDirectPayment(paymentService, logger)))
	// Kept under its old name for clients that still post to it
	payments.Handle("POST /manual-balance-update", withAuth(handleProcessDirectPayment(paymentService, logger)))
	// Webhook is authenticated by its signature, not by a user token
	payments.Handle("POST /webhook", handleWebhook(paymentService, verifier, logger))

	projects := http.NewServeMux()
	projects.Handle("POST /", withAuth(handleCreateProject(projectService, paymentService, logger)))
	projects.Handle("GET /", withAuth(handleListProjects(projectService, logger)))
	projects.Handle("GET /stats", withAuth(handleProjectStats(projectService, logger)))
	projects.Handle("GET /search", withAuth(handleSearchProjects(projectService, logger)))
	projects.Handle("GET /status/{status}", withAuth(handleListProjectsByStatus(projectService, logger)))
	projects.Handle("GET /{id}", withAuth(handleGetProject(projectService, logger)))
	projects.Handle("PUT /{id}", withAuth(handleUpdateProject(projectService, logger)))
	projects.Handle("PATCH /{id}/progress", withAuth(handleUpdateProjectProgress(projectService, logger)))
	projects.Handle("DELETE /{id}", withAuth(handleDeleteProject(projectService, logger)))

	quotes := http.NewServeMux()
	quotes.Handle("GET /random", handleRandomQuote(quoteService))

	root := http.NewServeMux()
	root.Handle("/api/payments/", http.StripPrefix("/api/payments", payments))
	root.Handle("/api/projects/", http.StripPrefix("/api/projects", projects))
	root.Handle("/api/quotes/", http.StripPrefix("/api/quotes", quotes))
	root.Handle("GET /health", handleHealth())

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

func handleHealth() http.Handler {
	type response struct {
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, response{Message: "Server is running", Timestamp: time.Now()})
	})
}

type paymentService interface {
	// GetBalance lazily creates a zero balance, so it never fails for a valid user
	GetBalance(ctx context.Context, userID string) (models.Balance, error)

	CreatePaymentIntent(ctx context.Context, userID string, amount decimal.Decimal) (gateway.Intent, error)

	// ListTransactions returns user history newest first
	ListTransactions(ctx context.Context, userID string, limit int, offset int) ([]models.Transaction, error)

	// ProcessDirectPayment verifies the claimed payment against the gateway
	// before crediting. Must return the distinct reconciliation errors
	// (apperrors.ErrPaymentNotSucceeded, ErrAmountMismatch, ErrIdentityMismatch)
	ProcessDirectPayment(ctx context.Context, userID string, amount decimal.Decimal, intentID string) (payment.BalanceUpdate, error)

	HandleEvent(ctx context.Context, event gateway.Event) error
}

type projectService interface {
	Fee() decimal.Decimal

	// Has to return apperrors.ErrBalanceInsufficient when the fee is not covered
	CreateProject(ctx context.Context, userID string, params project.CreateParams) (models.Project, error)
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
	ListProjectsByStatus(ctx context.Context, userID string, status string) ([]models.Project, error)
	SearchProjects(ctx context.Context, userID string, query string) ([]models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID, userID string) (models.Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, userID string, params project.UpdateParams) (models.Project, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, userID string, progress int) (models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID, userID string) error
	GetStats(ctx context.Context, userID string) (project.Stats, error)
}

type quoteService interface {
	GetRandomQuote(ctx context.Context) models.Quote
}

type webhookVerifier interface {
	// ConstructEvent verifies the raw payload signature and decodes the event.
	// Has to return apperrors.ErrInvalidSignature on verification failure
	ConstructEvent(payload []byte, sigHeader string) (gateway.Event, error)
}
