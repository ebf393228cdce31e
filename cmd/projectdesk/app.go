package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/db"
	"github.com/mkravets/projectdesk/internal/gateway"
	"github.com/mkravets/projectdesk/internal/handlers"
	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/repository/postgres"
	"github.com/mkravets/projectdesk/internal/service/payment"
	"github.com/mkravets/projectdesk/internal/service/project"
	"github.com/mkravets/projectdesk/internal/service/quote"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	if c.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	if c.GatewaySecretKey == "" || c.WebhookSecret == "" {
		return nil, fmt.Errorf("gateway secret key and webhook secret are required")
	}
	if c.AuthSecret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}

	fee, err := decimal.NewFromString(c.ProjectFee)
	if err != nil {
		return nil, fmt.Errorf("invalid project creation fee %q: %w", c.ProjectFee, err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	gatewayClient := gateway.NewClient(c.GatewayURL, c.GatewaySecretKey, l)
	verifier := gateway.NewWebhookVerifier(c.WebhookSecret)
	paymentService := payment.NewService(storage, gatewayClient, c.Currency, l)
	projectService := project.NewService(storage, paymentService, fee, l)
	quoteService := quote.NewService(c.QuoteAPIURL, l)

	mux := handlers.NewRouter(
		paymentService,
		projectService,
		quoteService,
		verifier,
		c.AuthSecret,
		l,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     l,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
