package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
	"github.com/mkravets/projectdesk/internal/service/quote"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultGatewayURL   = "https://api.stripe.com"
	defaultCurrency     = models.CurrencyINR
	defaultProjectFee   = "100"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment (dev, prod)
	Environment string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Payment gateway API base URL and its secret API key
	GatewayURL       string
	GatewaySecretKey string

	// Secret for verifying webhook delivery signatures
	WebhookSecret string

	// Secret for verifying identity provider bearer tokens
	AuthSecret string

	// Currency code new balances are created with
	Currency string

	// Fixed fee charged for every project creation
	ProjectFee string

	// Quote-of-the-day API URL
	QuoteAPIURL string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		Environment: defaultEnvironment,
		ListenAddr:  defaultListenAddr,
		GatewayURL:  defaultGatewayURL,
		Currency:    defaultCurrency,
		ProjectFee:  defaultProjectFee,
		QuoteAPIURL: quote.DefaultAPIURL,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"GATEWAY_URL":            setString(&c.GatewayURL),
		"GATEWAY_SECRET_KEY":     setString(&c.GatewaySecretKey),
		"GATEWAY_WEBHOOK_SECRET": setString(&c.WebhookSecret),
		"AUTH_SECRET":            setString(&c.AuthSecret),
		"CURRENCY":               setString(&c.Currency),
		"PROJECT_CREATION_FEE":   setString(&c.ProjectFee),
		"QUOTE_API_URL":          setString(&c.QuoteAPIURL),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("projectdesk", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.GatewayURL, "gateway-url", c.GatewayURL, "Payment gateway API base URL")
	fs.StringVar(&c.GatewaySecretKey, "gateway-secret", c.GatewaySecretKey, "Payment gateway secret API key")
	fs.StringVar(&c.WebhookSecret, "webhook-secret", c.WebhookSecret, "Webhook signing secret")
	fs.StringVar(&c.AuthSecret, "auth-secret", c.AuthSecret, "Identity provider token secret")
	fs.StringVar(&c.Currency, "currency", c.Currency, "Default balance currency code")
	fs.StringVar(&c.ProjectFee, "project-fee", c.ProjectFee, "Project creation fee amount")
	fs.StringVar(&c.QuoteAPIURL, "quote-api", c.QuoteAPIURL, "Quote API URL")

	return fs.Parse(args)
}
