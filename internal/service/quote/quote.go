// Package quote proxies the quote-of-the-day API with a local fallback, so the
// dashboard always gets a quote even when the upstream throttles.
package quote

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-resty/resty/v2"

	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
)

const DefaultAPIURL = "https://zenquotes.io/api/random"

var fallbackQuotes = []models.Quote{
	{Content: "The only way to do great work is to love what you do.", Author: "Steve Jobs"},
	{Content: "Success is not final, failure is not fatal: it is the courage to continue that counts.", Author: "Winston Churchill"},
	{Content: "The future belongs to those who believe in the beauty of their dreams.", Author: "Eleanor Roosevelt"},
	{Content: "Don't watch the clock; do what it does. Keep going.", Author: "Sam Levenson"},
	{Content: "It always seems impossible until it's done.", Author: "Nelson Mandela"},
	{Content: "The way to get started is to quit talking and begin doing.", Author: "Walt Disney"},
	{Content: "Believe you can and you're halfway there.", Author: "Theodore Roosevelt"},
	{Content: "Quality is not an act, it is a habit.", Author: "Aristotle"},
}

type apiQuote struct {
	Quote  string `json:"q"`
	Author string `json:"a"`
}

type QuoteService struct {
	client *resty.Client
	apiURL string
	logger logger.Logger
}

func NewService(apiURL string, l logger.Logger) *QuoteService {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &QuoteService{
		client: resty.New(),
		apiURL: apiURL,
		logger: l,
	}
}

// GetRandomQuote fetches a quote from the upstream API.
// On any upstream failure (rate limit included) a built-in quote is returned
// instead, so the call never fails
func (s *QuoteService) GetRandomQuote(ctx context.Context) models.Quote {
	quote, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("Falling back to built-in quote", "error", err)
		return fallback()
	}

	return quote
}

func (s *QuoteService) fetch(ctx context.Context) (models.Quote, error) {
	var quotes []apiQuote
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&quotes).
		Get(s.apiURL)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to fetch quote: %w", err)
	}

	if resp.IsError() {
		return models.Quote{}, fmt.Errorf("quote API returned status %d", resp.StatusCode())
	}
	if len(quotes) == 0 {
		return models.Quote{}, fmt.Errorf("quote API returned no quotes")
	}

	return models.Quote{
		Content: quotes[0].Quote,
		Author:  quotes[0].Author,
	}, nil
}

func fallback() models.Quote {
	q := fallbackQuotes[rand.Intn(len(fallbackQuotes))]
	q.Tags = []string{"motivation", "inspiration"}
	return q
}
