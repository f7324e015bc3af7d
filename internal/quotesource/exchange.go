package quotesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/cryptosignal/internal/apperrors"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
)

// ExchangeTickerSource is a thin REST connector against a Binance-style 24h
// ticker endpoint, built in the style of the reference stack's Tradernet
// client: fixed-timeout *http.Client, typed response envelope, typed error
// on non-2xx.
type ExchangeTickerSource struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
	budget  *errorBudget
}

// tickerResponse mirrors the subset of Binance's /ticker/24hr fields this
// source consumes; all numeric fields arrive as JSON strings.
type tickerResponse struct {
	LastPrice         string `json:"lastPrice"`
	OpenPrice         string `json:"openPrice"`
	HighPrice         string `json:"highPrice"`
	LowPrice          string `json:"lowPrice"`
	Volume            string `json:"volume"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// NewExchangeTickerSource constructs an ExchangeTickerSource. rateLimitSec
// is the minimum spacing between calls, honored across the whole process.
func NewExchangeTickerSource(baseURL string, rateLimitSec int, log zerolog.Logger) *ExchangeTickerSource {
	return &ExchangeTickerSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("source", "exchange").Logger(),
		budget:  newErrorBudget(rateLimitSec),
	}
}

func (s *ExchangeTickerSource) Name() string         { return "exchange" }
func (s *ExchangeTickerSource) RateLimitSec() int     { return s.budget.rateLimitSec }
func (s *ExchangeTickerSource) IsAvailable() bool     { return s.budget.isAvailable() }
func (s *ExchangeTickerSource) ResetErrors()          { s.budget.resetErrors() }

// Fetch retrieves the latest 24h ticker for symbol.
func (s *ExchangeTickerSource) Fetch(ctx context.Context, symbol string) (model.Tick, error) {
	if !s.budget.isAvailable() {
		return model.Tick{}, ErrUnavailable
	}
	if err := s.budget.waitForRateLimit(ctx); err != nil {
		return model.Tick{}, err
	}

	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", s.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("build ticker request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("ticker request for %s: %w: %v", symbol, apperrors.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("ticker request for %s: status %d: %w", symbol, resp.StatusCode, apperrors.ErrTransientFetch)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("read ticker response: %w: %v", apperrors.ErrTransientFetch, err)
	}

	var tr tickerResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("decode ticker response for %s: %w: %v", symbol, apperrors.ErrMalformedResponse, err)
	}

	t, err := tickerToTick(symbol, s.Name(), tr)
	if err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err)
	}

	s.budget.recordSuccess()
	return t, nil
}

func tickerToTick(symbol, source string, tr tickerResponse) (model.Tick, error) {
	last, err := strconv.ParseFloat(tr.LastPrice, 64)
	if err != nil {
		return model.Tick{}, fmt.Errorf("parse lastPrice for %s: %w", symbol, err)
	}
	open, _ := strconv.ParseFloat(tr.OpenPrice, 64)
	high, _ := strconv.ParseFloat(tr.HighPrice, 64)
	low, _ := strconv.ParseFloat(tr.LowPrice, 64)
	volume, _ := strconv.ParseFloat(tr.Volume, 64)

	return model.Tick{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Price:     last,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     last,
		Volume:    volume,
		Source:    source,
	}, nil
}
