package quotesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aristath/cryptosignal/internal/apperrors"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
)

// AggregatorSource is a thin REST connector against a CoinGecko-style
// simple-price endpoint. OHLC fields are not exposed by the aggregator;
// open/high/low/close are all filled with the single reported price.
type AggregatorSource struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	budget    *errorBudget
	symbolIDs map[string]string // SYMBOL -> aggregator coin id
}

// aggregatorPriceEntry is one coin's entry in the /simple/price response.
type aggregatorPriceEntry struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
	USD24hVol    float64 `json:"usd_24h_vol"`
}

// NewAggregatorSource constructs an AggregatorSource. symbolIDs maps an
// instrument symbol (e.g. "BTCUSDT") to the aggregator's own coin id (e.g.
// "bitcoin"); symbols absent from the map can never be served.
func NewAggregatorSource(baseURL string, rateLimitSec int, symbolIDs map[string]string, log zerolog.Logger) *AggregatorSource {
	return &AggregatorSource{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("source", "aggregator").Logger(),
		budget:    newErrorBudget(rateLimitSec),
		symbolIDs: symbolIDs,
	}
}

func (s *AggregatorSource) Name() string     { return "aggregator" }
func (s *AggregatorSource) RateLimitSec() int { return s.budget.rateLimitSec }
func (s *AggregatorSource) IsAvailable() bool { return s.budget.isAvailable() }
func (s *AggregatorSource) ResetErrors()      { s.budget.resetErrors() }

// Fetch retrieves the latest aggregator price for symbol.
func (s *AggregatorSource) Fetch(ctx context.Context, symbol string) (model.Tick, error) {
	id, ok := s.symbolIDs[symbol]
	if !ok {
		return model.Tick{}, ErrUnavailable
	}
	if !s.budget.isAvailable() {
		return model.Tick{}, ErrUnavailable
	}
	if err := s.budget.waitForRateLimit(ctx); err != nil {
		return model.Tick{}, err
	}

	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_24hr_vol=true&include_market_cap=true", s.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("build aggregator request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("aggregator request for %s: %w: %v", symbol, apperrors.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("aggregator request for %s: status %d: %w", symbol, resp.StatusCode, apperrors.ErrTransientFetch)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("read aggregator response: %w: %v", apperrors.ErrTransientFetch, err)
	}

	var envelope map[string]aggregatorPriceEntry
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("decode aggregator response for %s: %w: %v", symbol, apperrors.ErrMalformedResponse, err)
	}

	entry, ok := envelope[id]
	if !ok {
		s.budget.recordFailure()
		return model.Tick{}, fmt.Errorf("aggregator response missing id %s for %s: %w", id, symbol, apperrors.ErrMalformedResponse)
	}

	s.budget.recordSuccess()
	return model.Tick{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Price:     entry.USD,
		Open:      entry.USD,
		High:      entry.USD,
		Low:       entry.USD,
		Close:     entry.USD,
		Volume:    entry.USD24hVol,
		Source:    s.Name(),
	}, nil
}
