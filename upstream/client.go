package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/spider7r/trading-journal-sub002/config"
	"github.com/spider7r/trading-journal-sub002/models"
)

// Client talks to the external market-data API. It backs two degraded
// paths: symbol search for the charting adapter and bar fetches when the
// candle cache is not configured. No streaming endpoint is wired; live
// subscriptions stay stubs in the adapter.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	log        *logrus.Logger
}

// NewClient builds a rate-limited client. An empty base URL yields a valid
// unavailable client.
func NewClient(cfg config.Upstream, log *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		log:        log,
	}
}

// Available reports whether an upstream endpoint is configured.
func (c *Client) Available() bool {
	return c != nil && c.baseURL != ""
}

type candlePayload struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type timeSeriesResponse struct {
	Values []candlePayload `json:"values"`
}

type searchResponse struct {
	Data []models.SymbolDesc `json:"data"`
}

// Candles fetches bars for a closed range in unix seconds, matching the
// charting adapter's bar-source shape.
func (c *Client) Candles(ctx context.Context, symbol, interval string, from, to int64) ([]models.Candle, error) {
	interval, ok := models.NormalizeInterval(interval)
	if !ok {
		return nil, fmt.Errorf("unknown interval %q", interval)
	}
	symbol = models.NormalizeSymbol(symbol)

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("start", fmt.Sprintf("%d", from))
	query.Set("end", fmt.Sprintf("%d", to))

	var payload timeSeriesResponse
	if err := c.getJSON(ctx, "/time_series", query, &payload); err != nil {
		return nil, fmt.Errorf("upstream candle fetch failed: %w", err)
	}

	candles := make([]models.Candle, 0, len(payload.Values))
	for _, v := range payload.Values {
		candles = append(candles, models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			Timestamp: v.Timestamp,
			Open:      v.Open,
			High:      v.High,
			Low:       v.Low,
			Close:     v.Close,
			Volume:    v.Volume,
		})
	}
	return candles, nil
}

// Search looks up symbols matching the query.
func (c *Client) Search(ctx context.Context, queryText string) ([]models.SymbolDesc, error) {
	query := url.Values{}
	query.Set("query", queryText)

	var payload searchResponse
	if err := c.getJSON(ctx, "/symbol_search", query, &payload); err != nil {
		return nil, fmt.Errorf("upstream symbol search failed: %w", err)
	}
	return payload.Data, nil
}

// getJSON performs a rate-limited GET with exponential-backoff retries and
// decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if !c.Available() {
		return fmt.Errorf("upstream API is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
