package ticker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cheque-bot/internal/domain"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// tickerClient implements the Client interface over the blockchain.info ticker
type tickerClient struct {
	url  string
	http *http.Client
	log  *zap.Logger
}

// NewClient creates a new ticker client
func NewClient(url string, log *zap.Logger) Client {
	return NewClientWithHTTP(url, &http.Client{Timeout: 10 * time.Second}, log)
}

// NewClientWithHTTP creates a ticker client using the given HTTP client
func NewClientWithHTTP(url string, httpClient *http.Client, log *zap.Logger) Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &tickerClient{
		url:  url,
		http: httpClient,
		log:  log.Named("ticker"),
	}
}

// Rates fetches the full ticker
func (c *tickerClient) Rates(ctx context.Context) (map[string]Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("[TickerClient] Rates ERROR", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrTickerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("[TickerClient] Rates ERROR", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", domain.ErrTickerUnavailable, resp.StatusCode)
	}

	var rates map[string]Rate
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		c.log.Error("[TickerClient] Rates ERROR decode", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrTickerMalformed, err)
	}
	c.log.Debug("[TickerClient] Rates SUCCESS", zap.Int("currencies", len(rates)))

	return rates, nil
}

// Rate fetches the ticker and returns the entry for currency
func (c *tickerClient) Rate(ctx context.Context, currency string) (*Rate, error) {
	rates, err := c.Rates(ctx)
	if err != nil {
		return nil, err
	}

	rate, ok := rates[currency]
	if !ok {
		return nil, fmt.Errorf("%w: no %s entry", domain.ErrTickerMalformed, currency)
	}
	if rate.FifteenMin <= 0 {
		return nil, fmt.Errorf("%w: %s 15m price is %v", domain.ErrTickerMalformed, currency, rate.FifteenMin)
	}

	return &rate, nil
}
