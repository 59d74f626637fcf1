package ticker

import "context"

// Client defines the interface for the public BTC price ticker
type Client interface {
	// Rates returns the whole ticker keyed by currency code
	Rates(ctx context.Context) (map[string]Rate, error)

	// Rate returns the ticker entry for one currency
	Rate(ctx context.Context, currency string) (*Rate, error)
}

// Rate is one currency entry of the ticker
type Rate struct {
	FifteenMin float64 `json:"15m"`
	Last       float64 `json:"last"`
	Buy        float64 `json:"buy"`
	Sell       float64 `json:"sell"`
	Symbol     string  `json:"symbol"`
}
