package repository

import (
	"context"

	"cheque-bot/external_resource/ticker"
)

// rateRepository implements RateRepository using the ticker client
type rateRepository struct {
	client ticker.Client
}

// NewRateRepository creates a new rate repository
func NewRateRepository(client ticker.Client) RateRepository {
	return &rateRepository{
		client: client,
	}
}

// BTCPrice returns the 15 minute price of one BTC
func (r *rateRepository) BTCPrice(ctx context.Context, currency string) (float64, error) {
	rate, err := r.client.Rate(ctx, currency)
	if err != nil {
		return 0, err
	}
	return rate.FifteenMin, nil
}
