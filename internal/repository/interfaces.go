package repository

import (
	"context"

	"cheque-bot/internal/domain"
)

// ChatRepository defines the conversation with a cheque bot
type ChatRepository interface {
	// Exchange sends the activation command for code to the profile's bot and
	// returns the bot's latest reply text
	Exchange(ctx context.Context, profile domain.BotProfile, code domain.Code) (string, error)

	// CreateSession logs the account in and persists the session
	CreateSession(ctx context.Context, prompt func(ctx context.Context) (string, error)) error
}

// RateRepository defines BTC price operations
type RateRepository interface {
	// BTCPrice returns the 15 minute price of one BTC in currency
	BTCPrice(ctx context.Context, currency string) (float64, error)
}
