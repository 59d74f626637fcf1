package usecase

import (
	"context"

	"cheque-bot/internal/domain"
	"cheque-bot/pkg/storage"
)

// RedeemUsecase defines the cheque redemption use cases
// This interface is handler-agnostic and is shared by the Telegram bot, the MCP servers and the CLI
type RedeemUsecase interface {
	// Activate redeems cheque with the named bot profile
	Activate(ctx context.Context, profileName, cheque string) (*domain.Result, error)

	// ActivateAuto redeems a deep link, picking the profile from the link
	ActivateAuto(ctx context.Context, cheque string) (*domain.Result, error)

	// ToRub converts a BTC amount to RUB at the current ticker price
	ToRub(ctx context.Context, btcAmount float64) (float64, error)

	// CreateSession logs the Telegram account in and stores the session
	CreateSession(ctx context.Context, prompt func(ctx context.Context) (string, error)) error

	// Profiles returns the configured bot profiles
	Profiles() []domain.BotProfile

	// History returns the latest redemption attempts, newest first
	History(ctx context.Context, limit int) ([]storage.HistoryEntry, error)
}
