package app

import (
	"fmt"

	"cheque-bot/external_resource/mtproto"
	"cheque-bot/external_resource/ticker"
	"cheque-bot/internal/repository"
	"cheque-bot/internal/usecase"
	"cheque-bot/pkg/config"
	"cheque-bot/pkg/storage"

	"go.uber.org/zap"
)

// NewRedeemUsecase wires the Telegram account client, the ticker and the
// repositories into a RedeemUsecase. history may be nil.
func NewRedeemUsecase(cfg *config.Config, history storage.HistoryStorage, log *zap.Logger) (usecase.RedeemUsecase, error) {
	if err := cfg.ValidateAccount(); err != nil {
		return nil, err
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}

	tgClient, err := mtproto.NewClient(mtproto.Credentials{
		AppID:       cfg.APIID,
		AppHash:     cfg.APIHash,
		PhoneNumber: cfg.PhoneNumber,
		Password:    cfg.Password,
		SessionPath: cfg.SessionPath(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	chatRepo := repository.NewChatRepository(tgClient, cfg.SendDelay, cfg.ReplyDelay, log)
	rateRepo := repository.NewRateRepository(ticker.NewClient(cfg.TickerURL, log))

	return usecase.NewRedeemUsecase(chatRepo, rateRepo, history, profiles, log), nil
}
