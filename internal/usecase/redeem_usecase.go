package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cheque-bot/internal/domain"
	"cheque-bot/internal/repository"
	"cheque-bot/pkg/storage"

	"go.uber.org/zap"
)

const rubCurrency = "RUB"

// redeemUsecase implements RedeemUsecase
type redeemUsecase struct {
	chatRepo repository.ChatRepository
	rateRepo repository.RateRepository
	history  storage.HistoryStorage
	profiles []domain.BotProfile
	log      *zap.Logger
	now      func() time.Time

	// one conversation at a time: the reply is read as "latest message in chat"
	busy chan struct{}
}

// NewRedeemUsecase creates a new redeem usecase. history may be nil.
func NewRedeemUsecase(
	chatRepo repository.ChatRepository,
	rateRepo repository.RateRepository,
	history storage.HistoryStorage,
	profiles []domain.BotProfile,
	log *zap.Logger,
) RedeemUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &redeemUsecase{
		chatRepo: chatRepo,
		rateRepo: rateRepo,
		history:  history,
		profiles: profiles,
		log:      log.Named("redeem"),
		now:      time.Now,
		busy:     make(chan struct{}, 1),
	}
}

// Activate redeems cheque with the named profile
func (u *redeemUsecase) Activate(ctx context.Context, profileName, cheque string) (*domain.Result, error) {
	profile, ok := domain.FindProfile(u.profiles, profileName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProfile, profileName)
	}
	return u.activate(ctx, profile, cheque)
}

// ActivateAuto redeems a deep link of any known profile
func (u *redeemUsecase) ActivateAuto(ctx context.Context, cheque string) (*domain.Result, error) {
	profile, ok := domain.DetectProfile(u.profiles, cheque)
	if !ok {
		return nil, fmt.Errorf("%w: no bot recognised in %q", domain.ErrUnknownProfile, cheque)
	}
	return u.activate(ctx, profile, cheque)
}

func (u *redeemUsecase) activate(ctx context.Context, profile domain.BotProfile, cheque string) (*domain.Result, error) {
	code := profile.ExtractCode(cheque)
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("%w: empty code", domain.ErrInvalidCheque)
	}
	log := u.log.With(zap.String("profile", profile.Name), zap.String("code", string(code)))
	log.Info("[Activate] START")

	if err := u.acquire(ctx); err != nil {
		log.Warn("[Activate] gave up waiting for the account", zap.Error(err))
		return nil, err
	}
	text, err := u.chatRepo.Exchange(ctx, profile, code)
	u.release()
	if err != nil {
		log.Error("[Activate] ERROR Exchange", zap.Error(err))
		u.record(profile, code, domain.OutcomeUnrecognized, nil, err)
		return nil, err
	}

	reply := profile.Classify(text)
	if reply.Outcome != domain.OutcomeRedeemed {
		cerr := &domain.ChequeError{Profile: profile.Name, Outcome: reply.Outcome, Reply: text}
		log.Warn("[Activate] cheque refused", zap.Stringer("outcome", reply.Outcome), zap.String("reply", text))
		u.record(profile, code, reply.Outcome, nil, cerr)
		return nil, cerr
	}

	rub, err := u.ToRub(ctx, reply.BTC)
	if err != nil {
		// the cheque is spent at this point, keep the btc amount in the history
		log.Error("[Activate] ERROR ToRub", zap.Float64("btc", reply.BTC), zap.Error(err))
		u.record(profile, code, domain.OutcomeRedeemed, &domain.Result{BTC: reply.BTC}, err)
		return nil, fmt.Errorf("cheque redeemed for %v BTC but conversion failed: %w", reply.BTC, err)
	}

	result := &domain.Result{BTC: reply.BTC, RUB: rub}
	log.Info("[Activate] SUCCESS", zap.Float64("btc", result.BTC), zap.Float64("rub", result.RUB))
	u.record(profile, code, domain.OutcomeRedeemed, result, nil)

	return result, nil
}

// ToRub converts btcAmount at the 15 minute RUB price
func (u *redeemUsecase) ToRub(ctx context.Context, btcAmount float64) (float64, error) {
	if btcAmount < 0 || math.IsNaN(btcAmount) || math.IsInf(btcAmount, 0) {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, btcAmount)
	}

	price, err := u.rateRepo.BTCPrice(ctx, rubCurrency)
	if err != nil {
		return 0, fmt.Errorf("failed to get BTC price: %w", err)
	}
	return btcAmount * price, nil
}

// CreateSession logs the account in
func (u *redeemUsecase) CreateSession(ctx context.Context, prompt func(ctx context.Context) (string, error)) error {
	if err := u.acquire(ctx); err != nil {
		return err
	}
	defer u.release()
	return u.chatRepo.CreateSession(ctx, prompt)
}

// acquire waits for the account to be free or ctx to end
func (u *redeemUsecase) acquire(ctx context.Context) error {
	select {
	case u.busy <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for the account: %w", ctx.Err())
	}
}

func (u *redeemUsecase) release() {
	<-u.busy
}

// Profiles returns a copy of the configured profiles
func (u *redeemUsecase) Profiles() []domain.BotProfile {
	return append([]domain.BotProfile(nil), u.profiles...)
}

// History returns the latest attempts
func (u *redeemUsecase) History(_ context.Context, limit int) ([]storage.HistoryEntry, error) {
	if u.history == nil {
		return nil, nil
	}
	return u.history.GetHistory(limit)
}

// record stores an attempt; storage failures are only logged
func (u *redeemUsecase) record(profile domain.BotProfile, code domain.Code, outcome domain.Outcome, result *domain.Result, err error) {
	if u.history == nil {
		return
	}

	entry := storage.HistoryEntry{
		Profile: profile.Name,
		Code:    string(code),
		Outcome: outcome.String(),
		At:      u.now().UTC(),
	}
	if result != nil {
		entry.BTC = result.BTC
		entry.RUB = result.RUB
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if herr := u.history.AddHistory(entry); herr != nil {
		u.log.Warn("[record] failed to store history", zap.Error(herr))
	}
}
