package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"cheque-bot/internal/domain"
	"cheque-bot/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply    string
	err      error
	codes    []domain.Code
	handles  []string
	sessions int
}

func (f *fakeChat) Exchange(_ context.Context, profile domain.BotProfile, code domain.Code) (string, error) {
	f.codes = append(f.codes, code)
	f.handles = append(f.handles, profile.Handle)
	return f.reply, f.err
}

func (f *fakeChat) CreateSession(ctx context.Context, prompt func(ctx context.Context) (string, error)) error {
	f.sessions++
	_, err := prompt(ctx)
	return err
}

type fakeRates struct {
	price float64
	err   error
	calls int
}

func (f *fakeRates) BTCPrice(_ context.Context, currency string) (float64, error) {
	f.calls++
	if currency != "RUB" {
		return 0, errors.New("unexpected currency " + currency)
	}
	return f.price, f.err
}

type memoryHistory struct {
	entries []storage.HistoryEntry
	err     error
}

func (m *memoryHistory) AddHistory(entry storage.HistoryEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryHistory) GetHistory(limit int) ([]storage.HistoryEntry, error) {
	out := make([]storage.HistoryEntry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.entries[i])
	}
	return out, nil
}

func newUsecase(chat *fakeChat, rates *fakeRates, history *memoryHistory) RedeemUsecase {
	if history == nil {
		return NewRedeemUsecase(chat, rates, nil, domain.DefaultProfiles(), nil)
	}
	return NewRedeemUsecase(chat, rates, history, domain.DefaultProfiles(), nil)
}

func TestActivateSuccess(t *testing.T) {
	chat := &fakeChat{reply: "✅ Вы получили 0.01 BTC"}
	rates := &fakeRates{price: 1000000}
	history := &memoryHistory{}
	uc := newUsecase(chat, rates, history)

	result, err := uc.Activate(context.Background(), domain.ProfileBanker, "https://t.me/BTC_CHANGE_BOT?start=c_abc123")
	require.NoError(t, err)
	assert.InDelta(t, 0.01, result.BTC, 1e-12)
	assert.InDelta(t, 10000.0, result.RUB, 1e-6)

	assert.Equal(t, []domain.Code{"c_abc123"}, chat.codes)
	assert.Equal(t, []string{"BTC_CHANGE_BOT"}, chat.handles)

	require.Len(t, history.entries, 1)
	assert.Equal(t, "redeemed", history.entries[0].Outcome)
	assert.Equal(t, "c_abc123", history.entries[0].Code)
	assert.Empty(t, history.entries[0].Error)
}

func TestActivateRefused(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		reply   string
		want    error
		outcome string
	}{
		{"banker already used", domain.ProfileBanker, "Упс, кажется, данный чек успел обналичить кто-то другой 😟", domain.ErrChequeAlreadyUsed, "already_used"},
		{"getwallet already used", domain.ProfileGetWallet, "😮 Увы, но данный купон не существует", domain.ErrChequeAlreadyUsed, "already_used"},
		{"unknown reply", domain.ProfileBanker, "Главное меню", domain.ErrReplyUnrecognized, "unrecognized"},
		{"no reply", domain.ProfileGetWallet, "", domain.ErrReplyUnrecognized, "unrecognized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rates := &fakeRates{price: 1}
			history := &memoryHistory{}
			uc := newUsecase(&fakeChat{reply: tt.reply}, rates, history)

			result, err := uc.Activate(context.Background(), tt.profile, "code")
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidCheque))
			assert.True(t, errors.Is(err, tt.want))

			var cerr *domain.ChequeError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.reply, cerr.Reply)

			assert.Zero(t, rates.calls, "converter must not be called")
			require.Len(t, history.entries, 1)
			assert.Equal(t, tt.outcome, history.entries[0].Outcome)
		})
	}
}

func TestActivateUnknownProfile(t *testing.T) {
	chat := &fakeChat{}
	uc := newUsecase(chat, &fakeRates{}, nil)

	_, err := uc.Activate(context.Background(), "nope", "c_1")
	assert.True(t, errors.Is(err, domain.ErrUnknownProfile))
	assert.Empty(t, chat.codes)
}

func TestActivateEmptyCode(t *testing.T) {
	chat := &fakeChat{}
	uc := newUsecase(chat, &fakeRates{}, nil)

	_, err := uc.Activate(context.Background(), domain.ProfileBanker, "   ")
	assert.True(t, errors.Is(err, domain.ErrInvalidCheque))
	assert.Empty(t, chat.codes)
}

func TestActivateExchangeError(t *testing.T) {
	boom := errors.New("flood wait")
	history := &memoryHistory{}
	uc := newUsecase(&fakeChat{err: boom}, &fakeRates{}, history)

	_, err := uc.Activate(context.Background(), domain.ProfileBanker, "c_1")
	assert.ErrorIs(t, err, boom)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "flood wait", history.entries[0].Error)
}

func TestActivateConversionError(t *testing.T) {
	history := &memoryHistory{}
	uc := newUsecase(&fakeChat{reply: "Вы получили 0.5 BTC"}, &fakeRates{err: domain.ErrTickerUnavailable}, history)

	_, err := uc.Activate(context.Background(), domain.ProfileBanker, "c_1")
	assert.ErrorIs(t, err, domain.ErrTickerUnavailable)
	assert.False(t, errors.Is(err, domain.ErrInvalidCheque))

	require.Len(t, history.entries, 1)
	assert.Equal(t, "redeemed", history.entries[0].Outcome)
	assert.Equal(t, 0.5, history.entries[0].BTC)
}

func TestActivateHistoryFailureIsIgnored(t *testing.T) {
	uc := newUsecase(&fakeChat{reply: "Вы получили 1 BTC"}, &fakeRates{price: 2}, &memoryHistory{err: errors.New("disk full")})

	result, err := uc.Activate(context.Background(), domain.ProfileBanker, "c_1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.RUB)
}

func TestActivateAuto(t *testing.T) {
	chat := &fakeChat{reply: "Подарочный код активирован: 0.0002 BTC"}
	uc := newUsecase(chat, &fakeRates{price: 5000000}, nil)

	result, err := uc.ActivateAuto(context.Background(), "https://t.me/Getwallet_bot?start=g_XYZ")
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, result.RUB, 1e-6)
	assert.Equal(t, []string{"Getwallet_bot"}, chat.handles)
	assert.Equal(t, []domain.Code{"g_XYZ"}, chat.codes)

	_, err = uc.ActivateAuto(context.Background(), "c_bare")
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
}

func TestToRub(t *testing.T) {
	uc := newUsecase(&fakeChat{}, &fakeRates{price: 1000000}, nil)

	rub, err := uc.ToRub(context.Background(), 0.01)
	require.NoError(t, err)
	assert.InDelta(t, 10000.0, rub, 1e-6)

	_, err = uc.ToRub(context.Background(), -1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateSessionAndHistory(t *testing.T) {
	chat := &fakeChat{}
	history := &memoryHistory{}
	uc := newUsecase(chat, &fakeRates{}, history)

	require.NoError(t, uc.CreateSession(context.Background(), func(context.Context) (string, error) { return "1", nil }))
	assert.Equal(t, 1, chat.sessions)

	history.entries = []storage.HistoryEntry{{Code: "a"}, {Code: "b"}}
	entries, err := uc.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Code)

	assert.Len(t, uc.Profiles(), 2)
}

func TestActivateGivesUpWhileAccountBusy(t *testing.T) {
	chat := &fakeChat{reply: "Вы получили 1 BTC"}
	history := &memoryHistory{}
	uc := newUsecase(chat, &fakeRates{price: 1}, history)

	ru := uc.(*redeemUsecase)
	require.NoError(t, ru.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := uc.Activate(ctx, domain.ProfileBanker, "c_1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, chat.codes)
	assert.Empty(t, history.entries)

	err = uc.CreateSession(ctx, func(context.Context) (string, error) { return "1", nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, chat.sessions)

	ru.release()
	result, err := uc.Activate(context.Background(), domain.ProfileBanker, "c_1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.RUB)
}
