package mcp

import (
	"context"
	"testing"

	"cheque-bot/internal/domain"
	"cheque-bot/pkg/storage"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	activated []string
	result    *domain.Result
	err       error
	price     float64
	history   []storage.HistoryEntry
	limit     int
}

func (f *fakeUsecase) Activate(_ context.Context, profile, cheque string) (*domain.Result, error) {
	f.activated = append(f.activated, profile+":"+cheque)
	return f.result, f.err
}

func (f *fakeUsecase) ActivateAuto(_ context.Context, cheque string) (*domain.Result, error) {
	f.activated = append(f.activated, "auto:"+cheque)
	return f.result, f.err
}

func (f *fakeUsecase) ToRub(_ context.Context, btc float64) (float64, error) {
	return btc * f.price, f.err
}

func (f *fakeUsecase) CreateSession(context.Context, func(ctx context.Context) (string, error)) error {
	return nil
}

func (f *fakeUsecase) Profiles() []domain.BotProfile { return domain.DefaultProfiles() }

func (f *fakeUsecase) History(_ context.Context, limit int) ([]storage.HistoryEntry, error) {
	f.limit = limit
	return f.history, nil
}

func TestCallToolActivate(t *testing.T) {
	uc := &fakeUsecase{result: &domain.Result{BTC: 0.01, RUB: 10000}}

	text, err := CallTool(context.Background(), uc, "activate_cheque", map[string]interface{}{"cheque": "c_1", "profile": "banker"})
	require.NoError(t, err)

	var got domain.Result
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, domain.Result{BTC: 0.01, RUB: 10000}, got)

	_, err = CallTool(context.Background(), uc, "activate_cheque", map[string]interface{}{"cheque": "https://t.me/BTC_CHANGE_BOT?start=c_2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"banker:c_1", "auto:https://t.me/BTC_CHANGE_BOT?start=c_2"}, uc.activated)
}

func TestCallToolActivateErrors(t *testing.T) {
	uc := &fakeUsecase{err: &domain.ChequeError{Profile: "banker", Outcome: domain.OutcomeAlreadyUsed}}

	_, err := CallTool(context.Background(), uc, "activate_cheque", map[string]interface{}{"cheque": "c_1", "profile": "banker"})
	assert.ErrorIs(t, err, domain.ErrChequeAlreadyUsed)

	_, err = CallTool(context.Background(), uc, "activate_cheque", map[string]interface{}{})
	assert.Error(t, err)
}

func TestCallToolToRub(t *testing.T) {
	uc := &fakeUsecase{price: 1000000}

	text, err := CallTool(context.Background(), uc, "to_rub", map[string]interface{}{"btc_amount": 0.01})
	require.NoError(t, err)

	var got map[string]float64
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.InDelta(t, 10000.0, got["rub"], 1e-6)

	_, err = CallTool(context.Background(), uc, "to_rub", map[string]interface{}{"btc_amount": "lots"})
	assert.Error(t, err)
}

func TestCallToolListAndHistory(t *testing.T) {
	uc := &fakeUsecase{history: []storage.HistoryEntry{{Profile: "banker", Code: "c_1", Outcome: "redeemed"}}}

	text, err := CallTool(context.Background(), uc, "list_profiles", nil)
	require.NoError(t, err)
	assert.Contains(t, text, "@BTC_CHANGE_BOT")
	assert.Contains(t, text, "getwallet")

	text, err = CallTool(context.Background(), uc, "redemption_history", map[string]interface{}{})
	require.NoError(t, err)
	assert.Contains(t, text, "c_1")
	assert.Equal(t, 10, uc.limit)

	_, err = CallTool(context.Background(), uc, "redemption_history", map[string]interface{}{"limit": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, uc.limit)

	_, err = CallTool(context.Background(), uc, "drop_tables", nil)
	assert.Error(t, err)
}

func TestToolsHaveSchemas(t *testing.T) {
	for _, tool := range Tools() {
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
	}
}
