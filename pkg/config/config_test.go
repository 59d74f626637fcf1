package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cheque-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"API_ID", "API_HASH", "PHONE_NUMBER", "TELEGRAM_PASSWORD", "SESSION_NAME", "SESSION_DIR",
	"TICKER_URL", "REDEEM_SEND_DELAY", "REDEEM_REPLY_DELAY", "PROFILES_FILE",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_ALLOWED_USERS", "MCP_HTTP_PORT", "MCP_API_KEYS",
	"DATA_DIR", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "Defaults",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultTickerURL, cfg.TickerURL)
				assert.Equal(t, DefaultSendDelay, cfg.SendDelay)
				assert.Equal(t, DefaultReplyDelay, cfg.ReplyDelay)
				assert.Equal(t, "cheque", cfg.SessionName)
				assert.Equal(t, "8875", cfg.MCPHTTPPort)
				assert.Empty(t, cfg.AllowedUsers)
			},
		},
		{
			name: "Full account and lists",
			env: map[string]string{
				"API_ID":                 "12345",
				"API_HASH":               "0123456789abcdef0123456789abcdef",
				"PHONE_NUMBER":           "+79991234567",
				"REDEEM_SEND_DELAY":      "200ms",
				"REDEEM_REPLY_DELAY":     "2s",
				"TELEGRAM_ALLOWED_USERS": "1, 2,,3",
				"MCP_API_KEYS":           "k1, k2",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 12345, cfg.APIID)
				assert.Equal(t, 200*time.Millisecond, cfg.SendDelay)
				assert.Equal(t, 2*time.Second, cfg.ReplyDelay)
				assert.Equal(t, []int64{1, 2, 3}, cfg.AllowedUsers)
				assert.Equal(t, []string{"k1", "k2"}, cfg.MCPAPIKeys)
				assert.NoError(t, cfg.ValidateAccount())
			},
		},
		{
			name:    "Non numeric API_ID",
			env:     map[string]string{"API_ID": "abc"},
			wantErr: true,
		},
		{
			name:    "Bad delay",
			env:     map[string]string{"REDEEM_SEND_DELAY": "soon"},
			wantErr: true,
		},
		{
			name:    "Bad allowed user",
			env:     map[string]string{"TELEGRAM_ALLOWED_USERS": "1,x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidateAccount(t *testing.T) {
	valid := Config{
		APIID:       1,
		APIHash:     "0123456789abcdef0123456789abcdef",
		PhoneNumber: "+79991234567",
		SessionName: "main",
	}
	require.NoError(t, valid.ValidateAccount())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing api id", func(c *Config) { c.APIID = 0 }},
		{"short api hash", func(c *Config) { c.APIHash = "abc" }},
		{"phone without plus", func(c *Config) { c.PhoneNumber = "79991234567" }},
		{"empty session name", func(c *Config) { c.SessionName = "" }},
		{"session name with path", func(c *Config) { c.SessionName = "../etc" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.ValidateAccount()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
		})
	}
}

func TestValidateBot(t *testing.T) {
	assert.Error(t, (&Config{}).ValidateBot())
	assert.NoError(t, (&Config{TelegramBotToken: "t"}).ValidateBot())
}

func TestLoadProfiles(t *testing.T) {
	profiles, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
profiles:
  - name: banker
    handle: "@BTC_CHANGE_BOT"
    code_prefix: c_
    rules:
      - contains: "Чек уже использован"
        outcome: already_used
      - contains: "Вы получили"
        outcome: redeemed
  - name: cryptobot
    title: Crypto Bot
    handle: CryptoBot
    code_prefix: CQ
    rules:
      - contains: "You received"
        outcome: success
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	profiles, err = LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	banker, ok := domain.FindProfile(profiles, "banker")
	require.True(t, ok)
	assert.Equal(t, "BTC_CHANGE_BOT", banker.Handle)
	assert.Equal(t, "BTC_CHANGE_BOT?start=", banker.LinkMarker)
	assert.Equal(t, domain.OutcomeAlreadyUsed, banker.Classify("Чек уже использован").Outcome)

	crypto, ok := domain.FindProfile(profiles, "cryptobot")
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeRedeemed, crypto.Classify("You received 0.1 BTC").Outcome)
}

func TestLoadProfilesInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "profiles: [\n"},
		{"missing handle", "profiles:\n  - name: x\n    rules:\n      - contains: a\n        outcome: redeemed\n"},
		{"no rules", "profiles:\n  - name: x\n    handle: y\n"},
		{"bad outcome", "profiles:\n  - name: x\n    handle: y\n    rules:\n      - contains: a\n        outcome: maybe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mergeProfiles(domain.DefaultProfiles(), []byte(tt.content))
			assert.Error(t, err)
		})
	}
}
