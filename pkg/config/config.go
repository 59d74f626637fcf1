package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cheque-bot/internal/domain"

	"github.com/joho/godotenv"
)

const (
	DefaultTickerURL  = "https://blockchain.info/ticker"
	DefaultSendDelay  = 1500 * time.Millisecond
	DefaultReplyDelay = 1500 * time.Millisecond
)

// Config holds all application configuration
type Config struct {
	// Telegram user account
	APIID       int
	APIHash     string
	PhoneNumber string
	Password    string
	SessionName string
	SessionDir  string

	// Redemption
	TickerURL    string
	SendDelay    time.Duration
	ReplyDelay   time.Duration
	ProfilesFile string

	// Operator bot
	TelegramBotToken string
	AllowedUsers     []int64

	// MCP
	MCPHTTPPort string
	MCPAPIKeys  []string

	// Storage
	DataDir string

	LogLevel string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		APIHash:          getEnv("API_HASH", ""),
		PhoneNumber:      getEnv("PHONE_NUMBER", ""),
		Password:         getEnv("TELEGRAM_PASSWORD", ""),
		SessionName:      getEnv("SESSION_NAME", "cheque"),
		SessionDir:       getEnv("SESSION_DIR", "./data/sessions"),
		TickerURL:        getEnv("TICKER_URL", DefaultTickerURL),
		ProfilesFile:     getEnv("PROFILES_FILE", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		MCPHTTPPort:      getEnv("MCP_HTTP_PORT", "8875"),
		DataDir:          getEnv("DATA_DIR", "./data"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if idStr := getEnv("API_ID", ""); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: API_ID must be an integer, got %q", domain.ErrInvalidCredentials, idStr)
		}
		cfg.APIID = id
	}

	var err error
	if cfg.SendDelay, err = getDuration("REDEEM_SEND_DELAY", DefaultSendDelay); err != nil {
		return nil, err
	}
	if cfg.ReplyDelay, err = getDuration("REDEEM_REPLY_DELAY", DefaultReplyDelay); err != nil {
		return nil, err
	}

	// Parse allowed users
	if usersStr := getEnv("TELEGRAM_ALLOWED_USERS", ""); usersStr != "" {
		for _, idStr := range strings.Split(usersStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID in TELEGRAM_ALLOWED_USERS: %s", idStr)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, id)
		}
	}

	if keysStr := getEnv("MCP_API_KEYS", ""); keysStr != "" {
		for _, key := range strings.Split(keysStr, ",") {
			if key = strings.TrimSpace(key); key != "" {
				cfg.MCPAPIKeys = append(cfg.MCPAPIKeys, key)
			}
		}
	}

	return cfg, nil
}

var (
	apiHashPattern     = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	phonePattern       = regexp.MustCompile(`^\+[0-9]{7,15}$`)
	sessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ValidateAccount checks the Telegram user account parameters
func (c *Config) ValidateAccount() error {
	if c.APIID <= 0 {
		return fmt.Errorf("%w: API_ID is required and must be positive", domain.ErrInvalidCredentials)
	}
	if !apiHashPattern.MatchString(c.APIHash) {
		return fmt.Errorf("%w: API_HASH must be 32 hex characters", domain.ErrInvalidCredentials)
	}
	if !phonePattern.MatchString(c.PhoneNumber) {
		return fmt.Errorf("%w: PHONE_NUMBER must look like +79991234567", domain.ErrInvalidCredentials)
	}
	if !sessionNamePattern.MatchString(c.SessionName) || c.SessionName == "." || c.SessionName == ".." {
		return fmt.Errorf("%w: SESSION_NAME %q is not a valid file name", domain.ErrInvalidCredentials, c.SessionName)
	}
	return nil
}

// ValidateBot checks the operator bot parameters
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// SessionPath returns the file the MTProto session is persisted to
func (c *Config) SessionPath() string {
	return filepath.Join(c.SessionDir, c.SessionName+".session.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration in %s: %s", key, value)
	}
	return d, nil
}
