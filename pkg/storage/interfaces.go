package storage

import "time"

// HistoryEntry is one redemption attempt
type HistoryEntry struct {
	Profile string    `json:"profile"`
	Code    string    `json:"code"`
	Outcome string    `json:"outcome"`
	BTC     float64   `json:"btc,omitempty"`
	RUB     float64   `json:"rub,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Config represents the application state stored in JSON
type Config struct {
	AllowedUsers []int64        `json:"allowed_users"`
	MCPAPIKeys   []string       `json:"mcp_api_keys"`
	MCPHTTPPort  string         `json:"mcp_http_port"`
	History      []HistoryEntry `json:"history"`
	HistoryLimit int            `json:"history_limit"`
}

// ConfigStorage defines the interface for configuration storage
type ConfigStorage interface {
	Load() (*Config, error)
	Save(cfg *Config) error
}

// APIKeyStorage defines the interface for API key storage
type APIKeyStorage interface {
	GetAPIKeys() ([]string, error)
	AddAPIKey(key string) error
	RemoveAPIKey(key string) error
	IsValidAPIKey(key string) bool
}

// HistoryStorage defines the interface for the redemption history
type HistoryStorage interface {
	AddHistory(entry HistoryEntry) error
	// GetHistory returns up to limit entries, newest first. limit <= 0 returns all.
	GetHistory(limit int) ([]HistoryEntry, error)
}

// AllowedUserStorage defines the interface for managing operator bot users
type AllowedUserStorage interface {
	GetAllowedUsers() ([]int64, error)
	AddAllowedUser(userID int64) error
	RemoveAllowedUser(userID int64) error
	IsUserAllowed(userID int64) bool
}

// CombinedStorage implements every storage interface over one file
type CombinedStorage interface {
	ConfigStorage
	APIKeyStorage
	HistoryStorage
	AllowedUserStorage
}
