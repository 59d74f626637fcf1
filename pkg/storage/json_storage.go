package storage

import (
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// DefaultHistoryLimit is how many history entries are kept when the file does not say otherwise
const DefaultHistoryLimit = 500

// jsonStorage implements CombinedStorage using a JSON file
type jsonStorage struct {
	filePath string
	mu       sync.RWMutex
}

// NewJSONStorage creates a new JSON storage in dataDir
func NewJSONStorage(dataDir string) CombinedStorage {
	return &jsonStorage{
		filePath: filepath.Join(dataDir, "state.json"),
	}
}

// Load loads configuration from JSON file
func (s *jsonStorage) Load() (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Save saves configuration to JSON file
func (s *jsonStorage) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(cfg)
}

// update loads, mutates and saves the file under one write lock
func (s *jsonStorage) update(fn func(cfg *Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return s.save(cfg)
}

func (s *jsonStorage) load() (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return s.defaultConfig(), nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return &config, nil
}

func (s *jsonStorage) save(cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// defaultConfig returns default configuration
func (s *jsonStorage) defaultConfig() *Config {
	return &Config{
		AllowedUsers: []int64{},
		MCPAPIKeys:   []string{},
		MCPHTTPPort:  "8875",
		History:      []HistoryEntry{},
		HistoryLimit: DefaultHistoryLimit,
	}
}

// GetAPIKeys returns all stored API keys
func (s *jsonStorage) GetAPIKeys() ([]string, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return cfg.MCPAPIKeys, nil
}

// AddAPIKey adds a new API key
func (s *jsonStorage) AddAPIKey(key string) error {
	return s.update(func(cfg *Config) error {
		for _, k := range cfg.MCPAPIKeys {
			if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
				return fmt.Errorf("API key already exists")
			}
		}
		cfg.MCPAPIKeys = append(cfg.MCPAPIKeys, key)
		return nil
	})
}

// RemoveAPIKey removes an API key
func (s *jsonStorage) RemoveAPIKey(key string) error {
	return s.update(func(cfg *Config) error {
		found := false
		newKeys := make([]string, 0, len(cfg.MCPAPIKeys))
		for _, k := range cfg.MCPAPIKeys {
			if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
				found = true
				continue
			}
			newKeys = append(newKeys, k)
		}
		if !found {
			return fmt.Errorf("API key not found")
		}
		cfg.MCPAPIKeys = newKeys
		return nil
	})
}

// IsValidAPIKey checks if the provided key is valid
func (s *jsonStorage) IsValidAPIKey(key string) bool {
	keys, err := s.GetAPIKeys()
	if err != nil {
		return false
	}
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// AddHistory appends a redemption attempt, trimming the oldest entries past the limit
func (s *jsonStorage) AddHistory(entry HistoryEntry) error {
	return s.update(func(cfg *Config) error {
		cfg.History = append(cfg.History, entry)
		limit := cfg.HistoryLimit
		if limit <= 0 {
			limit = DefaultHistoryLimit
		}
		if over := len(cfg.History) - limit; over > 0 {
			cfg.History = append([]HistoryEntry(nil), cfg.History[over:]...)
		}
		return nil
	})
}

// GetHistory returns up to limit entries, newest first
func (s *jsonStorage) GetHistory(limit int) ([]HistoryEntry, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}

	n := len(cfg.History)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]HistoryEntry, 0, n)
	for i := len(cfg.History) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, cfg.History[i])
	}
	return result, nil
}

// GetAllowedUsers returns all allowed operator user IDs
func (s *jsonStorage) GetAllowedUsers() ([]int64, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return cfg.AllowedUsers, nil
}

// AddAllowedUser adds a user to the allowed list
func (s *jsonStorage) AddAllowedUser(userID int64) error {
	return s.update(func(cfg *Config) error {
		for _, id := range cfg.AllowedUsers {
			if id == userID {
				return nil
			}
		}
		cfg.AllowedUsers = append(cfg.AllowedUsers, userID)
		return nil
	})
}

// RemoveAllowedUser removes a user from the allowed list
func (s *jsonStorage) RemoveAllowedUser(userID int64) error {
	return s.update(func(cfg *Config) error {
		newUsers := make([]int64, 0, len(cfg.AllowedUsers))
		for _, id := range cfg.AllowedUsers {
			if id != userID {
				newUsers = append(newUsers, id)
			}
		}
		cfg.AllowedUsers = newUsers
		return nil
	})
}

// IsUserAllowed checks if a user is in the allowed list
func (s *jsonStorage) IsUserAllowed(userID int64) bool {
	users, err := s.GetAllowedUsers()
	if err != nil {
		return false
	}
	for _, id := range users {
		if id == userID {
			return true
		}
	}
	return false
}
