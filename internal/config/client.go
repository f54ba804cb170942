package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig holds configuration for the quack command-line client.
type ClientConfig struct {
	ServerURL   string
	TokenFile   string // shared by every quack process; changes trigger re-validation
	AdminTeamID string
	LogLevel    string
	// SessionWait bounds the poll for an active session after an OAuth exchange.
	SessionWait time.Duration
	Timeout     time.Duration
}

// LoadClientConfig resolves client settings from the environment and an
// optional .env file in the working directory.
func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	base := filepath.Join(homeDir, ".config", "quack")

	cfg := &ClientConfig{
		ServerURL:   getConfigValue("", "QUACK_SERVER", "http://localhost:8080"),
		AdminTeamID: getConfigValue("", "QUACK_ADMIN_TEAM", DefaultAdminTeamID),
		LogLevel:    getConfigValue("", "QUACK_LOG_LEVEL", "warn"),
	}

	if cfg.TokenFile, err = expandPath(getConfigValue("", "QUACK_TOKEN_FILE", ""), filepath.Join(base, "session.json")); err != nil {
		return nil, err
	}
	if cfg.SessionWait, err = getDurationConfigValue("", "QUACK_SESSION_WAIT", "10s"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = getDurationConfigValue("", "QUACK_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	return cfg, nil
}
