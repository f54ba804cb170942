// Package config loads configuration for the blog server and the quack client.
//
// Values resolve with this precedence:
//  1. Command-line flags (highest priority).
//  2. Environment variables.
//  3. .env file.
//  4. Default values (lowest priority).
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAdminTeamID is the team whose members may author posts.
const DefaultAdminTeamID = "admin-team"

// Config holds the server configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Google    GoogleConfig
	Content   ContentConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	PublicURL    string // origin used for OAuth callbacks and redirect checks
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StorageConfig holds on-disk locations. Everything lives under DataDir.
type StorageConfig struct {
	DataDir string
}

// DatabasePath is the sqlite database file.
func (s StorageConfig) DatabasePath() string { return filepath.Join(s.DataDir, "quack.db") }

// SearchPath is the bleve index directory.
func (s StorageConfig) SearchPath() string { return filepath.Join(s.DataDir, "search") }

// SnapshotPath is the badger snapshot cache directory.
func (s StorageConfig) SnapshotPath() string { return filepath.Join(s.DataDir, "snapshot") }

// MediaPath is the root for uploaded header images.
func (s StorageConfig) MediaPath() string { return filepath.Join(s.DataDir, "media") }

// KeyPath is the PASETO key file.
func (s StorageConfig) KeyPath() string { return filepath.Join(s.DataDir, "auth.key") }

// AuthConfig holds session configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key (32 bytes), loaded or generated at startup.
	SessionKey     []byte
	SessionTTL     time.Duration
	OAuthSecretTTL time.Duration
	CookieSecure   bool
}

// GoogleConfig holds Google OAuth client credentials. OAuth login is disabled
// when ClientID is empty.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether Google login is configured.
func (g GoogleConfig) Enabled() bool { return g.ClientID != "" && g.ClientSecret != "" }

// ContentConfig holds content-layer settings.
type ContentConfig struct {
	AdminTeamID     string
	SnapshotEnabled bool
}

// RateLimitConfig holds limits for anonymous counter endpoints and logins.
type RateLimitConfig struct {
	CountersPerMinute int
	LoginsPerMinute   int
}

// LoadConfig loads the server configuration from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	port := fs.String("port", "", "HTTP port (default: 8080)")
	publicURL := fs.String("public-url", "", "Public origin of the server (default: http://localhost:{port})")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")
	dataDir := fs.String("data-dir", "", "Directory for database, index, snapshots and media")
	sessionTTL := fs.String("session-ttl", "", "Session lifetime (default: 720h)")
	adminTeam := fs.String("admin-team", "", "Admin team id (default: admin-team)")
	snapshots := fs.String("snapshots", "", "Serve cached listings when the store is unavailable (default: true)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Missing .env is fine; existing environment variables win over it.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*port, "HTTP_PORT", "8080"),
			PublicURL:   getConfigValue(*publicURL, "PUBLIC_URL", ""),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
		},
		Storage: StorageConfig{
			DataDir: getConfigValue(*dataDir, "DATA_DIR", ""),
		},
		Google: GoogleConfig{
			ClientID:     getConfigValue("", "GOOGLE_CLIENT_ID", ""),
			ClientSecret: getConfigValue("", "GOOGLE_CLIENT_SECRET", ""),
		},
		Content: ContentConfig{
			AdminTeamID:     getConfigValue(*adminTeam, "ADMIN_TEAM_ID", DefaultAdminTeamID),
			SnapshotEnabled: getBoolConfigValue(*snapshots, "SNAPSHOTS_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			CountersPerMinute: getIntConfigValue("", "RATE_LIMIT_PER_MINUTE", 60),
			LoginsPerMinute:   getIntConfigValue("", "LOGIN_RATE_LIMIT_PER_MINUTE", 10),
		},
	}

	var err error
	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Auth.SessionTTL, *sessionTTL, "SESSION_TTL", "720h"},
		{&cfg.Auth.OAuthSecretTTL, "", "OAUTH_SECRET_TTL", "10m"},
		{&cfg.Server.ReadTimeout, "", "HTTP_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, "", "HTTP_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, "", "HTTP_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		if *d.dst, err = getDurationConfigValue(d.flag, d.envKey, d.fallback); err != nil {
			return nil, err
		}
	}

	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")
	cfg.Auth.CookieSecure = strings.HasPrefix(cfg.Server.PublicURL, "https://")

	if err := cfg.expandDataDir(); err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port: %q", c.Server.Port)
	}

	u, err := url.Parse(c.Server.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid public url: %q", c.Server.PublicURL)
	}

	if c.Storage.DataDir == "" {
		return errors.New("data dir cannot be empty after expansion")
	}

	if strings.TrimSpace(c.Content.AdminTeamID) == "" {
		return errors.New("admin team id cannot be empty")
	}

	if c.Auth.SessionTTL <= 0 || c.Auth.OAuthSecretTTL <= 0 {
		return errors.New("session and oauth secret lifetimes must be positive")
	}

	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	if c.RateLimit.CountersPerMinute <= 0 || c.RateLimit.LoginsPerMinute <= 0 {
		return errors.New("rate limits must be positive")
	}

	return nil
}

func (c *Config) expandDataDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.DataDir, filepath.Join(homeDir, ".quackblog"))
	if err != nil {
		return err
	}
	c.Storage.DataDir = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return d, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
