package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"setoran-pa/internal/pkg/logger"
)

// Config holds all configuration for the application
type Config struct {
	AppMode    string
	Port       string
	LogLevel   string
	Identity   IdentityConfig
	Backend    BackendConfig
	TokenStore TokenStoreConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	// RosterSyncSchedule is a cron spec; empty disables background sync.
	RosterSyncSchedule string
}

// IdentityConfig holds the OAuth2 identity provider settings
type IdentityConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// BackendConfig holds the deposit-tracking API settings
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// TokenStoreConfig selects where credentials are persisted
type TokenStoreConfig struct {
	Driver  string // memory, mysql or redis
	Profile string
	Key     string // passphrase for encryption at rest; empty stores plaintext
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RedisConfig holds redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		logger.Log.Warn("⚠️ .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	defaultLevel := "debug"
	if appMode == "prod" {
		defaultLevel = "info"
	}

	config := &Config{
		AppMode:            appMode,
		Port:               getEnv("PORT", "3000"),
		LogLevel:           getEnv("LOG_LEVEL", defaultLevel),
		Identity:           loadIdentityConfig(),
		Backend:            loadBackendConfig(),
		TokenStore:         loadTokenStoreConfig(),
		Database:           loadDatabaseConfig(appMode),
		Redis:              loadRedisConfig(),
		RosterSyncSchedule: strings.TrimSpace(getEnv("ROSTER_SYNC_SCHEDULE", "")),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	logger.Log.Infof("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

func (c *Config) validate() error {
	switch c.TokenStore.Driver {
	case "memory", "mysql", "redis":
	default:
		return fmt.Errorf("invalid TOKEN_STORE: '%s' (must be 'memory', 'mysql' or 'redis')", c.TokenStore.Driver)
	}
	if c.TokenStore.Driver == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when TOKEN_STORE=redis")
	}
	if c.IsProd() {
		if c.Identity.ClientSecret == "" {
			return fmt.Errorf("OAUTH_CLIENT_SECRET is required in prod mode")
		}
		if c.TokenStore.Key == "" {
			return fmt.Errorf("TOKEN_STORE_KEY is required in prod mode")
		}
	}
	return nil
}

func loadIdentityConfig() IdentityConfig {
	return IdentityConfig{
		BaseURL:      getEnv("IDENTITY_BASE_URL", "https://id.tif.uin-suska.ac.id"),
		Realm:        getEnv("IDENTITY_REALM", "dev"),
		ClientID:     getEnv("OAUTH_CLIENT_ID", "setoran-mobile-dev"),
		ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		Scopes:       strings.Fields(getEnv("OAUTH_SCOPE", "openid profile email")),
		Timeout:      getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
	}
}

func loadBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL: getEnv("API_BASE_URL", "https://api.tif.uin-suska.ac.id/setoran-dev/v1/"),
		Timeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
	}
}

func loadTokenStoreConfig() TokenStoreConfig {
	return TokenStoreConfig{
		Driver:  strings.ToLower(strings.TrimSpace(getEnv("TOKEN_STORE", "memory"))),
		Profile: getEnv("TOKEN_PROFILE", "default"),
		Key:     getEnv("TOKEN_STORE_KEY", ""),
	}
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "setoran_pa"),
	}
}

func loadRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration accepts a Go duration ("45s") or KEY_SECONDS as an integer
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	if value := os.Getenv(key + "_SECONDS"); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost"
	}
	return origins
}
