// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	UploadDir      string // Where multipart files are staged before upload
	AuthRateLimit  int    // Login/register attempts per client per minute
	// Take the client address from X-Real-IP/X-Forwarded-For. Only safe
	// behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type string // "mongo" or "memory"
	URI  string
	Name string
}

// AuthConfig holds token signing settings. Access and refresh tokens use
// separate secrets so one can never be replayed as the other.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	CookieSecure       bool
	BcryptCost         int
}

// StorageConfig holds the object storage (S3 compatible) settings
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string // Base URL objects are served from; defaults to Endpoint/Bucket
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level       string // "debug", "info", "warn", "error"
	Format      string // "text" or "json"
	Environment string
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	Storage        *StorageConfig
	Log            *LogConfig
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8000,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		UploadDir:      os.TempDir(),
		AuthRateLimit:  10,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type: "mongo",
		Name: "videotube",
	}
}

// DefaultAuthConfig provides default token lifetimes
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 10 * 24 * time.Hour,
		CookieSecure:       true,
		BcryptCost:         10,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",       // Current directory
		"../../.env", // Project root when running from cmd/server
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		// Silent when no .env exists; the environment alone may be enough
		_ = godotenv.Load(filepath.Join(".", ".env.local"))
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current process environment only.
func FromEnv() (*Config, error) {
	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %v", portStr, err)
		}
		serverConfig.Port = port
	}

	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}

	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	serverConfig.UploadDir = getEnvOrDefault("UPLOAD_DIR", serverConfig.UploadDir)
	serverConfig.TrustProxyHeaders = os.Getenv("TRUST_PROXY_HEADERS") == "true"

	if limitStr := os.Getenv("AUTH_RATE_LIMIT"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT %q", limitStr)
		}
		serverConfig.AuthRateLimit = limit
	}

	dbConfig := DefaultDatabaseConfig()
	dbConfig.Type = getEnvOrDefault("DB_TYPE", dbConfig.Type)
	dbConfig.Name = getEnvOrDefault("DB_NAME", dbConfig.Name)

	switch dbConfig.Type {
	case "mongo":
		dbConfig.URI = os.Getenv("MONGODB_URI")
		if dbConfig.URI == "" {
			return nil, fmt.Errorf("MONGODB_URI environment variable is required when DB_TYPE is mongo")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbConfig.Type)
	}

	authConfig, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	storageConfig := &StorageConfig{
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		Region:    getEnvOrDefault("S3_REGION", "us-east-1"),
		Bucket:    getEnvOrDefault("S3_BUCKET", "videotube"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}
	if storageConfig.PublicURL == "" && storageConfig.Endpoint != "" {
		storageConfig.PublicURL = strings.TrimRight(storageConfig.Endpoint, "/") + "/" + storageConfig.Bucket
	}

	logConfig := &LogConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Format:      getEnvOrDefault("LOG_FORMAT", "text"),
		Environment: getEnvOrDefault("APP_ENV", "dev"),
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		Auth:           authConfig,
		Storage:        storageConfig,
		Log:            logConfig,
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		Debug:          false,
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
		config.Log.Level = "debug"
	}

	return config, nil
}

func loadAuthConfig() (*AuthConfig, error) {
	authConfig := DefaultAuthConfig()

	authConfig.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET")
	if authConfig.AccessTokenSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET environment variable is required")
	}

	authConfig.RefreshTokenSecret = os.Getenv("REFRESH_TOKEN_SECRET")
	if authConfig.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET environment variable is required")
	}

	if authConfig.AccessTokenSecret == authConfig.RefreshTokenSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	var err error
	if authConfig.AccessTokenExpiry, err = getDurationOrDefault("ACCESS_TOKEN_EXPIRY", authConfig.AccessTokenExpiry); err != nil {
		return nil, err
	}
	if authConfig.RefreshTokenExpiry, err = getDurationOrDefault("REFRESH_TOKEN_EXPIRY", authConfig.RefreshTokenExpiry); err != nil {
		return nil, err
	}

	if secure := os.Getenv("COOKIE_SECURE"); secure != "" {
		authConfig.CookieSecure = secure != "false"
	}

	if costStr := os.Getenv("BCRYPT_COST"); costStr != "" {
		cost, err := strconv.Atoi(costStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q: %v", costStr, err)
		}
		authConfig.BcryptCost = cost
	}

	return authConfig, nil
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Durations accept Go syntax ("15m", "240h") or a bare number of seconds.
func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, value, err)
	}
	return d, nil
}
