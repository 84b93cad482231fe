package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Search    SearchConfig    `yaml:"search"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	DevMode        bool     `yaml:"dev_mode"`
	CookieName     string   `yaml:"cookie_name"`
	CookieSecure   bool     `yaml:"cookie_secure"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
	ShutdownSecs   int      `yaml:"shutdown_timeout_seconds"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// set the client IP. Empty means the socket address is always used.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"` // mysql, postgres, memory
	URL      string         `yaml:"url"`
	Verbose  bool           `yaml:"verbose"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// AuthConfig contains token and password settings
type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret"`
	TokenTTLHours     int    `yaml:"token_ttl_hours"`
	BcryptCost        int    `yaml:"bcrypt_cost"`
	MinPasswordLength int    `yaml:"min_password_length"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// StorageConfig contains object storage settings for uploaded images
type StorageConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Endpoint      string   `yaml:"endpoint"`
	Region        string   `yaml:"region"`
	Bucket        string   `yaml:"bucket"`
	AccessKey     string   `yaml:"access_key"`
	SecretKey     string   `yaml:"secret_key"`
	PublicBaseURL string   `yaml:"public_base_url"`
	Prefix        string   `yaml:"prefix"`
	MaxFileBytes  int64    `yaml:"max_file_bytes"`
	MaxFiles      int      `yaml:"max_files"`
	AllowedTypes  []string `yaml:"allowed_types"`
}

// RateLimitConfig contains per-client rate limiting settings
type RateLimitConfig struct {
	Enabled               bool `yaml:"enabled"`
	RequestsPerMinute     int  `yaml:"requests_per_minute"`
	AuthRequestsPerMinute int  `yaml:"auth_requests_per_minute"`
}

// SchedulerConfig contains background job settings
type SchedulerConfig struct {
	Enabled              bool   `yaml:"enabled"`
	CleanupCron          string `yaml:"cleanup_cron"`
	ReindexCron          string `yaml:"reindex_cron"`
	EnquiryRetentionDays int    `yaml:"enquiry_retention_days"`
	CleanupDryRun        bool   `yaml:"cleanup_dry_run"`
	SyncPollIntervalSecs int    `yaml:"sync_poll_interval_seconds"`
	MaxDeletionCount     int    `yaml:"max_deletion_count"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json, text
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8084",
			AllowedOrigins: []string{"http://localhost:3000"},
			CookieName:     "token",
			MaxBodyBytes:   1 << 20,
			ShutdownSecs:   10,
		},
		Database: DatabaseConfig{
			Type: "mysql",
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "listings",
				Database: "listings",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "listings",
				Database: "listings",
				SSLMode:  "disable",
			},
		},
		Auth: AuthConfig{
			TokenTTLHours:     7 * 24,
			BcryptCost:        10,
			MinPasswordLength: 6,
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host:  "http://localhost:7700",
				Index: "listings",
			},
		},
		Storage: StorageConfig{
			Region:       "us-east-1",
			Prefix:       "listings",
			MaxFileBytes: 5 << 20,
			MaxFiles:     10,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		},
		RateLimit: RateLimitConfig{
			Enabled:               true,
			RequestsPerMinute:     200,
			AuthRequestsPerMinute: 20,
		},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			CleanupCron:          "0 3 * * *",
			ReindexCron:          "30 3 * * *",
			EnquiryRetentionDays: 365,
			SyncPollIntervalSecs: 10,
			MaxDeletionCount:     10000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnvironment overrides file values with environment variables.
func (c *Config) ApplyEnvironment() {
	c.Server.Port = getEnvOrConfig(c.Server.Port, "PORT", "8084")
	if origins := os.Getenv("CLIENT_URL"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		c.Server.TrustedProxies = splitList(proxies)
	}
	c.Server.DevMode = getEnvBool("DEV_MODE", c.Server.DevMode)
	c.Server.CookieSecure = getEnvBool("COOKIE_SECURE", c.Server.CookieSecure)

	c.Database.Type = getEnvOrConfig(c.Database.Type, "DB_TYPE", "mysql")
	c.Database.URL = getEnvOrConfig(c.Database.URL, "DATABASE_URL", "")
	switch c.Database.Type {
	case "postgres":
		c.Database.Postgres.Host = getEnvOrConfig(c.Database.Postgres.Host, "DB_HOST", "localhost")
		c.Database.Postgres.Port = getEnvInt("DB_PORT", c.Database.Postgres.Port)
		c.Database.Postgres.User = getEnvOrConfig(c.Database.Postgres.User, "DB_USER", "listings")
		c.Database.Postgres.Password = getEnvOrConfig(c.Database.Postgres.Password, "DB_PASSWORD", "")
		c.Database.Postgres.Database = getEnvOrConfig(c.Database.Postgres.Database, "DB_NAME", "listings")
	case "mysql":
		c.Database.MySQL.Host = getEnvOrConfig(c.Database.MySQL.Host, "DB_HOST", "localhost")
		c.Database.MySQL.Port = getEnvInt("DB_PORT", c.Database.MySQL.Port)
		c.Database.MySQL.User = getEnvOrConfig(c.Database.MySQL.User, "DB_USER", "listings")
		c.Database.MySQL.Password = getEnvOrConfig(c.Database.MySQL.Password, "DB_PASSWORD", "")
		c.Database.MySQL.Database = getEnvOrConfig(c.Database.MySQL.Database, "DB_NAME", "listings")
	}

	c.Auth.JWTSecret = getEnvOrConfig(c.Auth.JWTSecret, "JWT_SECRET", "")
	c.Auth.TokenTTLHours = getEnvInt("TOKEN_TTL_HOURS", c.Auth.TokenTTLHours)

	c.Search.Meilisearch.Host = getEnvOrConfig(c.Search.Meilisearch.Host, "MEILISEARCH_HOST", "http://localhost:7700")
	c.Search.Meilisearch.APIKey = getEnvOrConfig(c.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", "")
	c.Search.Enabled = getEnvBool("SEARCH_ENABLED", c.Search.Enabled)

	c.Storage.Enabled = getEnvBool("S3_ENABLED", c.Storage.Enabled)
	c.Storage.Endpoint = getEnvOrConfig(c.Storage.Endpoint, "S3_ENDPOINT", "")
	c.Storage.Region = getEnvOrConfig(c.Storage.Region, "S3_REGION", "us-east-1")
	c.Storage.Bucket = getEnvOrConfig(c.Storage.Bucket, "S3_BUCKET", "")
	c.Storage.AccessKey = getEnvOrConfig(c.Storage.AccessKey, "S3_ACCESS_KEY", "")
	c.Storage.SecretKey = getEnvOrConfig(c.Storage.SecretKey, "S3_SECRET_KEY", "")
	c.Storage.PublicBaseURL = getEnvOrConfig(c.Storage.PublicBaseURL, "S3_PUBLIC_BASE_URL", "")

	c.Logging.Level = getEnvOrConfig(c.Logging.Level, "LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrConfig(c.Logging.Format, "LOG_FORMAT", "json")
}

// Validate reports configuration that would make the server unsafe or unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" && !c.Server.DevMode {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET) is required outside dev mode"))
	}
	switch c.Database.Type {
	case "mysql", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("database.type %q is not one of mysql, postgres, memory", c.Database.Type))
	}
	if c.Auth.TokenTTLHours <= 0 {
		errs = append(errs, errors.New("auth.token_ttl_hours must be positive"))
	}
	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", proxy))
		}
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage.bucket is required when storage is enabled"))
	}
	return errors.Join(errs...)
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

// GetTokenTTL returns the token lifetime as a duration
func (c *AuthConfig) GetTokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// GetShutdownTimeout returns the graceful shutdown budget
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSecs) * time.Second
}

// GetSyncPollInterval returns the search queue poll interval
func (c *SchedulerConfig) GetSyncPollInterval() time.Duration {
	return time.Duration(c.SyncPollIntervalSecs) * time.Second
}

// getEnvOrConfig returns environment variable if set, otherwise config value, otherwise default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}

func getEnvInt(envKey string, fallback int) int {
	if value := os.Getenv(envKey); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(envKey string, fallback bool) bool {
	if value := os.Getenv(envKey); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
