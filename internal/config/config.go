package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	S3       S3Config
	LLM      LLMConfig
	Mail     MailConfig
	Browser  BrowserConfig
	Notify   NotifyConfig
	Sentry   SentryConfig
}

// LLMConfig holds configuration for the Anthropic chat-completion gateway
type LLMConfig struct {
	APIKey         string
	Model          string
	MaxConcurrency int
	RequestsPerMin int
	Timeout        time.Duration
}

// MailConfig holds configuration for the Gmail OAuth2 mail gateway
type MailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	SendTimeout  time.Duration
}

// BrowserConfig holds configuration for the external browser-automation worker
type BrowserConfig struct {
	BaseURL      string
	SharedSecret string
	StartTimeout time.Duration
	PollTimeout  time.Duration
	HealthTimeout time.Duration
}

// NotifyConfig holds configuration for the transactional notification channel
type NotifyConfig struct {
	ResendAPIKey string
	FromAddress  string
}

// SentryConfig holds configuration for error tracking
type SentryConfig struct {
	DSN         string
	Environment string
	SampleRate  float64
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret   string
	RefreshSecret  string
	AccessExpiry   time.Duration
	RefreshExpiry  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// S3Config holds S3 storage configuration
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "jobber"),
			Password:        getEnv("DB_PASSWORD", "jobber"),
			DBName:          getEnv("DB_NAME", "jobber"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret:  getEnv("JWT_REFRESH_SECRET", ""),
			AccessExpiry:   getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry:  getEnvAsDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "eu-central"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("ANTHROPIC_API_KEY", ""),
			Model:          getEnv("LLM_MODEL", "claude-sonnet-4-5"),
			MaxConcurrency: getEnvAsInt("LLM_MAX_CONCURRENCY", 4),
			RequestsPerMin: getEnvAsInt("LLM_RPM", 50),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Mail: MailConfig{
			ClientID:     getEnv("GMAIL_CLIENT_ID", ""),
			ClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GMAIL_REDIRECT_URL", ""),
			SendTimeout:  getEnvAsDuration("MAIL_SEND_TIMEOUT", 30*time.Second),
		},
		Browser: BrowserConfig{
			BaseURL:       getEnv("BROWSER_WORKER_URL", "http://localhost:9090"),
			SharedSecret:  getEnv("BROWSER_WORKER_SECRET", ""),
			StartTimeout:  getEnvAsDuration("BROWSER_START_TIMEOUT", 120*time.Second),
			PollTimeout:   getEnvAsDuration("BROWSER_POLL_TIMEOUT", 10*time.Second),
			HealthTimeout: getEnvAsDuration("BROWSER_HEALTH_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromAddress:  getEnv("NOTIFY_FROM_ADDRESS", "notifications@jobber.example.com"),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: getEnv("SERVER_ENV", "development"),
			SampleRate:  1.0,
		},
	}

	// Validate required fields
	if cfg.JWT.AccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
