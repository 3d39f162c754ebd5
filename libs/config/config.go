// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Storage  StorageConfig
	TTS      TTSConfig
	CMS      CMSConfig
	Player   PlayerConfig
	Queue    QueueConfig
	Schedule ScheduleConfig
	// APIKey is accepted by the CMS routes in place of an editor token
	APIKey string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
	// PublicURL is the base URL of the web client, used in magic link emails
	PublicURL     string
	MaxUploadSize int64
	SecureCookies bool
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
	EditorTokenExpiry time.Duration
	MagicLinkExpiry   time.Duration
}

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	// Driver is either "local" or "gcs"
	Driver          string
	MediaBasePath   string
	MediaBaseURL    string
	GCSBucket       string
	GCSCredentials  string
	SignedURLTTL    time.Duration
	ResolverWorkers int
}

// TTSConfig holds text-to-speech vendor settings
type TTSConfig struct {
	BaseURL string
	APIKey  string
	VoiceID string
	Timeout time.Duration
}

// CMSConfig holds content editor settings
type CMSConfig struct {
	Password     string
	PasswordHash string
}

// PlayerConfig holds lesson player settings
type PlayerConfig struct {
	XPReward        int
	XPAnimation     time.Duration
	FadeDuration    time.Duration
	SessionTTL      time.Duration
	ReadinessWait   time.Duration
	PreloadTimeout  time.Duration
	DefaultRedirect string
}

// QueueConfig holds background queue settings
type QueueConfig struct {
	// ProgressSync is "queue" or "inline"
	ProgressSync     string
	ProgressMaxRetry int
	Concurrency      int
}

// ScheduleConfig holds cron expressions of the scheduler jobs
type ScheduleConfig struct {
	MagicLinkCleanup string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}
	var err error

	// Database configuration
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Port, err = intEnv("DB_PORT", 3306); err != nil {
		return nil, err
	}
	if cfg.Database.User, err = requireEnv("DB_USER"); err != nil {
		return nil, err
	}
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	if cfg.Database.DBName, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Server configuration
	if cfg.Server.Port, err = intEnv("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	cfg.Server.PublicURL = getEnv("PUBLIC_URL", "http://localhost:5173")
	maxUpload, err := intEnv("MAX_UPLOAD_SIZE", 200<<20) // 200MB
	if err != nil {
		return nil, err
	}
	cfg.Server.MaxUploadSize = int64(maxUpload)
	if cfg.Server.SecureCookies, err = boolEnv("COOKIE_SECURE", true); err != nil {
		return nil, err
	}

	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	if cfg.JWT.Secret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.JWT.AccessTokenExpiry, err = durationEnv("JWT_ACCESS_TOKEN_EXPIRY", "168h"); err != nil {
		return nil, err
	}
	if cfg.JWT.EditorTokenExpiry, err = durationEnv("JWT_EDITOR_TOKEN_EXPIRY", "8h"); err != nil {
		return nil, err
	}
	if cfg.JWT.MagicLinkExpiry, err = durationEnv("MAGIC_LINK_EXPIRY", "15m"); err != nil {
		return nil, err
	}

	cfg.APIKey = os.Getenv("API_KEY")

	// Redis configuration
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = intEnv("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD") // optional
	if cfg.Redis.DB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// SMTP configuration
	cfg.SMTP.Host = getEnv("SMTP_HOST", "localhost")
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME") // optional
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD") // optional
	cfg.SMTP.From = getEnv("SMTP_FROM", "captain@captainspark.app")

	// Storage configuration
	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", "local")
	cfg.Storage.MediaBasePath = getEnv("MEDIA_BASE_PATH", "./media")
	cfg.Storage.MediaBaseURL = getEnv("MEDIA_BASE_URL", "http://localhost:8080/api/v1")
	cfg.Storage.GCSBucket = os.Getenv("GCS_BUCKET")
	cfg.Storage.GCSCredentials = os.Getenv("GCS_CREDENTIALS_FILE")
	if cfg.Storage.Driver == "gcs" && cfg.Storage.GCSBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required when STORAGE_DRIVER=gcs")
	}
	if cfg.Storage.SignedURLTTL, err = durationEnv("SIGNED_URL_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.Storage.ResolverWorkers, err = intEnv("RESOLVER_CONCURRENCY", 8); err != nil {
		return nil, err
	}

	// TTS configuration (optional, narration is skipped without a key)
	cfg.TTS.BaseURL = getEnv("TTS_BASE_URL", "https://api.elevenlabs.io")
	cfg.TTS.APIKey = os.Getenv("TTS_API_KEY")
	cfg.TTS.VoiceID = getEnv("TTS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM")
	if cfg.TTS.Timeout, err = durationEnv("TTS_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	// CMS configuration
	cfg.CMS.Password = os.Getenv("CMS_PASSWORD")
	cfg.CMS.PasswordHash = os.Getenv("CMS_PASSWORD_HASH")
	if cfg.CMS.Password == "" && cfg.CMS.PasswordHash == "" {
		return nil, fmt.Errorf("CMS_PASSWORD or CMS_PASSWORD_HASH is required")
	}

	// Player configuration
	if cfg.Player.XPReward, err = intEnv("XP_REWARD", 70); err != nil {
		return nil, err
	}
	if cfg.Player.XPAnimation, err = durationEnv("XP_ANIMATION", "1200ms"); err != nil {
		return nil, err
	}
	if cfg.Player.FadeDuration, err = durationEnv("FADE_DURATION", "400ms"); err != nil {
		return nil, err
	}
	if cfg.Player.SessionTTL, err = durationEnv("PLAYER_SESSION_TTL", "2h"); err != nil {
		return nil, err
	}
	if cfg.Player.ReadinessWait, err = durationEnv("READINESS_WAIT", "0s"); err != nil {
		return nil, err
	}
	if cfg.Player.PreloadTimeout, err = durationEnv("PRELOAD_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	cfg.Player.DefaultRedirect = getEnv("MAGIC_LINK_REDIRECT", "/lesson/intro")

	// Queue configuration
	cfg.Queue.ProgressSync = getEnv("PROGRESS_SYNC", "queue")
	if cfg.Queue.ProgressSync != "queue" && cfg.Queue.ProgressSync != "inline" {
		return nil, fmt.Errorf("invalid PROGRESS_SYNC: %s", cfg.Queue.ProgressSync)
	}
	if cfg.Queue.ProgressMaxRetry, err = intEnv("PROGRESS_MAX_RETRY", 5); err != nil {
		return nil, err
	}
	if cfg.Queue.Concurrency, err = intEnv("WORKER_CONCURRENCY", 10); err != nil {
		return nil, err
	}

	cfg.Schedule.MagicLinkCleanup = getEnv("MAGIC_LINK_CLEANUP_SCHEDULE", "0 * * * *")

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseOrigins splits a comma-separated origin list, defaulting to "*"
func parseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
