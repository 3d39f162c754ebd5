package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the configuration for integration tests.
// When TEST_DB_* variables are missing it returns a Config with an empty
// Database section so callers can skip database-backed tests.
func LoadTestConfig() (*Config, error) {
	// Try loading from project root
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.JWT.Secret = getEnv("TEST_JWT_SECRET", "test-secret")
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.JWT.EditorTokenExpiry = time.Hour
	cfg.JWT.MagicLinkExpiry = 15 * time.Minute
	cfg.Player.XPReward = 70
	cfg.Player.FadeDuration = 400 * time.Millisecond
	cfg.Storage.SignedURLTTL = time.Hour
	cfg.Storage.MediaBasePath = getEnv("TEST_MEDIA_BASE_PATH", os.TempDir())
	cfg.Storage.MediaBaseURL = "http://localhost:8080/api/v1"
	cfg.APIKey = os.Getenv("TEST_API_KEY")

	dbHost := os.Getenv("TEST_DB_HOST")
	if dbHost == "" {
		return cfg, nil
	}
	cfg.Database.Host = dbHost

	dbPort, err := strconv.Atoi(getEnv("TEST_DB_PORT", "3306"))
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort
	cfg.Database.User = getEnv("TEST_DB_USER", "root")
	cfg.Database.Password = os.Getenv("TEST_DB_PASSWORD")
	cfg.Database.DBName = getEnv("TEST_DB_NAME", "captainspark_test")

	return cfg, nil
}
