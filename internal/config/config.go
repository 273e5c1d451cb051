package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBUrl           string
	JWTSecret       string
	BlobStoreURL    string
	BlobStoreBucket string
	BlobStoreKey    string
	RedisURL        string
	WSConnectLimit  int
	WSConnectWindow time.Duration
	AppEnv          string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBUrl:           getEnv("DB_URL", ""),
		JWTSecret:       jwtSecret,
		BlobStoreURL:    getEnv("BLOB_STORE_URL", ""),
		BlobStoreBucket: getEnv("BLOB_STORE_BUCKET", ""),
		BlobStoreKey:    getEnv("BLOB_STORE_KEY", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		WSConnectLimit:  getEnvInt("WS_CONNECT_LIMIT", 30),
		WSConnectWindow: time.Duration(getEnvInt("WS_CONNECT_WINDOW_SECONDS", 60)) * time.Second,
		AppEnv:          normalizeEnv(getEnv("APP_ENV", "production")),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
