package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DatabaseURL string

	// JWT (issued by the auth platform, verified here)
	JWTSecret string

	// Status engine
	StatusTTL       time.Duration
	ReportThreshold int
	FeedLimit       int

	// Expiry sweeper
	SweepInterval time.Duration
	SweepBatch    int

	// Blob storage
	BlobRoot    string
	BlobBaseURL string

	// Admin
	AdminToken string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://localloop.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		StatusTTL:       parseDuration(getEnv("STATUS_TTL", "24h"), 24*time.Hour),
		ReportThreshold: parseInt(getEnv("REPORT_THRESHOLD", "3"), 3),
		FeedLimit:       parseInt(getEnv("FEED_LIMIT", "50"), 50),

		SweepInterval: parseDuration(getEnv("SWEEP_INTERVAL", "15m"), 15*time.Minute),
		SweepBatch:    parseInt(getEnv("SWEEP_BATCH", "100"), 100),

		BlobRoot:    getEnv("BLOB_ROOT", "./data/blobs"),
		BlobBaseURL: getEnv("BLOB_BASE_URL", "http://localhost:8080/blobs"),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
