package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

type Scheduler struct {
	Spec               string
	TokenRefreshSpec   string
	BatchSize          int
	PublishTimeout     time.Duration
	PublishConcurrency int
	StaleAfter         time.Duration
	QueueConcurrency   int
}

type Config struct {
	Port            string
	PostgresURI     string
	RedisURI        string
	SecretKey       string
	CookieName      string
	LogLevel        string
	FrontendURL     string
	GraphAPIVersion string
	Twitter         OAuthClient
	LinkedIn        OAuthClient
	Google          OAuthClient
	Tiktok          OAuthClient
	R2              R2
	Scheduler       Scheduler
}

func LoadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "3000"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", ""),
		SecretKey:       getEnv("SECRET_KEY", ""),
		CookieName:      getEnv("COOKIE_NAME", "crosspost_session"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		GraphAPIVersion: getEnv("GRAPH_API_VERSION", "v21.0"),
		Twitter: OAuthClient{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
		},
		LinkedIn: OAuthClient{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		},
		Google: OAuthClient{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		Tiktok: OAuthClient{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Scheduler: Scheduler{
			Spec:               getEnv("SCHEDULER_SPEC", "@every 00h01m00s"),
			TokenRefreshSpec:   getEnv("TOKEN_REFRESH_SPEC", "@every 00h10m00s"),
			BatchSize:          getEnvInt("SCHEDULER_BATCH_SIZE", 100),
			PublishTimeout:     getEnvDuration("PUBLISH_TIMEOUT", 30*time.Second),
			PublishConcurrency: getEnvInt("PUBLISH_CONCURRENCY", 10),
			StaleAfter:         getEnvDuration("STALE_PUBLISHING_AFTER", 15*time.Minute),
			QueueConcurrency:   getEnvInt("QUEUE_CONCURRENCY", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
