package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	PostgresURI    string
	RedisURI       string
	SecretKey      string
	MockPosting    bool
	XClientID      string
	XClientSecret  string
	XTokenURL      string
	XAPIBaseURL    string
	XUploadBaseURL string
	MediaDir       string

	// Scheduler worker knobs.
	SchedulerInterval      int // seconds between cycles
	MaxDueDrafts           int // modern-path batch cap per cycle
	RateLimitBuffer        int // remaining-quota safety buffer
	MinPostGapSeconds      int // process-wide minimum spacing between publishes
	MaxConsecutiveFailures int // cycle failures before the worker exits

	R2 R2
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		RedisURI:       getEnv("REDIS_URI", "127.0.0.1:6379"),
		SecretKey:      getEnv("SECRET_KEY", ""),
		MockPosting:    getEnvBool("MOCK_POSTING", true),
		XClientID:      getEnv("X_CLIENT_ID", ""),
		XClientSecret:  getEnv("X_CLIENT_SECRET", ""),
		XTokenURL:      getEnv("X_TOKEN_URL", "https://api.x.com/2/oauth2/token"),
		XAPIBaseURL:    getEnv("X_API_BASE_URL", "https://api.x.com/2"),
		XUploadBaseURL: getEnv("X_UPLOAD_BASE_URL", "https://upload.twitter.com/1.1"),
		MediaDir:       getEnv("MEDIA_DIR", "./media"),

		SchedulerInterval:      getEnvInt("SCHEDULER_INTERVAL_SECONDS", 60),
		MaxDueDrafts:           getEnvInt("MAX_DUE_DRAFTS", 5),
		RateLimitBuffer:        getEnvInt("RATE_LIMIT_BUFFER", 2),
		MinPostGapSeconds:      getEnvInt("MIN_POST_GAP_SECONDS", 30),
		MaxConsecutiveFailures: getEnvInt("MAX_CONSECUTIVE_FAILURES", 10),

		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
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
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
