package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	AppEnv       string
	IsProduction bool

	Port      string
	JWTSecret string

	// DatabaseDSN is the MySQL DSN. Empty means the in-memory store,
	// which is only suitable for local development.
	DatabaseDSN string

	// Classifier service tunables.
	ClassifierURL            string
	ClassifierTimeoutSeconds int
	ClassifierConcurrency    int
	ClassifierBatchSize      int
	ClassifierBatchPauseMs   int

	// Analytics report cache.
	ReportCacheTTLSeconds int
	ReportCacheMaxItems   int

	// Ingest endpoint rate limiting.
	RateLimitWindowSeconds int
	RateLimitCapacity      int
)

func init() {
	AppEnv = os.Getenv("APP_ENV")

	// do not load .env file in production
	if AppEnv != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("[config] no .env file loaded: %v", err)
		}
		AppEnv = os.Getenv("APP_ENV")
	}
	if AppEnv == "" {
		AppEnv = "staging"
	}
	IsProduction = AppEnv == "production"

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "5000"
	}

	DatabaseDSN = os.Getenv("DATABASE_DSN")

	ClassifierURL = os.Getenv("CLASSIFIER_URL")
	if ClassifierURL == "" {
		ClassifierURL = "http://localhost:8000"
	}
	ClassifierTimeoutSeconds = atoiOr(os.Getenv("CLASSIFIER_TIMEOUT_SECONDS"), 10)
	ClassifierConcurrency = atoiOr(os.Getenv("CLASSIFIER_CONCURRENCY"), 3)
	ClassifierBatchSize = atoiOr(os.Getenv("CLASSIFIER_BATCH_SIZE"), 5)
	ClassifierBatchPauseMs = atoiOr(os.Getenv("CLASSIFIER_BATCH_PAUSE_MS"), 200)

	ReportCacheTTLSeconds = atoiOr(os.Getenv("REPORT_CACHE_TTL_SECONDS"), 60)
	ReportCacheMaxItems = atoiOr(os.Getenv("REPORT_CACHE_MAX_ITEMS"), 128)

	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 30)

	if IsProduction && JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set in production")
	}

	log.Printf("[config] AppEnv=%s IsProduction=%v", AppEnv, IsProduction)
	log.Printf("[config] ClassifierURL=%s timeout=%ds concurrency=%d batchSize=%d batchPause=%dms",
		ClassifierURL, ClassifierTimeoutSeconds, ClassifierConcurrency, ClassifierBatchSize, ClassifierBatchPauseMs)
	log.Printf("[config] DatabaseDSNPresent=%v reportCacheTTL=%ds rateLimit window=%ds capacity=%d",
		DatabaseDSN != "", ReportCacheTTLSeconds, RateLimitWindowSeconds, RateLimitCapacity)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
