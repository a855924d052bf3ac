package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DatastoreMongo    = "mongo"
	DatastorePostgres = "postgres"
	DatastoreMemory   = "memory"

	StorageS3    = "s3"
	StorageLocal = "local"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatastoreType string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	JWTSecret string
	TokenTTL  time.Duration

	AllowedOrigins  string
	RequestTimeout  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration

	FeedPageSize     int
	FeedMaxCursorIDs int
	MessagePageSize  int
	SearchLimit      int
	Location         *time.Location

	Storage StorageConfig
}

type StorageConfig struct {
	Driver        string
	URLTTL        time.Duration
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	LocalDir      string
	PublicBaseURL string
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads the configuration from the environment. Call godotenv.Load first
// if values should come from a .env file.
func Load() (*Config, error) {
	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatastoreType:  strings.ToLower(getEnv("DATASTORE_TYPE", DatastoreMongo)),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "lets_chat"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", StorageLocal)),
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        os.Getenv("S3_REGION"),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("AWS_ACCESS_KEY"),
			SecretKey:     os.Getenv("AWS_SECRET_KEY"),
			LocalDir:      getEnv("LOCAL_STORAGE_DIR", "./uploads"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		fail("TOKEN_TTL", err)
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		fail("REQUEST_TIMEOUT", err)
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		fail("RATE_LIMIT_WINDOW", err)
	}
	if cfg.Storage.URLTTL, err = getDuration("STORAGE_URL_TTL", 15*time.Minute); err != nil {
		fail("STORAGE_URL_TTL", err)
	}
	if cfg.RateLimitMax, err = getInt("RATE_LIMIT_MAX", 100); err != nil {
		fail("RATE_LIMIT_MAX", err)
	}
	if cfg.FeedPageSize, err = getInt("FEED_PAGE_SIZE", 10); err != nil {
		fail("FEED_PAGE_SIZE", err)
	}
	if cfg.FeedMaxCursorIDs, err = getInt("FEED_MAX_CURSOR_IDS", 1000); err != nil {
		fail("FEED_MAX_CURSOR_IDS", err)
	}
	if cfg.MessagePageSize, err = getInt("MESSAGE_PAGE_SIZE", 10); err != nil {
		fail("MESSAGE_PAGE_SIZE", err)
	}
	if cfg.SearchLimit, err = getInt("SEARCH_LIMIT", 50); err != nil {
		fail("SEARCH_LIMIT", err)
	}
	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "Local")); err != nil {
		fail("TIMEZONE", err)
	}

	if cfg.JWTSecret == "" {
		fail("JWT_SECRET", fmt.Errorf("must be set"))
	}

	switch cfg.DatastoreType {
	case DatastoreMongo:
		if cfg.MongoURI == "" {
			fail("MONGODB_URI", fmt.Errorf("must be set when DATASTORE_TYPE=mongo"))
		}
	case DatastorePostgres:
		if cfg.DatabaseURL == "" {
			fail("DATABASE_URL", fmt.Errorf("must be set when DATASTORE_TYPE=postgres"))
		}
	case DatastoreMemory:
	default:
		fail("DATASTORE_TYPE", fmt.Errorf("unknown datastore %q", cfg.DatastoreType))
	}

	switch cfg.Storage.Driver {
	case StorageS3:
		if cfg.Storage.Bucket == "" || cfg.Storage.Region == "" {
			fail("S3_BUCKET/S3_REGION", fmt.Errorf("must be set when STORAGE_DRIVER=s3"))
		}
	case StorageLocal:
	default:
		fail("STORAGE_DRIVER", fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
