package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration // read API views

	PMS   PMSConfig
	Sched ScheduleConfig
}

type PMSConfig struct {
	BaseURL      string
	APIKey       string
	RateLimit    float64 // requests per second
	Timeout      time.Duration
	Attempts     int
	RetryDelay   time.Duration
	MaxRetryWait time.Duration
	CacheTTL     time.Duration
}

type ScheduleConfig struct {
	Enabled             bool
	FullInterval        time.Duration
	IncrementalInterval time.Duration
	IncrementalLookback time.Duration
}

// Load reads the process environment, after merging an optional .env file from the working directory.
// Variables already set in the environment win over .env entries.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be loaded")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/pms?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		PMS: PMSConfig{
			BaseURL:      strings.TrimRight(env("PMS_API_BASE_URL", "https://api.pms.donatix.info/api"), "/"),
			APIKey:       env("PMS_API_KEY", ""),
			RateLimit:    atof("PMS_API_RATE_LIMIT", 2),
			Timeout:      dur("PMS_API_TIMEOUT", 30*time.Second),
			Attempts:     atoi("PMS_API_RETRY_ATTEMPTS", 3),
			RetryDelay:   time.Duration(atoi("PMS_API_RETRY_DELAY_MS", 100)) * time.Millisecond,
			MaxRetryWait: dur("PMS_API_MAX_RETRY_WAIT", 5*time.Second),
			CacheTTL:     time.Duration(atoi("PMS_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Sched: ScheduleConfig{
			Enabled:             boolean("PMS_CRON_ENABLED", true),
			FullInterval:        dur("PMS_FULL_SYNC_INTERVAL", 5*time.Minute),
			IncrementalInterval: dur("PMS_INCREMENTAL_SYNC_INTERVAL", time.Hour),
			IncrementalLookback: dur("PMS_INCREMENTAL_LOOKBACK", time.Hour),
		},
	}
	if c.PMS.APIKey == "" {
		log.Warn().Msg("PMS_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not a positive number, using default")
	}
	return def
}

// dur accepts Go durations ("90s", "5m") or a bare number of seconds.
func dur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", k).Str("value", v).Msg("not a duration, using default")
	return def
}

func boolean(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not a boolean, using default")
	}
	return def
}
