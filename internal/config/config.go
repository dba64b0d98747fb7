package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
	Analyzer  AnalyzerConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

// AnalyzerConfig selects the content analyzer strategy at startup.
// Provider is "heuristic" or "openai"; openai requires an API key.
type AnalyzerConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

type CacheConfig struct {
	RecommendationTTL time.Duration
	LeaderboardTTL    time.Duration
}

type SchedulerConfig struct {
	Enabled           bool
	RecomputeSchedule string
}

type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 64),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/communiconnect.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Analyzer: AnalyzerConfig{
			Provider: getEnv("ANALYZER_PROVIDER", "heuristic"),
			APIKey:   getEnv("ANALYZER_API_KEY", ""),
			Model:    getEnv("ANALYZER_MODEL", ""),
			BaseURL:  getEnv("ANALYZER_BASE_URL", ""),
		},
		Cache: CacheConfig{
			RecommendationTTL: getEnvDuration("RECOMMENDATION_CACHE_TTL", 5*time.Minute),
			LeaderboardTTL:    getEnvDuration("LEADERBOARD_CACHE_TTL", 2*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvBool("SCHEDULER_ENABLED", true),
			RecomputeSchedule: getEnv("RECOMPUTE_SCHEDULE", "0 * * * *"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvInt("RATE_LIMIT_RPS", 10),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 20),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Analyzer.Provider {
	case "heuristic":
	case "openai":
		if c.Analyzer.APIKey == "" {
			return fmt.Errorf("analyzer provider %q requires ANALYZER_API_KEY", c.Analyzer.Provider)
		}
	default:
		return fmt.Errorf("unknown analyzer provider: %s", c.Analyzer.Provider)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("rate limit must be at least 1 req/s")
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
