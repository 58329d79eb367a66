package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Routing      RoutingConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token validation parameters. Tokens are issued by the
// identity collaborator; this service only validates the tier claim.
type AuthConfig struct {
	JWTSecret string
}

// RoutingConfig holds the allocation engine constants.
type RoutingConfig struct {
	HighValueBudgetThresholdCents int64
	ExclusivityWindowHours        int
	AuctionDurationHours          int
	MinInternationalAmountCents   int64
	MinParticipationTier          int
	EliteTier                     int
	AdminTier                     int
	SweepIntervalSeconds          int
	BoardCacheTTLSeconds          int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "case-routing-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Routing: RoutingConfig{
			HighValueBudgetThresholdCents: getEnvAsInt64("ROUTING_HIGH_VALUE_BUDGET_THRESHOLD_CENTS", 1_000_000),
			ExclusivityWindowHours:        getEnvAsInt("ROUTING_EXCLUSIVITY_WINDOW_HOURS", 24),
			AuctionDurationHours:          getEnvAsInt("ROUTING_AUCTION_DURATION_HOURS", 72),
			MinInternationalAmountCents:   getEnvAsInt64("ROUTING_MIN_INTERNATIONAL_AMOUNT_CENTS", 500_000),
			MinParticipationTier:          getEnvAsInt("ROUTING_MIN_PARTICIPATION_TIER", 1),
			EliteTier:                     getEnvAsInt("ROUTING_ELITE_TIER", 3),
			AdminTier:                     getEnvAsInt("ROUTING_ADMIN_TIER", 3),
			SweepIntervalSeconds:          getEnvAsInt("ROUTING_AUCTION_SWEEP_INTERVAL_SECONDS", 60),
			BoardCacheTTLSeconds:          getEnvAsInt("ROUTING_BOARD_CACHE_TTL_SECONDS", 30),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ExclusivityWindow returns the elite-only window applied to high-value cases.
func (r RoutingConfig) ExclusivityWindow() time.Duration {
	return time.Duration(r.ExclusivityWindowHours) * time.Hour
}

// AuctionDuration returns the open-bidding window length.
func (r RoutingConfig) AuctionDuration() time.Duration {
	return time.Duration(r.AuctionDurationHours) * time.Hour
}

// SweepInterval returns the auction sweeper period.
func (r RoutingConfig) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalSeconds) * time.Second
}

// BoardCacheTTL returns the open-case board cache lifetime.
func (r RoutingConfig) BoardCacheTTL() time.Duration {
	return time.Duration(r.BoardCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
