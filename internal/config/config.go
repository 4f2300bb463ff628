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
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Logger    LoggerConfig
	Gate      GateConfig
	SLA       SLAConfig
	Scheduler SchedulerConfig
	Rules     RulesConfig
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

// NATSConfig holds the optional JetStream notifier settings.
type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
	Stream  string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// GateConfig tunes the submission spam gate.
type GateConfig struct {
	RateMaxRequests     int
	RateWindowMinutes   int
	RateSweepMinutes    int
	RateIdleTTLHours    int
	ScoreFlagThreshold  int
	ScoreQuarantineMin  int
	ScoreBlockThreshold int
}

// SLAConfig tunes deadline evaluation.
type SLAConfig struct {
	NearBreachHours int
}

// SchedulerConfig tunes the escalation sweep cadence.
type SchedulerConfig struct {
	IntervalSeconds        int
	ReescalateAfterMinutes int
}

// RulesConfig locates the workflow rule and spam pattern file.
type RulesConfig struct {
	Path string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-routing"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		NATS: NATSConfig{
			Enabled: getEnvAsBool("NATS_NOTIFY_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			Subject: getEnv("NATS_NOTIFY_SUBJECT", "ticket.notifications"),
			Stream:  getEnv("NATS_NOTIFY_STREAM", "TICKET_NOTIFICATIONS"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gate: GateConfig{
			RateMaxRequests:     getEnvAsInt("GATE_RATE_MAX_REQUESTS", 5),
			RateWindowMinutes:   getEnvAsInt("GATE_RATE_WINDOW_MINUTES", 60),
			RateSweepMinutes:    getEnvAsInt("GATE_RATE_SWEEP_MINUTES", 60),
			RateIdleTTLHours:    getEnvAsInt("GATE_RATE_IDLE_TTL_HOURS", 24),
			ScoreFlagThreshold:  getEnvAsInt("GATE_SCORE_FLAG_THRESHOLD", 3),
			ScoreQuarantineMin:  getEnvAsInt("GATE_SCORE_QUARANTINE_THRESHOLD", 6),
			ScoreBlockThreshold: getEnvAsInt("GATE_SCORE_BLOCK_THRESHOLD", 10),
		},
		SLA: SLAConfig{
			NearBreachHours: getEnvAsInt("SLA_NEAR_BREACH_HOURS", 2),
		},
		Scheduler: SchedulerConfig{
			IntervalSeconds:        getEnvAsInt("ESCALATION_INTERVAL_SECONDS", 60),
			ReescalateAfterMinutes: getEnvAsInt("ESCALATION_REESCALATE_AFTER_MINUTES", 60),
		},
		Rules: RulesConfig{
			Path: getEnv("RULES_FILE", "config/rules.toml"),
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

// RateWindow returns the sliding window duration.
func (g GateConfig) RateWindow() time.Duration {
	return time.Duration(g.RateWindowMinutes) * time.Minute
}

// RateSweepInterval returns the cadence of the idle-entry sweep.
func (g GateConfig) RateSweepInterval() time.Duration {
	return time.Duration(g.RateSweepMinutes) * time.Minute
}

// RateIdleTTL returns how long an idle entry survives before the sweep drops it.
func (g GateConfig) RateIdleTTL() time.Duration {
	return time.Duration(g.RateIdleTTLHours) * time.Hour
}

// NearBreachWindow returns the breach lookahead duration.
func (s SLAConfig) NearBreachWindow() time.Duration {
	return time.Duration(s.NearBreachHours) * time.Hour
}

// Interval returns the sweep cadence.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// ReescalateAfter returns the minimum interval between escalations of one ticket.
func (s SchedulerConfig) ReescalateAfter() time.Duration {
	return time.Duration(s.ReescalateAfterMinutes) * time.Minute
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
