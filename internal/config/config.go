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
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	AI         AIConfig
	Enrichment EnrichmentConfig
	Mail       MailConfig
	SMS        SMSConfig
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// AIConfig configures the generative classifier. An empty APIKey disables enrichment.
type AIConfig struct {
	APIKey   string
	Model    string
	Endpoint string
}

// Configured reports whether an API credential is present.
func (a AIConfig) Configured() bool {
	return a.APIKey != ""
}

// EnrichmentConfig controls the enrichment worker pool and its retry policy.
type EnrichmentConfig struct {
	Workers      int
	QueueKey     string
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Deadline     time.Duration
}

// MailConfig holds SMTP settings. An empty Host disables email delivery. Timeout bounds one
// delivery when the caller's context has no earlier deadline.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMSConfig holds the SMS gateway endpoint. An empty GatewayURL logs messages instead of sending.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Sender     string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	multiplier, err := strconv.ParseFloat(getEnv("ENRICHMENT_RETRY_MULTIPLIER", "2"), 64)
	if err != nil || multiplier < 1 {
		return nil, fmt.Errorf("invalid ENRICHMENT_RETRY_MULTIPLIER: %q", os.Getenv("ENRICHMENT_RETRY_MULTIPLIER"))
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	mailUser := os.Getenv("EMAIL_HOST_USER")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "grievance-service"),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		AI: AIConfig{
			APIKey:   os.Getenv("GEMINI_API_KEY"),
			Model:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Endpoint: os.Getenv("GEMINI_ENDPOINT"),
		},
		Enrichment: EnrichmentConfig{
			Workers:      getEnvAsInt("ENRICHMENT_WORKERS", 2),
			QueueKey:     getEnv("ENRICHMENT_QUEUE_KEY", "grievance:enrichment"),
			InitialDelay: getEnvAsDuration("ENRICHMENT_RETRY_INITIAL", time.Second),
			Multiplier:   multiplier,
			MaxDelay:     getEnvAsDuration("ENRICHMENT_RETRY_MAX", 60*time.Second),
			Deadline:     getEnvAsDuration("ENRICHMENT_RETRY_DEADLINE", 300*time.Second),
		},
		Mail: MailConfig{
			Host:     getEnv("EMAIL_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("EMAIL_PORT", 587),
			Username: mailUser,
			Password: os.Getenv("EMAIL_HOST_PASSWORD"),
			From:     getEnv("DEFAULT_FROM_EMAIL", mailUser),
			Timeout:  getEnvAsDuration("EMAIL_TIMEOUT", 20*time.Second),
		},
		SMS: SMSConfig{
			GatewayURL: os.Getenv("SMS_GATEWAY_URL"),
			APIKey:     os.Getenv("SMS_API_KEY"),
			Sender:     getEnv("SMS_SENDER", "GUNASO"),
		},
	}

	// without credentials the mailer falls back to logging, like a console backend
	if cfg.Mail.Username == "" {
		cfg.Mail.Host = ""
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

// getEnvAsDuration accepts Go duration strings ("90s") or bare seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
