package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Security SecurityConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Email    EmailConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectAttempts   int
	ConnectBackoff    time.Duration
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	AllowedOrigins  []string
	TrustedProxies  []string // CIDR ranges allowed to set X-Forwarded-For
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
	CleanupInterval   time.Duration
	// How long login attempt rows are kept for forensics
	AttemptRetention time.Duration
}

// SecurityConfig drives the credential guard and write retries
type SecurityConfig struct {
	MaxFailedAttempts int
	LockDuration      time.Duration
	WriteRetries      int
	LoginRateLimit    int
	LoginRateWindow   time.Duration
	// Email the account owner when the guard locks the account
	NotifyOnLock bool
}

// RedisConfig enables the distributed per-account lock when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// KafkaConfig enables audit event publishing when Brokers is non-empty
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// EmailConfig enables SES lockout notifications when FromAddress is set
type EmailConfig struct {
	Region      string
	FromAddress string
}

func (c EmailConfig) Enabled() bool {
	return c.FromAddress != ""
}

type StorageConfig struct {
	Backend string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "courier"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectAttempts:   getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
			ConnectBackoff:    getEnvAsDuration("DB_CONNECT_BACKOFF", 2*time.Second),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:  parseAllowedOrigins(env),
			TrustedProxies:  getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			CleanupInterval:   getEnvAsDuration("LOGIN_ATTEMPT_CLEANUP_INTERVAL", 1*time.Hour),
			AttemptRetention:  getEnvAsDuration("LOGIN_ATTEMPT_RETENTION", 30*24*time.Hour),
		},
		Security: SecurityConfig{
			MaxFailedAttempts: getEnvAsInt("MAX_FAILED_LOGIN_ATTEMPTS", 5),
			LockDuration:      getEnvAsDuration("ACCOUNT_LOCK_DURATION", 2*time.Hour),
			WriteRetries:      getEnvAsInt("ACCOUNT_WRITE_RETRIES", 3),
			LoginRateLimit:    getEnvAsInt("LOGIN_RATE_LIMIT", 20),
			LoginRateWindow:   getEnvAsDuration("LOGIN_RATE_WINDOW", time.Minute),
			NotifyOnLock:      getEnvAsBool("NOTIFY_ON_LOCK", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", 5*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "courier.account-audit"),
		},
		Email: EmailConfig{
			Region:      getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", StoragePostgres)),
		},
	}

	switch cfg.Storage.Backend {
	case StoragePostgres:
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageMemory:
		if env == "production" {
			return nil, fmt.Errorf("STORAGE_BACKEND=memory is not allowed in production")
		}
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q (got %q)", StoragePostgres, StorageMemory, cfg.Storage.Backend)
	}

	if cfg.Security.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("MAX_FAILED_LOGIN_ATTEMPTS must be at least 1")
	}
	if cfg.Security.LockDuration <= 0 {
		return nil, fmt.Errorf("ACCOUNT_LOCK_DURATION must be positive")
	}
	if cfg.Security.WriteRetries < 1 {
		cfg.Security.WriteRetries = 1
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsList("ALLOWED_ORIGINS")
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
