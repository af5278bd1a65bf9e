package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/hub"
	"github.com/Owskar/collaborative-code-editor/internal/infra/setup"
	redisstate "github.com/Owskar/collaborative-code-editor/internal/infra/state/redis"
)

// Config holds settings loaded from the environment or a .env file.
type Config struct {
	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	KeyPrefix     string

	JWTSecret      string
	JWTExpiryHours int

	ServerPort        string
	LogLevel          string
	AppEnv            string
	CORSAllowedOrigin string
	RateLimitMax      int
	RateLimitWindow   time.Duration

	WSMaxMessageBytes int64
	WorkerConcurrency int
}

// LoadConfig reads the configuration. A missing .env file is not an error.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:          getenv("DB_DRIVER", setup.DriverMySQL),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         getenv("REDIS_KEY_PREFIX", redisstate.DefaultKeyPrefix),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServerPort:        getenv("SERVER_PORT", "8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		AppEnv:            getenv("APP_ENV", "development"),
		CORSAllowedOrigin: getenv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	var err error
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisPoolSize, err = getenvInt("REDIS_POOL_SIZE", 200); err != nil {
		return nil, err
	}
	if cfg.JWTExpiryHours, err = getenvInt("JWT_EXPIRY_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = getenvInt("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = getenvInt("WORKER_CONCURRENCY", 10); err != nil {
		return nil, err
	}
	maxBytes, err := getenvInt("WS_MAX_MESSAGE_BYTES", int(hub.DefaultMaxMessageSize))
	if err != nil {
		return nil, err
	}
	cfg.WSMaxMessageBytes = int64(maxBytes)
	if cfg.RateLimitWindow, err = time.ParseDuration(getenv("RATE_LIMIT_WINDOW", "1s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	if cfg.DBPort == "" {
		if cfg.DBDriver == setup.DriverPostgres {
			cfg.DBPort = "5432"
		} else {
			cfg.DBPort = "3306"
		}
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.DBDriver != setup.DriverMySQL && cfg.DBDriver != setup.DriverPostgres {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// AllowedOrigins splits CORSAllowedOrigin on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
