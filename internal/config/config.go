package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Redis holds connection settings shared by both binaries.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Backend holds configuration of the development REST backend.
type Backend struct {
	ServerPort  string
	DBDriver    string
	MySQLDSN    string
	SQLitePath  string
	Redis       Redis
	JWTSecret   string
	TokenTTL    time.Duration
	SwaggerHost string
	ResetDB     bool
}

// Storefront holds configuration of the storefront server.
type Storefront struct {
	Port             string
	BackendURL       string
	BackendTimeout   time.Duration
	SessionStorage   string
	SessionPrefix    string
	SessionIdleTTL   time.Duration
	SessionTTL       time.Duration
	TokenValidateTTL time.Duration
	CacheStaleTime   time.Duration
	QueryRetry       int
	CookieSecure     bool
	LoginRatePerMin  int
	RabbitMQURL      string
	Redis            Redis
}

// LoadDotEnv reads .env files into the environment when present. Variables
// already set in the environment win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		_ = godotenv.Load(existing...)
	}
}

// LoadBackend builds Backend from environment with sensible defaults.
func LoadBackend() *Backend {
	return &Backend{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/carrental?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath:  getEnv("SQLITE_PATH", "carrental.db"),
		Redis:       loadRedis(),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 24*time.Hour),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		ResetDB:     getEnvBool("RESET_DB", false),
	}
}

// LoadStorefront builds Storefront from environment with sensible defaults.
func LoadStorefront() *Storefront {
	return &Storefront{
		Port:             getEnv("STOREFRONT_PORT", "3000"),
		BackendURL:       strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080/api"), "/"),
		BackendTimeout:   getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		SessionStorage:   strings.ToLower(getEnv("SESSION_STORAGE", "redis")),
		SessionPrefix:    getEnv("SESSION_PREFIX", "storefront"),
		SessionIdleTTL:   getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionTTL:       getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		TokenValidateTTL: getEnvDuration("TOKEN_VALIDATE_TTL", 5*time.Minute),
		CacheStaleTime:   getEnvDuration("CACHE_STALE_TIME", 30*time.Second),
		QueryRetry:       getEnvInt("QUERY_RETRY", 1),
		CookieSecure:     getEnvBool("COOKIE_SECURE", false),
		LoginRatePerMin:  getEnvInt("LOGIN_RATE_PER_MIN", 5),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		Redis:            loadRedis(),
	}
}

func loadRedis() Redis {
	return Redis{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
