package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Auth     AuthConfig
	Services ServicesConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxLifetime     time.Duration
	QueryTimeout    time.Duration
	ConnectAttempts int
	Migrate         bool
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

// AuthConfig carries everything session issuance and the login limiter need.
// TokenLifetime is read from JWT_EXPIRATION as whole seconds.
type AuthConfig struct {
	JWTSecret      string
	TokenLifetime  time.Duration
	CookieSecure   bool
	CookieSameSite string
	CookieDomain   string
	LoginRateLimit int
	LoginWindow    time.Duration
}

type ServicesConfig struct {
	AuthURL         string
	ReservationsURL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads the process environment. A .env file in the working directory
// is loaded first when present; variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ""),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getInt("DB_MAX_CONNS", 10),
			MinConns:        getInt("DB_MIN_CONNS", 1),
			MaxLifetime:     getDuration("DB_MAX_LIFETIME", time.Hour),
			QueryTimeout:    getDuration("DB_QUERY_TIMEOUT", 3*time.Second),
			ConnectAttempts: getInt("DB_CONNECT_ATTEMPTS", 5),
			Migrate:         getBool("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			TokenLifetime:  getSeconds("JWT_EXPIRATION", 3600),
			CookieSecure:   getBool("COOKIE_SECURE", false),
			CookieSameSite: getEnv("COOKIE_SAMESITE", "lax"),
			CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
			LoginRateLimit: getInt("LOGIN_RATE_LIMIT", 10),
			LoginWindow:    getDuration("LOGIN_RATE_WINDOW", time.Minute),
		},
		Services: ServicesConfig{
			AuthURL:         getEnv("AUTH_SERVICE_URL", "http://localhost:8081"),
			ReservationsURL: getEnv("RESERVATIONS_SERVICE_URL", "http://localhost:8082"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
	}
}

// Validate reports every missing or unusable required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenLifetime <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION must be a positive number of seconds"))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("DB_QUERY_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getSeconds reads an integer number of seconds. An unparsable value yields
// zero so that Validate rejects it instead of silently using the fallback.
func getSeconds(key string, fallback int) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return time.Duration(n) * time.Second
	}
	return time.Duration(fallback) * time.Second
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
