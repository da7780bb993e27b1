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

const sandboxBaseURL = "https://sandbox.safaricom.co.ke"

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Session   SessionConfig
	Mpesa     MpesaConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (s ServerConfig) IsProduction() bool { return s.Env == "production" }

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; with no URL the callback lock and rate limiter
// stay in process.
type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level  string // trace|debug|info|warn|error
	Format string // json|console
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// MpesaConfig holds the Daraja credentials and STK push settings.
type MpesaConfig struct {
	BaseURL          string
	ConsumerKey      string
	ConsumerSecret   string
	Passkey          string
	ShortCode        string
	CallbackURL      string
	AccountReference string
	TransactionDesc  string
	RequestTimeout   time.Duration
	CacheToken       bool
	// Stub swaps Daraja for an offline gateway; ignored in production.
	Stub bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	PerMinute int
}

// Load reads configuration from the environment (and .env when present).
// Every required key is checked up front so a misconfigured process exits
// at startup instead of on the first payment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := defaultString(getenv("APP_ENV"), "development")
	cfg := &Config{
		Server: ServerConfig{
			Port:         defaultString(getenv("PORT"), "8080"),
			Env:          env,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 40 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN"),
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{URL: getenv("REDIS_URL")},
		Log: LogConfig{
			Level:  defaultString(getenv("LOG_LEVEL"), "info"),
			Format: defaultString(getenv("LOG_FORMAT"), "json"),
		},
		Session: SessionConfig{
			Secret: getenv("SESSION_SECRET"),
			TTL:    30 * time.Minute,
		},
		Mpesa: MpesaConfig{
			BaseURL:          getenv("MPESA_BASE_URL"),
			ConsumerKey:      getenv("CONSUMER_KEY"),
			ConsumerSecret:   getenv("CONSUMER_SECRET"),
			Passkey:          getenv("MPESA_PASSKEY"),
			ShortCode:        getenv("MPESA_SHORTCODE"),
			CallbackURL:      getenv("CALLBACK_URL"),
			AccountReference: defaultString(getenv("MPESA_ACCOUNT_REFERENCE"), "account"),
			TransactionDesc:  defaultString(getenv("MPESA_TRANSACTION_DESC"), "Payment for goods"),
			RequestTimeout:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{PerMinute: 60},
	}
	if cfg.Mpesa.BaseURL == "" && env != "production" {
		cfg.Mpesa.BaseURL = sandboxBaseURL
	}

	var errs []error
	if v := getenv("MPESA_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("MPESA_REQUEST_TIMEOUT: invalid duration %q", v))
		} else {
			cfg.Mpesa.RequestTimeout = d
		}
	}
	if v := getenv("MPESA_CACHE_TOKEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MPESA_CACHE_TOKEN: invalid bool %q", v))
		}
		cfg.Mpesa.CacheToken = b
	}
	if v := getenv("MPESA_STUB"); v != "" && env != "production" {
		cfg.Mpesa.Stub, _ = strconv.ParseBool(v)
	}
	if v := getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE: invalid value %q", v))
		} else {
			cfg.RateLimit.PerMinute = n
		}
	}
	for _, origin := range strings.Split(getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
		}
	}

	required := []struct {
		key, value string
	}{
		{"CONSUMER_KEY", cfg.Mpesa.ConsumerKey},
		{"CONSUMER_SECRET", cfg.Mpesa.ConsumerSecret},
		{"MPESA_PASSKEY", cfg.Mpesa.Passkey},
		{"MPESA_SHORTCODE", cfg.Mpesa.ShortCode},
		{"CALLBACK_URL", cfg.Mpesa.CallbackURL},
		{"MPESA_BASE_URL", cfg.Mpesa.BaseURL},
		{"DATABASE_DSN", cfg.Database.DSN},
		{"SESSION_SECRET", cfg.Session.Secret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
