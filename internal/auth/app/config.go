package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const envProduction = "production"

type Config struct {
	Env                  string        // Environment (dev, staging, production) (default: dev)
	AppName              string        // Optional: shown in authenticator apps and logs (default: authbase)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 3000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired token sweep interval (default: 1h)

	StoreDriver      string // sqlite or mongo (default: sqlite)
	DatabaseFile     string // Optional: path to SQLite database file (default: ./auth.db)
	MongoURI         string // Optional: mongo connection string (default: mongodb://localhost:27017)
	MongoDatabase    string // Optional: mongo database name (default: authbase)
	RedisURL         string // Optional: shares the OTP rate limiter between replicas
	AdminEmail       string // Optional: account promoted to ADMIN on creation (default: admin@example.com)
	BcryptCost       int    // Optional: bcrypt cost factor (default: 15)
	ClientURL        string // Optional: front-end base for email links (default: http://localhost:3000)
	Issuer           string // Optional: issuer claim for tokens (default: authbase)
	AccessSecret     string // Required in production
	RefreshSecret    string // Required in production
	ResetSecret      string // Required in production
	VerifySecret     string // Required in production
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	CookieTTL        time.Duration
	ResetTTL         time.Duration
	VerifyEmailTTL   time.Duration
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFrom        string
	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
	GoogleClientID   string
	GoogleSecret     string
	GoogleCallback   string
	FacebookID       string
	FacebookSecret   string
	FacebookCallback string
}

func LoadConfig() Config {
	return Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		AppName:              getEnvOrDefault("APP_NAME", "authbase"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 3000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		StoreDriver:   getEnvOrDefault("STORE_DRIVER", "sqlite"),
		DatabaseFile:  getEnvOrDefault("DATABASE_FILE", "auth.db"),
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "authbase"),
		RedisURL:      os.Getenv("REDIS_URL"),
		AdminEmail:    getEnvOrDefault("ADMIN_EMAIL", "admin@example.com"),
		BcryptCost:    getEnvIntOrDefault("BCRYPT_SALT_ROUNDS", 15),
		ClientURL:     getEnvOrDefault("CLIENT_URL", "http://localhost:3000"),

		Issuer:         getEnvOrDefault("JWT_ISSUER", "authbase"),
		AccessSecret:   os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:  os.Getenv("JWT_REFRESH_SECRET"),
		ResetSecret:    os.Getenv("JWT_RESET_PASSWORD_SECRET"),
		VerifySecret:   os.Getenv("JWT_VERIFY_EMAIL_SECRET"),
		AccessTTL:      time.Duration(getEnvIntOrDefault("JWT_ACCESS_EXPIRATION_MINUTES", 30)) * time.Minute,
		RefreshTTL:     days(getEnvIntOrDefault("JWT_REFRESH_EXPIRATION_DAYS", 30)),
		CookieTTL:      days(getEnvIntOrDefault("JWT_COOKIE_EXPIRATION_DAYS", 30)),
		ResetTTL:       time.Duration(getEnvIntOrDefault("JWT_RESET_PASSWORD_EXPIRATION_MINUTES", 10)) * time.Minute,
		VerifyEmailTTL: time.Duration(getEnvIntOrDefault("JWT_VERIFY_EMAIL_EXPIRATION_MINUTES", 10)) * time.Minute,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
		TwilioSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:   os.Getenv("TWILIO_PHONE_NUMBER"),

		GoogleClientID:   os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleSecret:     os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallback:   os.Getenv("GOOGLE_CALLBACK_URL"),
		FacebookID:       os.Getenv("FACEBOOK_CLIENT_ID"),
		FacebookSecret:   os.Getenv("FACEBOOK_CLIENT_SECRET"),
		FacebookCallback: os.Getenv("FACEBOOK_CALLBACK_URL"),
	}
}

// Production reports whether cookies must be Secure and secrets supplied.
func (c Config) Production() bool { return c.Env == envProduction }

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case "sqlite", "mongo":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be sqlite or mongo, got %q", c.StoreDriver))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_SALT_ROUNDS must be between 4 and 31, got %d", c.BcryptCost))
	}
	for name, ttl := range map[string]time.Duration{
		"JWT_ACCESS_EXPIRATION_MINUTES":         c.AccessTTL,
		"JWT_REFRESH_EXPIRATION_DAYS":           c.RefreshTTL,
		"JWT_COOKIE_EXPIRATION_DAYS":            c.CookieTTL,
		"JWT_RESET_PASSWORD_EXPIRATION_MINUTES": c.ResetTTL,
		"JWT_VERIFY_EMAIL_EXPIRATION_MINUTES":   c.VerifyEmailTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.Production() {
		for name, secret := range map[string]string{
			"JWT_ACCESS_SECRET":         c.AccessSecret,
			"JWT_REFRESH_SECRET":        c.RefreshSecret,
			"JWT_RESET_PASSWORD_SECRET": c.ResetSecret,
			"JWT_VERIFY_EMAIL_SECRET":   c.VerifySecret,
		} {
			if secret == "" {
				errs = append(errs, fmt.Errorf("%s is required in production", name))
			}
		}
	}

	return errors.Join(errs...)
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
