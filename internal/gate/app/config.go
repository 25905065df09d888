package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AuthorizePath       string        // Protected authorization endpoint prefix (default: /profile/oidc/authorize)
	LoginPath           string        // Login endpoint advertised on login_required (default: /login)
	DatabaseFile        string        // Optional: path to SQLite database file (default: ./gate.db)
	RegistryFile        string        // Optional: YAML client/user registry applied at startup
	RedisURL            string        // Optional: when set, sessions are kept in redis
	SessionTTL          time.Duration // Browser session record lifetime (default: 8h)
	IdpSessionLifetime  time.Duration // How long an authentication stays valid (default: 12h)
	CookieName          string        // Session cookie name (default: gate_session)
	CookieSecret        string        // Optional: HS256 key for the session cookie
	CookieSecretFile    string        // Used when CookieSecret is empty (default: ./cookie.key)
	CookieSecure        bool          // Secure cookie attribute (default: true)
	PepperFile          string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	HousekeepingInterval time.Duration // Expired session purge interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		AuthorizePath:        getEnvOrDefault("GATE_AUTHORIZE_PATH", "/profile/oidc/authorize"),
		LoginPath:            getEnvOrDefault("GATE_LOGIN_PATH", "/login"),
		DatabaseFile:         getEnvOrDefault("GATE_DATABASE_FILE", "gate.db"),
		RegistryFile:         os.Getenv("GATE_REGISTRY_FILE"),
		RedisURL:             os.Getenv("GATE_REDIS_URL"),
		SessionTTL:           getEnvDurationOrDefault("GATE_SESSION_TTL", 8*time.Hour),
		IdpSessionLifetime:   getEnvDurationOrDefault("GATE_IDP_SESSION_LIFETIME", 12*time.Hour),
		CookieName:           getEnvOrDefault("GATE_COOKIE_NAME", "gate_session"),
		CookieSecret:         os.Getenv("GATE_COOKIE_SECRET"),
		CookieSecretFile:     getEnvOrDefault("GATE_COOKIE_SECRET_FILE", "cookie.key"),
		CookieSecure:         getEnvBoolOrDefault("GATE_COOKIE_SECURE", true),
		PepperFile:           getEnvOrDefault("GATE_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
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

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
