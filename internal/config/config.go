package config

import (
	"os"
	"strconv"
	"time"

	"boletera/internal/cache"
	"boletera/internal/database"
	"boletera/internal/external"
)

// Config holds the application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// AdminSecret guards every forced transition and the drawing
	// finalization. No default is shipped: an empty secret disables
	// the admin routes entirely.
	AdminSecret string

	// TicketPrice is in cents and used only for display/aggregation.
	TicketPrice int64

	// HoldDuration is how long a paymentless reservation lives before
	// the sweep releases it.
	HoldDuration  time.Duration
	SweepInterval time.Duration

	UploadDir string

	Database database.Config
	Cache    cache.Config
	Gateway  external.Config
}

// Load reads the configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		AdminSecret:   os.Getenv("ADMIN_SECRET"),
		TicketPrice:   int64(getEnvInt("TICKET_PRICE", 10000)),
		HoldDuration:  time.Duration(getEnvInt("HOLD_DURATION_MIN", 10)) * time.Minute,
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 60)) * time.Second,

		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "boletera"),
			Password:           getEnv("DB_PASSWORD", "boletera123"),
			DBName:             getEnv("DB_NAME", "boletera"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Cache: cache.Config{
			Addr:     getEnv("CACHE_ADDR", ""),
			Password: os.Getenv("CACHE_PASSWORD"),
			TTL:      time.Duration(getEnvInt("CACHE_TTL_SEC", 10)) * time.Second,
		},

		Gateway: external.Config{
			BaseURL:       getEnv("GATEWAY_URL", "https://sandbox.wompi.co/v1"),
			PublicKey:     os.Getenv("GATEWAY_PUBLIC_KEY"),
			EventSecret:   os.Getenv("GATEWAY_EVENT_SECRET"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:5173"),
			Timeout:       time.Duration(getEnvInt("GATEWAY_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
