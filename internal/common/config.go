package common

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Upstream UpstreamConfig
	Server   ServerConfig
	OTP      OTPConfig
	Log      LogConfig
	Client   ClientConfig
}

// UpstreamConfig describes the external zpu API
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ServerConfig holds gateway listener configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCHealthAddr  string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// OTPConfig limits how often OTP emails may be triggered per address
type OTPConfig struct {
	PerMinute int
	Burst     int
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string
	Format string
}

// ClientConfig drives the CLI / SDK side
type ClientConfig struct {
	GatewayURL    string
	RetryAttempts int
	RetryDelay    time.Duration
	MockMode      bool
	SessionDSN    string
	SessionDir    string
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present; real env vars win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(getEnv("ZPU_API_BASE_URL", "https://api.zeropaperuser.com/zpu"), "/"),
			Timeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 20*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCHealthAddr:  getEnv("GRPC_HEALTH_ADDR", ""),
			CORSOrigins:     getEnvAsList("CORS_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OTP: OTPConfig{
			PerMinute: getEnvAsInt("OTP_RATE_PER_MIN", 3),
			Burst:     getEnvAsInt("OTP_BURST", 2),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Client: ClientConfig{
			GatewayURL:    strings.TrimRight(getEnv("ZPU_GATEWAY_URL", "http://localhost:8080"), "/"),
			RetryAttempts: getEnvAsInt("ZPU_RETRY_ATTEMPTS", 2),
			RetryDelay:    getEnvAsDuration("ZPU_RETRY_DELAY", time.Second),
			MockMode:      getEnvAsBool("ZPU_MOCK_MODE", false),
			SessionDSN:    getEnv("ZPU_SESSION_DSN", ""),
			SessionDir:    getEnv("ZPU_SESSION_DIR", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	var errs []error
	if c.Upstream.BaseURL == "" {
		errs = append(errs, NewAppError("CONFIG_ERROR", "ZPU_API_BASE_URL is required", ErrInvalidInput))
	}
	if c.Server.HTTPAddr == "" {
		errs = append(errs, NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput))
	}
	if c.OTP.PerMinute <= 0 || c.OTP.Burst <= 0 {
		errs = append(errs, NewAppError("CONFIG_ERROR", "OTP_RATE_PER_MIN and OTP_BURST must be positive", ErrInvalidInput))
	}
	if c.Client.RetryAttempts < 1 {
		errs = append(errs, NewAppError("CONFIG_ERROR", "ZPU_RETRY_ATTEMPTS must be at least 1", ErrInvalidInput))
	}
	return errors.Join(errs...)
}
