// Package config loads the lookup server configuration from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names accepted in ENV.
const (
	EnvDevelopment = "dev"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	Port            string
	Address         string
	Env             string
	LogLevel        string
	LogFormat       string        // "text" or "json"
	RegistryURL     string        // NPPES API endpoint
	RegistryTimeout time.Duration // 0 disables the client timeout
	LookupPause     time.Duration // courtesy delay between registry calls
	MaxRequestBody  int64         // Maximum request body size in bytes
	MaxBatchSize    int           // Maximum unique NPIs per submitted batch, 0 = unlimited
}

// Load reads an optional .env file, then loads and validates configuration
// from environment variables.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	registryTimeout, err := getDurationEnvWithDefault("REGISTRY_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid REGISTRY_TIMEOUT: %w", err)
	}
	lookupPause, err := getDurationEnvWithDefault("LOOKUP_PAUSE", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid LOOKUP_PAUSE: %w", err)
	}

	cfg := &Config{
		Port:            getEnvWithDefault("PORT", "8000"),
		Address:         getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:             strings.ToLower(getEnvWithDefault("ENV", EnvDevelopment)),
		LogLevel:        strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnvWithDefault("LOG_FORMAT", "text")),
		RegistryURL:     getEnvWithDefault("REGISTRY_URL", "https://npiregistry.cms.hhs.gov/api/"),
		RegistryTimeout: registryTimeout,
		LookupPause:     lookupPause,
		MaxRequestBody:  getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576), // 1MB default
		MaxBatchSize:    getIntEnvWithDefault("MAX_BATCH_SIZE", 0),
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every configuration value.
func Validate(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}
	if err := validateOneOf("ENV", cfg.Env, []string{EnvDevelopment, EnvProduction, EnvTest}); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}
	if err := validateOneOf("LOG_LEVEL", cfg.LogLevel, []string{"debug", "info", "warn", "error"}); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if err := validateOneOf("LOG_FORMAT", cfg.LogFormat, []string{"text", "json"}); err != nil {
		return fmt.Errorf("invalid LOG_FORMAT: %w", err)
	}
	if err := validateRegistryURL(cfg.RegistryURL); err != nil {
		return fmt.Errorf("invalid REGISTRY_URL: %w", err)
	}
	if cfg.RegistryTimeout < 0 {
		return fmt.Errorf("invalid REGISTRY_TIMEOUT: must not be negative, got: %s", cfg.RegistryTimeout)
	}
	if cfg.LookupPause < 0 || cfg.LookupPause > 10*time.Second {
		return fmt.Errorf("invalid LOOKUP_PAUSE: must be between 0 and 10s, got: %s", cfg.LookupPause)
	}
	if cfg.MaxRequestBody <= 0 || cfg.MaxRequestBody > 100*1024*1024 {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: must be between 1 and 100MB, got: %d", cfg.MaxRequestBody)
	}
	if cfg.MaxBatchSize < 0 {
		return fmt.Errorf("invalid MAX_BATCH_SIZE: must not be negative, got: %d", cfg.MaxBatchSize)
	}
	return nil
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Address, c.Port)
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}
	if address == "localhost" {
		return nil
	}
	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	return nil
}

func validateRegistryURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}

func validateOneOf(name, value string, valid []string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of: %v, got: %s", name, valid, value)
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault parses a Go duration such as "250ms" or "30s".
func getDurationEnvWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 500ms or 30s: %w", key, err)
	}
	return d, nil
}
