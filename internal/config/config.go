// Package config provides configuration loading and validation for the
// API server. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// External stores
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`

	// Session token signing (HMAC). Also salts anonymous fingerprints.
	SessionSecret string        `koanf:"session_secret"`
	SessionMaxAge time.Duration `koanf:"session_max_age"`

	// Identity provider token validation
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Street View (panorama collaborator)
	MapsAPIKey string `koanf:"maps_api_key"`

	// Game data directory (locations.json, election-results.json)
	DataDir string `koanf:"data_dir"`

	// Daily game-start caps per tier
	AnonDailyLimit int `koanf:"anon_daily_limit"`
	FreeDailyLimit int `koanf:"free_daily_limit"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is required")
	ErrMissingJWTSecret     = errors.New("JWT_SECRET is required")
	ErrMissingMapsAPIKey    = errors.New("MAPS_API_KEY is required")
	ErrInvalidPort          = errors.New("PORT must be a valid integer")
	ErrInvalidLimit         = errors.New("daily limits must be positive integers")
	ErrInvalidMaxAge        = errors.New("SESSION_MAX_AGE must be a valid duration")
)

// Default values for non-secret configuration.
const (
	DefaultPort           = 8080
	DefaultEnv            = "development"
	DefaultDataDir        = "data"
	DefaultAnonDailyLimit = 3
	DefaultFreeDailyLimit = 6
	DefaultSessionMaxAge  = 24 * time.Hour
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if
// valid). If a config file path is provided and the file cannot be
// loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidPort, portErr))
	}

	anonLimit, anonErr := getEnvIntOrDefault("ANON_DAILY_LIMIT", k.Int("anon_daily_limit"), DefaultAnonDailyLimit)
	if anonErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidLimit, anonErr))
	}
	freeLimit, freeErr := getEnvIntOrDefault("FREE_DAILY_LIMIT", k.Int("free_daily_limit"), DefaultFreeDailyLimit)
	if freeErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidLimit, freeErr))
	}

	maxAge, maxAgeErr := getEnvDurationOrDefault("SESSION_MAX_AGE", k.String("session_max_age"), DefaultSessionMaxAge)
	if maxAgeErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidMaxAge, maxAgeErr))
	}

	cfg := &Config{
		Port:              port,
		Env:               getEnvOrDefaultMulti([]string{"PG_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:       getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:          getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		SessionSecret:     getEnvOrKoanf("SESSION_SECRET", k, "session_secret"),
		SessionMaxAge:     maxAge,
		JWTSecret:         getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret: getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		MapsAPIKey:        getEnvOrKoanf("MAPS_API_KEY", k, "maps_api_key"),
		DataDir:           getEnvOrDefault("DATA_DIR", k.String("data_dir"), DefaultDataDir),
		AnonDailyLimit:    anonLimit,
		FreeDailyLimit:    freeLimit,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or default. Returns an error if the
// environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer", envKey)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault returns the environment variable as a
// duration if set, otherwise the koanf value, or default.
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = koanfVal
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration", envKey)
	}
	return d, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.SessionSecret == "" {
		errs = append(errs, ErrMissingSessionSecret)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.MapsAPIKey == "" {
		errs = append(errs, ErrMissingMapsAPIKey)
	}
	if c.AnonDailyLimit <= 0 || c.FreeDailyLimit <= 0 {
		errs = append(errs, ErrInvalidLimit)
	}

	// RedisURL is optional: without it the server falls back to
	// in-process counters, which is fine for a single instance.

	return errs
}

// LogSummary returns a summary of the configuration suitable for
// logging. All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":             fmt.Sprintf("%d", c.Port),
		"env":              c.Env,
		"database_url":     maskDatabaseURL(c.DatabaseURL),
		"redis_url":        maskDatabaseURL(c.RedisURL),
		"session_secret":   maskSecret(c.SessionSecret),
		"session_max_age":  c.SessionMaxAge.String(),
		"jwt_secret":       maskSecret(c.JWTSecret),
		"jwt_previous":     maskSecret(c.JWTPreviousSecret),
		"maps_api_key":     maskSecret(c.MapsAPIKey),
		"data_dir":         c.DataDir,
		"anon_daily_limit": fmt.Sprintf("%d", c.AnonDailyLimit),
		"free_daily_limit": fmt.Sprintf("%d", c.FreeDailyLimit),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters
// followed by ****. If the secret is shorter than 8 characters, it is
// fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
