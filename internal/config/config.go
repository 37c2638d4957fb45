package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "SkyrouteAPI"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultVerificationTTL = 5 * time.Minute
	defaultVerifyRateLimit = 5
	defaultTTSTimeout      = 15 * time.Second
	verifyTTLSecondsEnvVar = "VERIFICATION_TTL_SECONDS"
	verifyTTLDurEnvVar     = "VERIFICATION_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	piiKeyEnvVar           = "PII_KEY"
	piiKeyLength           = 32
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	PIIKey           []byte
	TTSURL           string
	TTSFallbackURL   string
	TTSTimeout       time.Duration
	ShutdownPeriod   time.Duration
	VerificationTTL  time.Duration
	VerifyRatePerMin int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TTSURL:           os.Getenv("TTS_URL"),
		TTSFallbackURL:   os.Getenv("TTS_FALLBACK_URL"),
		TTSTimeout:       defaultTTSTimeout,
		ShutdownPeriod:   defaultShutdownDelay,
		VerificationTTL:  defaultVerificationTTL,
		VerifyRatePerMin: defaultVerifyRateLimit,
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(verifyTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", verifyTTLSecondsEnvVar, err)
		}
		cfg.VerificationTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(verifyTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", verifyTTLDurEnvVar, err)
		}
		cfg.VerificationTTL = d
	}

	if v := os.Getenv("VERIFY_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VERIFY_RATE_PER_MIN: %w", err)
		}
		cfg.VerifyRatePerMin = n
	}

	if v := os.Getenv("TTS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TTS_TIMEOUT: %w", err)
		}
		cfg.TTSTimeout = d
	}

	key, err := loadPIIKey(cfg.AppEnv)
	if err != nil {
		return Config{}, err
	}
	cfg.PIIKey = key

	if cfg.RedisURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// IsDev reports whether the application runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// loadPIIKey decodes the hex-encoded AES key protecting stored names and
// emails. Outside development the key is mandatory.
func loadPIIKey(appEnv string) ([]byte, error) {
	raw := os.Getenv(piiKeyEnvVar)
	if raw == "" {
		switch strings.ToLower(appEnv) {
		case "dev", "development", "local":
			// Deterministic throwaway key so local runs work out of the box.
			key := make([]byte, piiKeyLength)
			copy(key, defaultAppName+"-dev-pii-key")
			return key, nil
		default:
			return nil, fmt.Errorf("%s must be set when APP_ENV=%s", piiKeyEnvVar, appEnv)
		}
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", piiKeyEnvVar, err)
	}
	if len(key) != piiKeyLength {
		return nil, fmt.Errorf("%s must decode to %d bytes (got %d)", piiKeyEnvVar, piiKeyLength, len(key))
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
