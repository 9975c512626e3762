// Package config loads backend settings from the environment, with optional
// .env file support for development.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the backend. Command-line flags take
// precedence over the environment; the environment takes precedence over the
// built-in defaults.
type Config struct {
	Port     int
	LogLevel string

	Engine      string // playback backend: "beep" or "mpd"
	MPDHost     string
	MPDPort     int
	MPDPassword string

	DBPath string

	MaxExternalClients int
}

// Load reads the environment (and a .env file, if present) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsIntWithDefault("PORT", 3000),
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		Engine:      getEnvWithDefault("PLAYBACK_ENGINE", "beep"),
		MPDHost:     getEnvWithDefault("MPD_HOST", "localhost"),
		MPDPort:     getEnvAsIntWithDefault("MPD_PORT", 6600),
		MPDPassword: os.Getenv("MPD_PASSWORD"),

		DBPath: getEnvWithDefault("DB_PATH", "data/library.db"),

		MaxExternalClients: getEnvAsIntWithDefault("MAX_EXTERNAL_CLIENTS", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for impossible values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("PORT must be between 1 and 65535")
	}

	if c.Engine != "beep" && c.Engine != "mpd" {
		return errors.New("PLAYBACK_ENGINE must be \"beep\" or \"mpd\"")
	}

	if c.MaxExternalClients < 1 {
		return errors.New("MAX_EXTERNAL_CLIENTS must be at least 1")
	}

	return nil
}

func getEnvAsIntWithDefault(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
