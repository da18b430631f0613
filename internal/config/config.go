package config

import (
	"os"
	"strconv"
	"time"
)

// EngineConfig holds all configuration for the game engine process
type EngineConfig struct {
	Win5x   Win5xConfig
	Gateway GatewayConfig
}

// LoadEngineConfig loads all configurations for the engine process
func LoadEngineConfig() *EngineConfig {
	return &EngineConfig{
		Win5x:   *LoadWin5xConfig(),
		Gateway: *LoadGatewayConfig(),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvSeconds reads an integer number of seconds, clamped to [1, max].
// Phase durations are operator inputs measured in tens of seconds; anything
// outside the bound falls back to the default.
func getEnvSeconds(key string, fallback time.Duration, max time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			d := time.Duration(i) * time.Second
			if d > 0 && d <= max {
				return d
			}
		}
	}
	return fallback
}
