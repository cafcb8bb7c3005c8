// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Coordinator holds the timing knobs of the table coordinator. The reference
// deployment runs with the defaults below; every value can be overridden
// through the environment.
type Coordinator struct {
	// TurnDuration is the fallback length of a single turn when the engine
	// does not report a canonical duration for the room.
	TurnDuration time.Duration

	// SettleDelay is the grace period between a winner broadcast and the
	// round reset that follows it.
	SettleDelay time.Duration

	// TickInterval is the cadence of "remaining time" announcements while a
	// turn clock is armed.
	TickInterval time.Duration
}

// DefaultCoordinator returns the coordinator defaults: 30s turns, 7s
// settlement delay, 1s timer announcements.
func DefaultCoordinator() Coordinator {
	return Coordinator{
		TurnDuration: 30 * time.Second,
		SettleDelay:  7 * time.Second,
		TickInterval: time.Second,
	}
}

// Config is the full service configuration.
type Config struct {
	Addr        string
	PostgresURL string
	RedisAddr   string
	RedisDB     int

	Coordinator Coordinator
}

// Load reads configuration from the environment, filling in defaults for
// anything unset. godotenv autoload in cmd/server takes care of .env files.
func Load() Config {
	cfg := Config{
		Addr:        ":" + getEnv("PORT", "8080"),
		PostgresURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		Coordinator: DefaultCoordinator(),
	}
	if v := getEnvInt("TURN_DURATION_SEC", 0); v > 0 {
		cfg.Coordinator.TurnDuration = time.Duration(v) * time.Second
	}
	if v := getEnvInt("SETTLE_DELAY_SEC", 0); v > 0 {
		cfg.Coordinator.SettleDelay = time.Duration(v) * time.Second
	}
	return cfg
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
