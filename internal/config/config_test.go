// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.Coordinator.TurnDuration)
	assert.Equal(t, 7*time.Second, cfg.Coordinator.SettleDelay)
	assert.Equal(t, time.Second, cfg.Coordinator.TickInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TURN_DURATION_SEC", "45")
	t.Setenv("SETTLE_DELAY_SEC", "3")
	t.Setenv("REDIS_DB", "junk")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 45*time.Second, cfg.Coordinator.TurnDuration)
	assert.Equal(t, 3*time.Second, cfg.Coordinator.SettleDelay)
	assert.Zero(t, cfg.RedisDB, "unparsable values fall back to the default")
}
