package nav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.EnableErrorRecovery)
	assert.True(t, cfg.EnablePersistence)
	assert.Equal(t, 16*time.Millisecond, cfg.BatchWindow)
	assert.Equal(t, 10, cfg.BatchCapacity)
	assert.False(t, cfg.Synchronous)
	assert.Equal(t, 20, cfg.Loop.HistorySize)
	assert.Equal(t, 5*time.Second, cfg.Loop.BreakerTimeout)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CRAMDECK_NAV_MAX_RETRIES", "7")
	t.Setenv("CRAMDECK_NAV_RETRY_DELAY_MS", "250")
	t.Setenv("CRAMDECK_NAV_DISABLE_RECOVERY", "1")
	t.Setenv("CRAMDECK_NAV_BATCH_WINDOW_MS", "32")
	t.Setenv("CRAMDECK_NAV_BATCH_CAPACITY", "bogus")
	t.Setenv("CRAMDECK_NAV_SYNCHRONOUS", "1")
	t.Setenv("CRAMDECK_NAV_BREAKER_TIMEOUT_MS", "12000")

	cfg := ConfigFromEnv()
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.False(t, cfg.EnableErrorRecovery)
	assert.True(t, cfg.EnablePersistence, "unset variables keep their defaults")
	assert.Equal(t, 32*time.Millisecond, cfg.BatchWindow)
	assert.Equal(t, DefaultBatchCapacity, cfg.BatchCapacity, "unparseable values fall back")
	assert.True(t, cfg.Synchronous)
	assert.Equal(t, 12*time.Second, cfg.Loop.BreakerTimeout)
}
