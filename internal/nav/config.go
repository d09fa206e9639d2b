package nav

import (
	"os"
	"strconv"
	"time"

	"github.com/cramdeck/cramdeck/internal/loopguard"
)

// Config holds all navigation manager configuration.
type Config struct {
	// MaxRetries is the total number of history-mutation attempts per
	// navigation call. Default: 3.
	MaxRetries int

	// RetryDelay is the linear backoff base; the wait before attempt n+1
	// is RetryDelay * n. Default: 100ms.
	RetryDelay time.Duration

	// EnableErrorRecovery enables the retry loop for transient navigation
	// failures. Validation failures never retry. Default: true.
	EnableErrorRecovery bool

	// EnablePersistence enables snapshot writes after successful
	// transitions. Persistence failures are logged and swallowed;
	// they never change a navigation outcome. Default: true.
	EnablePersistence bool

	// BatchWindow is the coalescing delay for normal and low priority
	// patches. Default: 16ms.
	BatchWindow time.Duration

	// BatchCapacity forces an immediate flush once this many patches are
	// pending. Default: 10.
	BatchCapacity int

	// Synchronous makes every patch apply immediately, bypassing the
	// batch window. Set explicitly by test harnesses; never inferred.
	Synchronous bool

	// Loop configures the loop detector and circuit breaker.
	Loop loopguard.Config
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          3,
		RetryDelay:          100 * time.Millisecond,
		EnableErrorRecovery: true,
		EnablePersistence:   true,
		BatchWindow:         DefaultBatchWindow,
		BatchCapacity:       DefaultBatchCapacity,
		Loop:                loopguard.DefaultConfig(),
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset or unparseable values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v, ok := envInt("CRAMDECK_NAV_MAX_RETRIES"); ok {
		cfg.MaxRetries = v
	}
	if v, ok := envMillis("CRAMDECK_NAV_RETRY_DELAY_MS"); ok {
		cfg.RetryDelay = v
	}
	if os.Getenv("CRAMDECK_NAV_DISABLE_RECOVERY") == "1" {
		cfg.EnableErrorRecovery = false
	}
	if os.Getenv("CRAMDECK_NAV_DISABLE_PERSISTENCE") == "1" {
		cfg.EnablePersistence = false
	}
	if v, ok := envMillis("CRAMDECK_NAV_BATCH_WINDOW_MS"); ok {
		cfg.BatchWindow = v
	}
	if v, ok := envInt("CRAMDECK_NAV_BATCH_CAPACITY"); ok {
		cfg.BatchCapacity = v
	}
	if os.Getenv("CRAMDECK_NAV_SYNCHRONOUS") == "1" {
		cfg.Synchronous = true
	}
	if v, ok := envInt("CRAMDECK_NAV_HISTORY_SIZE"); ok {
		cfg.Loop.HistorySize = v
	}
	if v, ok := envMillis("CRAMDECK_NAV_BREAKER_TIMEOUT_MS"); ok {
		cfg.Loop.BreakerTimeout = v
	}

	return cfg
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func envMillis(name string) (time.Duration, bool) {
	v, ok := envInt(name)
	if !ok {
		return 0, false
	}
	return time.Duration(v) * time.Millisecond, true
}
