package config

import (
	ppeService "PPEGuard/internal/api/ppe/service"
	ppePkg "PPEGuard/pkg/ppe"
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadPPEConfig reads the engine and service tunables from the environment. Unset variables keep
// their defaults; malformed ones are reported.
func LoadPPEConfig() (ppeService.Config, error) {
	cfg := ppeService.DefaultConfig()

	floats := []struct {
		env   string
		value *float64
	}{
		{"PPE_CONFIDENCE_THRESHOLD", &cfg.Engine.ConfidenceThreshold},
		{"PPE_FRAME_INTERVAL", &cfg.Engine.FrameInterval},
		{"PPE_ALERT_DELAY_SECONDS", &cfg.Engine.AlertDelaySeconds},
		{"PPE_MAX_GAP", &cfg.Engine.MaxGap},
		{"PPE_WINDOW_SIZE", &cfg.Engine.WindowSize},
		{"PPE_WINDOW_MIN_CONFIDENCE", &cfg.Engine.WindowMinConfidence},
	}
	for _, f := range floats {
		raw := os.Getenv(f.env)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ppeService.Config{}, fmt.Errorf("invalid %s: %w", f.env, err)
		}
		*f.value = v
	}

	if raw := os.Getenv("PPE_LOCALE"); raw != "" {
		cfg.Engine.Locale = ppePkg.ParseLocale(raw)
	}

	if raw := os.Getenv("PPE_INFERENCE_BATCH_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return ppeService.Config{}, fmt.Errorf("invalid PPE_INFERENCE_BATCH_SIZE: %q", raw)
		}
		cfg.BatchSize = n
	}

	durations := []struct {
		env   string
		value *time.Duration
	}{
		{"PPE_INFERENCE_BATCH_PAUSE", &cfg.BatchPause},
		{"SESSION_CACHE_TTL", &cfg.CacheTTL},
	}
	for _, d := range durations {
		raw := os.Getenv(d.env)
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return ppeService.Config{}, fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.value = v
	}

	cfg.Engine = cfg.Engine.Normalize()
	return cfg, nil
}
