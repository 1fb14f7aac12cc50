package config

import (
	ppePkg "PPEGuard/pkg/ppe"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPPEConfigDefaults(t *testing.T) {
	cfg, err := LoadPPEConfig()
	require.NoError(t, err)

	assert.Equal(t, ppePkg.DefaultConfidenceThreshold, cfg.Engine.ConfidenceThreshold)
	assert.Equal(t, 3, cfg.Engine.RequiredFrames())
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.BatchPause)
}

func TestLoadPPEConfigFromEnv(t *testing.T) {
	t.Setenv("PPE_CONFIDENCE_THRESHOLD", "80")
	t.Setenv("PPE_FRAME_INTERVAL", "0.5")
	t.Setenv("PPE_ALERT_DELAY_SECONDS", "2")
	t.Setenv("PPE_LOCALE", "EN")
	t.Setenv("PPE_INFERENCE_BATCH_SIZE", "8")
	t.Setenv("SESSION_CACHE_TTL", "90m")

	cfg, err := LoadPPEConfig()
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Engine.ConfidenceThreshold)
	assert.Equal(t, 4, cfg.Engine.RequiredFrames())
	assert.Equal(t, ppePkg.LocaleEN, cfg.Engine.Locale)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
}

func TestLoadPPEConfigRejectsMalformed(t *testing.T) {
	t.Setenv("PPE_MAX_GAP", "long")
	_, err := LoadPPEConfig()
	assert.ErrorContains(t, err, "PPE_MAX_GAP")

	t.Setenv("PPE_MAX_GAP", "")
	t.Setenv("PPE_INFERENCE_BATCH_SIZE", "0")
	_, err = LoadPPEConfig()
	assert.ErrorContains(t, err, "PPE_INFERENCE_BATCH_SIZE")
}

func TestNewValidatorUsesJSONNames(t *testing.T) {
	type request struct {
		FrameCount int `json:"frame_count" validate:"min=1"`
	}

	err := NewValidator().Struct(request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame_count")
}
