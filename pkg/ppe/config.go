package ppe

import "math"

const (
	DefaultConfidenceThreshold = 95.0
	DefaultFrameInterval       = 1.0
	DefaultAlertDelaySeconds   = 3.0
	DefaultMaxGap              = 1.5
	DefaultWindowSize          = 3.0
)

// Config holds the tunables shared by the mapper and the temporal engines.
// All durations are in seconds, matching frame timestamps.
type Config struct {
	ConfidenceThreshold float64
	FrameInterval       float64
	AlertDelaySeconds   float64
	MaxGap              float64
	WindowSize          float64
	// WindowMinConfidence filters detections before the window union. Zero keeps every detection.
	WindowMinConfidence float64
	Locale              Locale
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		FrameInterval:       DefaultFrameInterval,
		AlertDelaySeconds:   DefaultAlertDelaySeconds,
		MaxGap:              DefaultMaxGap,
		WindowSize:          DefaultWindowSize,
		Locale:              LocaleES,
	}
}

// Normalize replaces non-positive durations with their defaults.
func (c Config) Normalize() Config {
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.AlertDelaySeconds < 0 {
		c.AlertDelaySeconds = DefaultAlertDelaySeconds
	}
	if c.MaxGap <= 0 {
		c.MaxGap = DefaultMaxGap
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.ConfidenceThreshold < 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.Locale == "" {
		c.Locale = LocaleES
	}
	return c
}

// RequiredFrames is the number of consecutive alarming samples needed before an alert.
func (c Config) RequiredFrames() int {
	c = c.Normalize()
	return int(math.Ceil(c.AlertDelaySeconds / c.FrameInterval))
}
