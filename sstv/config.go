package sstv

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/*
 * Decoder Configuration
 *
 * yaml-tagged config struct, following the field-tagging convention of
 * this pack's own decoder configuration types. None of these fields
 * change the algorithm in component-design — they parameterise the
 * constants it already names, with the spec's own values as defaults.
 */

// Config holds every tunable named across the component-design and
// design-notes sections. Zero-value Config is meaningless; use
// DefaultConfig().
type Config struct {
	SampleRate float64 `yaml:"sample_rate"`

	SyncThresholdHz float64 `yaml:"sync_threshold_hz"`
	SyncDwell       int     `yaml:"sync_dwell"`

	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	SmoothingBeta  float64 `yaml:"smoothing_beta"`

	ConfirmTolerance float64 `yaml:"confirm_tolerance"`
	SlantEMAOld      float64 `yaml:"slant_ema_old"`
	SlantEMANew      float64 `yaml:"slant_ema_new"`
	DecodeTimeout    int     `yaml:"decode_timeout_samples"`

	// EnableVISFastPath turns on the optional VIS leader fast-path
	// (vis.go). Off by default: line-interval matching alone is
	// sufficient per the design notes' "no VIS decoding" resolution.
	EnableVISFastPath bool `yaml:"enable_vis_fast_path"`
}

// DefaultConfig returns the spec's own constants as a Config: Fs =
// 15000 Hz, 1300 Hz sync threshold, 5-sample dwell, 0.93/0.07 IIR
// weights, ±1% confirm tolerance, 0.7/0.3 slant EMA weights, 10000
// sample timeout, VIS fast-path disabled.
func DefaultConfig() Config {
	return Config{
		SampleRate:        15000,
		SyncThresholdHz:   syncThresholdHz,
		SyncDwell:         syncDwellConfirm,
		SmoothingAlpha:    iirAlpha,
		SmoothingBeta:     iirBeta,
		ConfirmTolerance:  confirmTolerance,
		SlantEMAOld:       slantEMAOld,
		SlantEMANew:       slantEMANew,
		DecodeTimeout:     decodeTimeoutSamples,
		EnableVISFastPath: false,
	}
}

// LoadConfig reads a yaml config file, overlaying it on DefaultConfig so
// an operator only needs to specify the fields they want to change.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("sstv: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("sstv: parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports whether cfg's values are usable: positive sample
// rate, a dwell count of at least 1, and EMA weights that sum to 1.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sstv: sample_rate must be positive, got %v", c.SampleRate)
	}
	if c.SyncDwell < 1 {
		return fmt.Errorf("sstv: sync_dwell must be at least 1, got %d", c.SyncDwell)
	}
	const epsilon = 1e-9
	if d := c.SlantEMAOld + c.SlantEMANew - 1.0; d > epsilon || d < -epsilon {
		return fmt.Errorf("sstv: slant_ema_old + slant_ema_new must equal 1, got %v", c.SlantEMAOld+c.SlantEMANew)
	}
	return nil
}
