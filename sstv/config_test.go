package sstv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(c *Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative sample rate", func(c *Config) { c.SampleRate = -1 }},
		{"zero dwell", func(c *Config) { c.SyncDwell = 0 }},
		{"ema weights don't sum to one", func(c *Config) { c.SlantEMANew = 0.1 }},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil, want an error", c.name)
		}
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "sample_rate: 48000\nenable_vis_fast_path: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %v, want 48000", cfg.SampleRate)
	}
	if !cfg.EnableVISFastPath {
		t.Error("EnableVISFastPath = false, want true")
	}
	// Fields not present in the yaml keep their DefaultConfig() values.
	if cfg.SyncDwell != syncDwellConfirm {
		t.Errorf("SyncDwell = %d, want default %d", cfg.SyncDwell, syncDwellConfirm)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig(missing file) = nil error, want an error")
	}
}
