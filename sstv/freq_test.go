package sstv

import (
	"math"
	"testing"
)

func TestEstimateFrequenciesPureTone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 15000
	const toneHz = 1900.0

	n := 4000
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*toneHz*float64(i)/cfg.SampleRate))
	}

	freqs, err := EstimateFrequencies(samples, cfg)
	if err != nil {
		t.Fatalf("EstimateFrequencies: %v", err)
	}
	if len(freqs) != n-1 {
		t.Fatalf("len(freqs) = %d, want %d", len(freqs), n-1)
	}

	// Skip the IIR's settling transient and check the steady-state estimate.
	tail := freqs[len(freqs)-200:]
	var sum float64
	for _, f := range tail {
		sum += f
	}
	mean := sum / float64(len(tail))

	if math.Abs(mean-toneHz) > 50 {
		t.Errorf("mean steady-state frequency = %.1f Hz, want close to %.1f Hz", mean, toneHz)
	}
}

func TestEstimateFrequenciesRejectsShortInput(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := EstimateFrequencies([]int16{1}, cfg); err == nil {
		t.Error("EstimateFrequencies([]int16{1}) = nil error, want an error for a 1-sample input")
	}
	if _, err := EstimateFrequencies(nil, cfg); err == nil {
		t.Error("EstimateFrequencies(nil) = nil error, want an error")
	}
}

// TestPhaseModulusIsPi pins the deliberate modulo-π phase-difference
// choice: the modulus is π, and a phase step just under π is left
// unchanged by the fold.
func TestPhaseModulusIsPi(t *testing.T) {
	if phaseModulus != math.Pi {
		t.Fatalf("phaseModulus = %v, want math.Pi", phaseModulus)
	}

	// A forward phase difference of 3.0 rad (between π/2 and π) is already
	// within [0, π) and should fold to itself.
	d := math.Mod(3.0, phaseModulus)
	if d < 0 {
		d += phaseModulus
	}
	if math.Abs(d-3.0) > 1e-9 {
		t.Errorf("mod-pi fold of 3.0 = %v, want 3.0 (already within [0, pi))", d)
	}
}
