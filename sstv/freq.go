package sstv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

/*
 * Instantaneous Frequency Estimator
 *
 * Converts a PCM sample stream into a smoothed instantaneous-frequency
 * stream via an FFT-based analytic signal (Hilbert transform), phase
 * differentiation, and a one-pole IIR lowpass. Ported from the
 * numpy.fft/angle/diff pipeline in dawsonjon/PicoSSTV's decode_sstv.py.
 *
 * The analytic signal is built with gonum's radix-2 FFT, the same
 * PadRadix2 + CoefficientsRadix2 pair used for spectral work elsewhere in
 * this package's lineage — batch, whole-buffer, as the design freedom in
 * the frequency-estimator component explicitly allows.
 */

// iirAlpha, iirBeta are the one-pole smoothing weights: y[n] = alpha*y[n-1] + beta*x[n].
const (
	iirAlpha = 0.93
	iirBeta  = 0.07
)

// phaseModulus folds the forward phase difference into [0, phaseModulus)
// rather than [0, 2π). The reference takes the difference modulo π, not
// 2π, because only positive frequencies are of interest here and phase
// wraps are treated as aliasing-equivalent. For steps already in [0, π)
// (tones below Fs/2) both moduli give the same value; they differ for
// negative steps, which mod π folds to π+d where mod 2π would give 2π+d.
// This is an intentional, tested choice (see
// freq_test.go), not an oversight — kept as an unexported constant rather
// than a config toggle because the spec asks to "document and test", not
// to make it runtime-selectable.
const phaseModulus = math.Pi

// EstimateFrequencies forms the analytic signal of samples via an FFT-based
// Hilbert transform and returns one smoothed instantaneous-frequency value
// per input sample after the first, in Hz. cfg.SampleRate is Fs in Hz;
// cfg.SmoothingAlpha/Beta parameterise the one-pole IIR lowpass.
//
// Returns an error if samples is too short to form a usable analytic
// signal (fewer than two samples) — §7 error kind 5.
func EstimateFrequencies(samples []int16, cfg Config) ([]float64, error) {
	n := len(samples)
	if n < 2 {
		return nil, fmt.Errorf("sstv: input too short to form an analytic signal (%d samples)", n)
	}

	analytic := analyticSignal(samples)

	phase := make([]float64, n)
	for i, z := range analytic {
		phase[i] = math.Atan2(imag(z), real(z))
	}

	freqs := make([]float64, n-1)
	var y float64 // y[-1] = 0
	scale := cfg.SampleRate / (2 * math.Pi)
	for i := 1; i < n; i++ {
		d := math.Mod(phase[i]-phase[i-1], phaseModulus)
		if d < 0 {
			d += phaseModulus
		}
		hz := d * scale
		y = cfg.SmoothingAlpha*y + cfg.SmoothingBeta*hz
		freqs[i-1] = y
	}

	return freqs, nil
}

// analyticSignal computes the discrete analytic signal of real-valued
// samples: an FFT, one-sided spectral reconstruction (zero the negative
// frequencies, double the positive ones), and an inverse FFT. The result
// is truncated back to len(samples) even though the FFT itself operates
// on a power-of-two zero-padded buffer internally.
func analyticSignal(samples []int16) []complex128 {
	n := len(samples)

	re := make([]complex128, n)
	for i, s := range samples {
		re[i] = complex(float64(s), 0)
	}

	padded := fourier.PadRadix2(re)
	spectrum := fourier.CoefficientsRadix2(nil, padded)

	m := len(spectrum)
	half := m / 2
	for k := 1; k < half; k++ {
		spectrum[k] *= 2
	}
	for k := half + 1; k < m; k++ {
		spectrum[k] = 0
	}
	// Nyquist bin (if present, for even m) is left unscaled: it has no
	// negative-frequency counterpart to fold in.

	timeDomain := fourier.SequenceRadix2(nil, spectrum)
	scale := complex(1/float64(m), 0)
	for i := range timeDomain {
		timeDomain[i] *= scale
	}

	return timeDomain[:n]
}
