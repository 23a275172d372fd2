package sstv

import "log"

/*
 * Sync Detector
 *
 * Recognises 1200 Hz horizontal-sync pulses in the frequency stream and
 * reports their sample-index spacing. Ported from the sync_state
 * ("detect"/"sync_found") handling in dawsonjon/PicoSSTV's decode_sstv.py;
 * the dwell-counter shape (confirm on N consecutive below-threshold
 * samples, decrement-saturating-at-zero otherwise) is that file's, not
 * the Hough-transform slant search used elsewhere in this pack's SSTV
 * code for the same nominal responsibility.
 */

// syncState is the two-state tag from the data model: IDLE or IN_PULSE.
type syncState int

const (
	syncIdle syncState = iota
	syncInPulse
)

const (
	// syncThresholdHz discriminates sync tone (1200 Hz) from pixel tones
	// (>=1500 Hz); both are well clear of this 1300 Hz split. This is
	// the Config.SyncThresholdHz default.
	syncThresholdHz = 1300.0
	// syncDwellConfirm is the number of consecutive below-threshold
	// samples required to confirm a sync pulse; Config.SyncDwell default.
	syncDwellConfirm = 5
)

// SyncEvent reports a confirmed sync pulse and the sample interval since
// the previous confirmed one (0 for the very first confirmed sync).
type SyncEvent struct {
	SampleIndex     int
	IntervalSamples int
}

// SyncDetector implements the IDLE/IN_PULSE threshold state machine of
// the synchronisation subsystem. It is driven one frequency sample at a
// time via Step.
type SyncDetector struct {
	thresholdHz float64
	dwellTarget int

	state         syncState
	dwell         int
	prevAbove     bool
	haveSample    bool
	lastConfirmed int
	haveLast      bool
}

// NewSyncDetector returns a detector parameterised by cfg's threshold
// and dwell count, ready to consume the first frequency sample at index
// 0.
func NewSyncDetector(cfg Config) *SyncDetector {
	return &SyncDetector{
		thresholdHz: cfg.SyncThresholdHz,
		dwellTarget: cfg.SyncDwell,
		state:       syncIdle,
	}
}

// Step advances the detector by one frequency-stream sample (in Hz) at
// the given absolute sample index. It returns a confirmed SyncEvent and
// true if this sample confirmed a sync pulse.
func (d *SyncDetector) Step(index int, freqHz float64) (SyncEvent, bool) {
	above := freqHz >= d.thresholdHz

	switch d.state {
	case syncIdle:
		if d.haveSample && d.prevAbove && !above {
			d.state = syncInPulse
			d.dwell = 0
		}
	case syncInPulse:
		if !above {
			d.dwell++
		} else if d.dwell > 0 {
			d.dwell--
		}

		if d.dwell >= d.dwellTarget {
			d.state = syncIdle
			d.dwell = 0

			interval := 0
			if d.haveLast {
				interval = index - d.lastConfirmed
			}
			d.lastConfirmed = index
			d.haveLast = true

			d.prevAbove = above
			d.haveSample = true

			log.Printf("[SSTV Sync] confirmed sync at sample %d (interval %d)", index, interval)
			return SyncEvent{SampleIndex: index, IntervalSamples: interval}, true
		}
	}

	d.prevAbove = above
	d.haveSample = true
	return SyncEvent{}, false
}

// Reset returns the detector to its initial IDLE state, discarding any
// in-progress pulse and interval history. Not called by Decoder (the
// two are kept deliberately decoupled, see decoder.go); available for a
// caller that wants to restart sync search from a clean slate, e.g.
// after seeking within a file.
func (d *SyncDetector) Reset() {
	d.state = syncIdle
	d.dwell = 0
	d.prevAbove = false
	d.haveSample = false
	d.lastConfirmed = 0
	d.haveLast = false
}
