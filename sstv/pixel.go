package sstv

import "math"

/*
 * Pixel Sampler (sample_to_pixel)
 *
 * Maps a running sample counter onto (x, y, channel) coordinates for the
 * active mode's family. Ported directly from the four family branches of
 * sample_to_pixel() in dawsonjon/PicoSSTV's decode_sstv.py, restructured
 * around the Family tag (catalogue.go) instead of string-prefix checks.
 *
 * channel == 3 means "no commit" throughout.
 */

const noCommit = 3

// floorDiv computes floor(s/div) as an int plus the remainder s -
// floor(s/div)*div, matching Python's // semantics (floors toward
// negative infinity) rather than Go's truncating integer division. This
// matters at the start of each image, where a family's frame-origin
// shift can briefly make s negative.
func floorDiv(s, div float64) (q int, rem float64) {
	f := math.Floor(s / div)
	return int(f), s - f*div
}

// sampleToPixel implements §4.5 for the given mode. s is the current
// image_sample_counter value; lineSamples is the tracked
// mean_line_samples (not the mode's static nominal value), matching the
// reference's use of the EMA-adjusted line length for geometry.
func sampleToPixel(s float64, m *Mode, lineSamples float64) (x, y, channel int) {
	switch m.Family {
	case FamilyMartin:
		return martinPixel(s, m, lineSamples)
	case FamilyScottie:
		return scottiePixel(s, m, lineSamples)
	case FamilyPD:
		return pdPixel(s, m, lineSamples)
	case FamilySC2:
		return sc2Pixel(s, m, lineSamples)
	default:
		return 0, 0, noCommit
	}
}

// martinColourOrder maps the wire order G-B-R (plus a discarded gap slot)
// to RGB channel indices.
var martinColourOrder = [4]int{1, 2, 0, noCommit}

func martinPixel(s float64, m *Mode, lineSamples float64) (x, y, channel int) {
	y, s = floorDiv(s, lineSamples)
	c, s := floorDiv(s, m.ColourLineSamples)
	if c < 0 || c > 3 {
		return 0, y, noCommit
	}
	channel = martinColourOrder[c]
	x, _ = floorDiv(s, m.PixelSamples)
	return x, y, channel
}

func scottiePixel(s float64, m *Mode, lineSamples float64) (x, y, channel int) {
	s -= m.ColourLineSamples
	s -= m.HsyncSamples
	if s < 0 {
		return 0, 0, noCommit
	}

	y, s = floorDiv(s, lineSamples)

	var c int
	if s < 2*m.ColourLineSamples {
		c, s = floorDiv(s, m.ColourLineSamples)
	} else {
		s -= 2 * m.ColourLineSamples
		s -= m.HsyncSamples
		if s < 0 {
			return 0, 0, noCommit
		}
		var cOffset int
		cOffset, s = floorDiv(s, m.ColourLineSamples)
		c = 2 + cOffset
	}

	if s < 0 || c < 0 || c > 3 {
		return 0, 0, noCommit
	}
	channel = martinColourOrder[c] // scottie wire order is also G-B-R
	x, _ = floorDiv(s, m.PixelSamples)
	return x, y, channel
}

// pdColourOrder maps the four PD slots (Y1, Cr, Cb, Y2) to channel
// indices. The reference discards slot 3 (maps it to the sentinel); this
// decoder instead routes slot 3 to row y+1, channel 0, per the resolved
// open question in SPEC_FULL.md §9 — handled by the caller (decoder.go),
// which inspects slot position directly rather than trusting channel
// alone, since channel 0 is ambiguous between slot 0 and slot 3.
var pdColourOrder = [4]int{0, 1, 2, 0}

func pdPixel(s float64, m *Mode, lineSamples float64) (x, y, channel int) {
	s -= m.HsyncSamples
	if s < 0 {
		return 0, 0, noCommit
	}
	y, s = floorDiv(s, lineSamples)
	c, s := floorDiv(s, m.ColourLineSamples)
	if c < 0 || c > 3 {
		return 0, y, noCommit
	}
	channel = pdColourOrder[c]
	x, _ = floorDiv(s, m.PixelSamples)
	return x, y, channel
}

func sc2Pixel(s float64, m *Mode, lineSamples float64) (x, y, channel int) {
	y, s = floorDiv(s, lineSamples)

	switch {
	case s < m.ColourLineSamples:
		channel = 0
		x, _ = floorDiv(s, m.PixelSamples)
	case s < 3*m.ColourLineSamples:
		channel = 1
		s -= m.ColourLineSamples
		x, _ = floorDiv(s, 2*m.PixelSamples)
	case s < 4*m.ColourLineSamples:
		channel = 2
		s -= 3 * m.ColourLineSamples
		x, _ = floorDiv(s, m.PixelSamples)
	default:
		return 0, y, noCommit
	}

	if s < 0 {
		return 0, y, noCommit
	}
	return x, y, channel
}

// pdSlotIndex reports which of the four PD colour slots s falls in
// (0..3), or -1 if s is in the hsync/out-of-range region. Used by
// decoder.go to detect slot 3 (the "next row" luminance sample) without
// losing that information to pdColourOrder's channel-0 aliasing.
func pdSlotIndex(s float64, m *Mode, lineSamples float64) int {
	s -= m.HsyncSamples
	if s < 0 {
		return -1
	}
	_, s = floorDiv(s, lineSamples)
	c, _ := floorDiv(s, m.ColourLineSamples)
	if c < 0 || c > 3 {
		return -1
	}
	return c
}
