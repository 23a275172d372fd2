package sstv

import "fmt"

/*
 * Mode Catalogue
 *
 * Mode descriptors and line-length matching. Ported from the timing table
 * and geometry rules of dawsonjon/PicoSSTV's decode_sstv.py, restructured
 * around a tagged Family instead of the original's string-prefix dispatch.
 */

// Family selects the colour-routing and line-geometry rules a mode uses in
// sample_to_pixel (pixel.go). Replaces the reference's name-prefix checks.
type Family int

const (
	FamilyMartin Family = iota
	FamilyScottie
	FamilyPD
	FamilySC2
)

func (f Family) String() string {
	switch f {
	case FamilyMartin:
		return "martin"
	case FamilyScottie:
		return "scottie"
	case FamilyPD:
		return "pd"
	case FamilySC2:
		return "sc2"
	default:
		return "unknown"
	}
}

// Mode is an immutable per-variant timing and geometry descriptor. All
// *Samples fields are derived once from millisecond timings and a sample
// rate; nothing here changes after construction.
type Mode struct {
	Name    string
	Family  Family
	Width   int
	Height  int // always 256 for the catalogued modes

	HsyncSamples     float64
	ColourGapSamples float64
	ColourLineSamples float64
	LineSamples      float64
	PixelSamples     float64 // ColourLineSamples / Width, kept fractional
}

const catalogueHeight = 256

// modeTiming is the raw millisecond table from the external-interfaces
// section: width, hsync, gap and colour_time per mode.
type modeTiming struct {
	name       string
	family     Family
	width      int
	hsyncMs    float64
	gapMs      float64
	colourMs   float64
}

var modeTimings = []modeTiming{
	{"martin_m1", FamilyMartin, 320, 4.862, 0.572, 146.342},
	{"martin_m2", FamilyMartin, 160, 4.862, 0.572, 73.216},
	{"scottie_s1", FamilyScottie, 320, 9.0, 1.5, 138.240},
	{"scottie_s2", FamilyScottie, 160, 9.0, 1.5, 88.064},
	{"pd_50", FamilyPD, 320, 20.0, 2.08, 91.520},
	{"pd_90", FamilyPD, 320, 20.0, 2.08, 170.240},
	{"sc2_120", FamilySC2, 320, 5.0, 0.0, 117.0},
}

// lineSamples computes line_samples from the family's geometry rule.
func lineSamples(t modeTiming, colourTime, gap, hsync float64) float64 {
	switch t.family {
	case FamilyMartin:
		return 3*colourTime + 4*gap + hsync
	case FamilyScottie:
		return 3*colourTime + 3*gap + hsync
	case FamilyPD:
		return 4*colourTime + gap + hsync
	case FamilySC2:
		return 4*colourTime + hsync
	default:
		panic(fmt.Sprintf("sstv: unhandled family %v", t.family))
	}
}

// Catalogue is a read-only, ordered collection of modes, sorted by
// increasing LineSamples so match_line_length's iteration order is
// deterministic when tolerance windows are close.
type Catalogue struct {
	modes []Mode
}

// NewCatalogue builds the catalogue for a given sample rate. All millisecond
// values become sample counts via samples = Fs * ms / 1000.
func NewCatalogue(sampleRate float64) *Catalogue {
	modes := make([]Mode, 0, len(modeTimings))
	for _, t := range modeTimings {
		hsync := sampleRate * t.hsyncMs / 1000
		gap := sampleRate * t.gapMs / 1000
		colourTime := sampleRate * t.colourMs / 1000
		line := lineSamples(t, colourTime, gap, hsync)
		colourLine := colourLineSamples(t, colourTime, gap)

		modes = append(modes, Mode{
			Name:              t.name,
			Family:            t.family,
			Width:             t.width,
			Height:            catalogueHeight,
			HsyncSamples:      hsync,
			ColourGapSamples:  gap,
			ColourLineSamples: colourLine,
			LineSamples:       line,
			PixelSamples:      colourLine / float64(t.width),
		})
	}

	sortModesByLineSamples(modes)

	return &Catalogue{modes: modes}
}

// colourLineSamples computes samples_per_colour_line per decode_sstv.py:
// Martin and Scottie fold the inter-colour gap into each colour segment's
// duration, while PD and SC2 keep the gap (if any) separate, outside the
// per-colour slot that floorDiv walks in pixel.go.
func colourLineSamples(t modeTiming, colourTime, gap float64) float64 {
	switch t.family {
	case FamilyMartin, FamilyScottie:
		return colourTime + gap
	case FamilyPD, FamilySC2:
		return colourTime
	default:
		panic(fmt.Sprintf("sstv: unhandled family %v", t.family))
	}
}

func sortModesByLineSamples(modes []Mode) {
	for i := 1; i < len(modes); i++ {
		for j := i; j > 0 && modes[j].LineSamples < modes[j-1].LineSamples; j-- {
			modes[j], modes[j-1] = modes[j-1], modes[j]
		}
	}
}

// matchTolerance is the ±1% window match_line_length uses.
const matchTolerance = 0.01

// MatchLineLength returns the unique mode whose LineSamples lies within ±1%
// of observed, or nil if none does. The catalogue is iterated in increasing
// LineSamples order, so if tolerance windows were ever to overlap the
// shortest matching mode wins; Validate rejects catalogues where that could
// happen.
func (c *Catalogue) MatchLineLength(observed float64) *Mode {
	for i := range c.modes {
		m := &c.modes[i]
		if withinTolerance(observed, m.LineSamples, matchTolerance) {
			return m
		}
	}
	return nil
}

func withinTolerance(observed, nominal, tolerance float64) bool {
	diff := observed - nominal
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance*nominal
}

// Validate checks that no two catalogue entries have overlapping ±2%
// tolerance windows, per the mode-catalogue note that implementations
// "should ... verify that no two entries fall within each other's 2%
// window". Returns an error naming the first violating pair.
func (c *Catalogue) Validate() error {
	const overlapTolerance = 0.02
	for i := 0; i < len(c.modes); i++ {
		for j := i + 1; j < len(c.modes); j++ {
			a, b := c.modes[i], c.modes[j]
			if withinTolerance(a.LineSamples, b.LineSamples, overlapTolerance) {
				return fmt.Errorf("sstv: catalogue modes %q and %q have overlapping line-length windows (%.1f vs %.1f samples)",
					a.Name, b.Name, a.LineSamples, b.LineSamples)
			}
		}
	}
	return nil
}

// Modes returns the catalogue's modes in iteration order. The returned
// slice must not be mutated by callers.
func (c *Catalogue) Modes() []Mode {
	return c.modes
}
