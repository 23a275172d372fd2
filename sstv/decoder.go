package sstv

import (
	"log"
)

/*
 * Decoder State Machine
 *
 * The four-state DETECT_SYNC / CONFIRM_SYNC / WAIT_START / DECODE_LINE
 * machine from the component-design section, restructured per the
 * "global mutable decoder state" redesign flag: an owned Decoder record
 * with an explicit Step(sample) transition function, rather than the
 * reference's local variables inside one long function. Ported from the
 * `state` handling in dawsonjon/PicoSSTV's decode_sstv.py.
 *
 * The sync detector (sync.go) is kept deliberately decoupled from this
 * state machine: it runs continuously against the frequency stream and
 * reports confirmed pulses as events, rather than sharing a dwell
 * counter with the decoder the way the single-function reference does.
 * This is the same redesign the component-design section asks for
 * elsewhere (tagged state instead of global locals); see DESIGN.md.
 */

// State is the decoder's four-state tag.
type State int

const (
	StateDetectSync State = iota
	StateConfirmSync
	StateWaitStart
	StateDecodeLine
)

func (s State) String() string {
	switch s {
	case StateDetectSync:
		return "DETECT_SYNC"
	case StateConfirmSync:
		return "CONFIRM_SYNC"
	case StateWaitStart:
		return "WAIT_START"
	case StateDecodeLine:
		return "DECODE_LINE"
	default:
		return "UNKNOWN"
	}
}

// confirmTolerance is the ±1% tolerance used both for confirming the
// second sync pulse and for accepting a slant-tracking update.
const confirmTolerance = 0.01

// decodeTimeoutSamples is the steady-state timeout reset after every
// in-tolerance sync during DECODE_LINE.
const decodeTimeoutSamples = 10000

// slantEMAOld, slantEMANew are the exponential-moving-average weights
// for mean_line_samples: mean = old*slantEMAOld + new*slantEMANew.
const (
	slantEMAOld = 0.7
	slantEMANew = 0.3
)

// brightnessLowHz, brightnessHighHz bound the pixel-tone band used to
// derive 8-bit brightness from the frequency stream.
const (
	brightnessLowHz  = 1500.0
	brightnessHighHz = 2300.0
)

// Result is emitted whenever the decoder terminates an image: either by
// reaching the last row, by timing out, or by the input stream ending
// mid-decode (see Decoder.Finish). Partial is true in the last two cases;
// both still carry the raster accumulated so far.
type Result struct {
	Mode    *Mode
	Raster  *Raster
	Partial bool
}

// Decoder implements the mode-detect/confirm/track state machine over a
// frequency stream, accumulating pixels into a Raster.
type Decoder struct {
	catalogue *Catalogue
	sync      *SyncDetector
	vis       *VISDetector // nil unless cfg.EnableVISFastPath
	visHint   string
	cfg       Config
	metrics   *Metrics
	logTag    string // e.g. "[SSTV Decoder]"; overridable by the streaming wrapper to embed a session id

	state  State
	mode   *Mode
	raster *Raster

	meanLineSamples    float64
	firstSyncIndex     int
	imageSampleCounter int
	pixelAccumulator   float64
	pixelCount         int
	lastX              int
	timeout            int
	confirmCount       int
}

// NewDecoder constructs a decoder over the given mode catalogue and
// config. The catalogue is typically built once via
// NewCatalogue(cfg.SampleRate) and may be shared across decoders.
func NewDecoder(catalogue *Catalogue, cfg Config) *Decoder {
	d := &Decoder{
		catalogue: catalogue,
		sync:      NewSyncDetector(cfg),
		cfg:       cfg,
		logTag:    "[SSTV Decoder]",
		state:     StateDetectSync,
	}
	if cfg.EnableVISFastPath {
		d.vis = NewVISDetector(cfg.SampleRate)
	}
	return d
}

// SetMetrics attaches a Metrics sink; nil disables metrics entirely.
func (d *Decoder) SetMetrics(m *Metrics) { d.metrics = m }

// SetLogTag overrides the bracketed log tag, letting a streaming wrapper
// embed a per-session identifier (see extension.go).
func (d *Decoder) SetLogTag(tag string) { d.logTag = tag }

// CurrentRaster returns the raster being accumulated for the image in
// progress, or nil if the decoder is idle (not in DECODE_LINE). Intended
// for callers that want to preview a partially-decoded image before it
// terminates; the returned raster is the live buffer, not a copy, and
// should be treated as read-only by the caller.
func (d *Decoder) CurrentRaster() *Raster {
	if d.state != StateDecodeLine {
		return nil
	}
	return d.raster
}

// Step advances the decoder by one frequency-stream sample (Hz) at
// absolute sample index. It returns a non-nil Result exactly when this
// step terminated an image.
func (d *Decoder) Step(index int, freqHz float64) *Result {
	event, confirmed := d.sync.Step(index, freqHz)

	if d.vis != nil && d.state == StateDetectSync {
		if hint, ok := d.vis.Step(index, freqHz); ok {
			d.visHint = hint
		}
	}

	switch d.state {
	case StateDetectSync:
		if confirmed {
			d.onDetectSync(event)
		}
	case StateConfirmSync:
		if confirmed {
			d.onConfirmSync(event)
		}
	case StateWaitStart:
		d.onWaitStart()
	case StateDecodeLine:
		return d.onDecodeLine(index, freqHz, event, confirmed)
	}
	return nil
}

// transition moves to next, recording a metric for the (from, to) pair.
func (d *Decoder) transition(next State) {
	if d.metrics != nil {
		d.metrics.StateTransition(d.state, next)
	}
	d.state = next
}

func (d *Decoder) onDetectSync(event SyncEvent) {
	var mode *Mode
	if d.visHint != "" {
		mode = d.catalogue.MatchHinted(float64(event.IntervalSamples), d.visHint)
	}
	if mode == nil {
		mode = d.catalogue.MatchLineLength(float64(event.IntervalSamples))
	}
	d.visHint = ""
	if mode == nil {
		return
	}
	d.mode = mode
	d.meanLineSamples = mode.LineSamples
	d.timeout = int(mode.LineSamples)
	d.confirmCount = 0
	log.Printf("%s candidate mode %s at sample %d (interval %d)", d.logTag, mode.Name, event.SampleIndex, event.IntervalSamples)
	d.transition(StateConfirmSync)
}

func (d *Decoder) onConfirmSync(event SyncEvent) {
	if withinTolerance(float64(event.IntervalSamples), d.mode.LineSamples, d.cfg.ConfirmTolerance) {
		d.firstSyncIndex = event.SampleIndex
		log.Printf("%s mode %s confirmed at sample %d", d.logTag, d.mode.Name, event.SampleIndex)
		if d.metrics != nil {
			d.metrics.ModeConfirmed(d.mode.Name)
		}
		d.transition(StateWaitStart)
		return
	}
	d.confirmCount++
	if d.confirmCount >= 2 {
		log.Printf("%s confirmation failed for %s, reverting to DETECT_SYNC", d.logTag, d.mode.Name)
		d.transition(StateDetectSync)
	}
}

func (d *Decoder) onWaitStart() {
	d.imageSampleCounter = 0
	d.pixelAccumulator = 0
	d.pixelCount = 0
	d.lastX = 0
	d.raster = NewRaster(d.mode.Width, d.mode.Height)
	d.transition(StateDecodeLine)
}

func (d *Decoder) onDecodeLine(index int, freqHz float64, event SyncEvent, confirmed bool) *Result {
	s := float64(d.imageSampleCounter)
	x, y, channel := sampleToPixel(s, d.mode, d.meanLineSamples)

	commitRow := y
	if d.mode.Family == FamilyPD && pdSlotIndex(s, d.mode, d.meanLineSamples) == 3 {
		commitRow = y + 1
	}

	if x != d.lastX && channel < noCommit && d.pixelCount > 0 {
		avg := int32(d.pixelAccumulator / float64(d.pixelCount))
		d.raster.Set(commitRow, d.lastX, channel, avg)
		d.pixelAccumulator = 0
		d.pixelCount = 0
		d.lastX = x
	}

	if y == d.mode.Height {
		return d.finishImage(false)
	}

	if confirmed && withinTolerance(float64(event.IntervalSamples), d.meanLineSamples, d.cfg.ConfirmTolerance) {
		d.timeout = d.cfg.DecodeTimeout
		numLines := roundFloat(float64(index-d.firstSyncIndex) / d.meanLineSamples)
		if numLines > 0 {
			d.meanLineSamples = d.meanLineSamples*d.cfg.SlantEMAOld + (float64(index-d.firstSyncIndex)/float64(numLines))*d.cfg.SlantEMANew
		}
	} else {
		d.timeout--
		if d.timeout <= 0 {
			log.Printf("%s decode timeout at sample %d", d.logTag, index)
			return d.finishImage(true)
		}
	}

	brightness := clampFloat(freqHz, brightnessLowHz, brightnessHighHz)
	brightness = 256 * (brightness - brightnessLowHz) / (brightnessHighHz - brightnessLowHz)
	d.pixelAccumulator += brightness
	d.pixelCount++
	d.imageSampleCounter++

	return nil
}

// finishImage terminates the current image, runs the PD colour
// conversion if applicable, and returns to DETECT_SYNC. aborted marks an
// early end, a timeout abort (§7 kind 3) or an exhausted stream (via
// Finish), as opposed to a clean row-256 completion; it sets
// Result.Partial and the logged and metric outcome. Both cases return the
// raster accumulated so far, letting the caller decide whether to keep it.
func (d *Decoder) finishImage(aborted bool) *Result {
	mode := d.mode
	raster := d.raster

	if mode.Family == FamilyPD {
		convertPDColourSpace(raster)
	}

	d.transition(StateDetectSync)
	d.mode = nil
	d.raster = nil

	if aborted {
		log.Printf("%s aborting image, emitting partial raster (mode %s)", d.logTag, mode.Name)
	} else {
		log.Printf("%s image complete (mode %s)", d.logTag, mode.Name)
	}
	if d.metrics != nil {
		d.metrics.ImageCompleted(mode.Name, aborted)
	}

	return &Result{Mode: mode, Raster: raster, Partial: aborted}
}

// Finish flushes a partial image if the stream ended mid-decode (§7
// error kind 4), returning nil if the decoder was idle (DETECT_SYNC,
// CONFIRM_SYNC, or WAIT_START).
func (d *Decoder) Finish() *Result {
	if d.state != StateDecodeLine {
		return nil
	}
	log.Printf("%s stream exhausted mid-image, emitting partial raster (mode %s)", d.logTag, d.mode.Name)
	return d.finishImage(true)
}

// Process runs the decoder over a complete frequency stream and returns
// every image it produced, including a trailing partial one if the
// stream ended mid-decode. Offered for batch/test use; streaming
// callers should drive Step directly (see extension.go).
func (d *Decoder) Process(freqs []float64) []Result {
	var results []Result
	for i, f := range freqs {
		if r := d.Step(i, f); r != nil {
			results = append(results, *r)
		}
	}
	if r := d.Finish(); r != nil {
		results = append(results, *r)
	}
	return results
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundFloat(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
