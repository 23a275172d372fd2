package sstv

import (
	"math"
	"testing"
)

// hzForBrightness inverts onDecodeLine's brightness formula: brightness
// in [0,256) maps to a tone in [1500, 2300) Hz.
func hzForBrightness(b float64) float64 {
	return brightnessLowHz + b/256*(brightnessHighHz-brightnessLowHz)
}

// genLine synthesizes one line's worth of frequency samples for mode,
// assigning colourHz[ch] to every sample sampleToPixel classifies as
// channel ch, and a steady below-threshold tone to every noCommit
// sample (which is where hsync and inter-colour gaps live, per §4.5's
// geometry for every family this decoder supports).
func genLine(mode *Mode, colourHz [3]float64) []float64 {
	n := int(mode.LineSamples)
	freqs := make([]float64, n)
	for i := 0; i < n; i++ {
		_, _, ch := sampleToPixel(float64(i), mode, mode.LineSamples)
		if ch >= 0 && ch <= 2 {
			freqs[i] = colourHz[ch]
		} else {
			freqs[i] = 1100 // below syncThresholdHz
		}
	}
	return freqs
}

func genImage(mode *Mode, colourHz [3]float64, lines int) []float64 {
	var freqs []float64
	line := genLine(mode, colourHz)
	for i := 0; i < lines; i++ {
		freqs = append(freqs, line...)
	}
	return freqs
}

func TestDecoderIgnoresSustainedLeaderTone(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDecoder(NewCatalogue(cfg.SampleRate), cfg)

	freqs := make([]float64, 50000)
	for i := range freqs {
		freqs[i] = 1900 // above threshold: never confirms a sync pulse
	}
	results := d.Process(freqs)
	if len(results) != 0 {
		t.Errorf("Process(sustained leader tone) returned %d results, want 0", len(results))
	}
	if d.state != StateDetectSync {
		t.Errorf("state = %v after sustained leader tone, want DETECT_SYNC", d.state)
	}
}

func TestDecoderIgnoresSustainedSilence(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDecoder(NewCatalogue(cfg.SampleRate), cfg)

	freqs := make([]float64, 50000)
	for i := range freqs {
		freqs[i] = 100 // below threshold for the whole stream: never transitions IDLE->IN_PULSE
	}
	results := d.Process(freqs)
	if len(results) != 0 {
		t.Errorf("Process(sustained silence) returned %d results, want 0", len(results))
	}
}

func TestDecoderSingleMartinM1LineIdentifiesMode(t *testing.T) {
	fs := 15000.0
	hsync := int(fs * 4.862 / 1000)
	gap := int(fs * 0.572 / 1000)
	colour := int(fs * 146.342 / 1000)

	buildLine := func() []float64 {
		var line []float64
		appendConst := func(n int, hz float64) {
			for i := 0; i < n; i++ {
				line = append(line, hz)
			}
		}
		appendRamp := func(n int) {
			for i := 0; i < n; i++ {
				line = append(line, 1500+800*float64(i)/float64(n))
			}
		}
		appendConst(hsync, 1200)
		appendConst(gap, 1500)
		appendRamp(colour)
		appendConst(gap, 1500)
		appendRamp(colour)
		appendConst(gap, 1500)
		appendRamp(colour)
		appendConst(gap, 1500)
		return line
	}

	cfg := DefaultConfig()
	cfg.SampleRate = fs
	d := NewDecoder(NewCatalogue(fs), cfg)

	line := buildLine()
	var freqs []float64
	// A porch-tone lead-in gives the first hsync the downward threshold
	// crossing the sync detector needs. That first confirmed pulse has no
	// interval; the second line's hsync, one line later, identifies the mode.
	for i := 0; i < gap; i++ {
		freqs = append(freqs, 1500)
	}
	freqs = append(freqs, line...)
	freqs = append(freqs, line...)

	for i, f := range freqs {
		d.Step(i, f)
	}

	if d.mode == nil || d.mode.Name != "martin_m1" {
		got := "nil"
		if d.mode != nil {
			got = d.mode.Name
		}
		t.Fatalf("detected mode = %s, want martin_m1", got)
	}

	wantLine := fs * (3*146.342 + 4*0.572 + 4.862) / 1000
	if !withinTolerance(d.meanLineSamples, wantLine, 0.01) {
		t.Errorf("meanLineSamples = %v, want within 1%% of %v", d.meanLineSamples, wantLine)
	}
}

func TestDecoderFullFrameMartinM1SolidRed(t *testing.T) {
	cfg := DefaultConfig()
	cat := NewCatalogue(cfg.SampleRate)
	mode := findMode(cat, "martin_m1")

	colourHz := [3]float64{hzForBrightness(250), hzForBrightness(8), hzForBrightness(8)}
	freqs := genImage(mode, colourHz, 3+mode.Height)

	d := NewDecoder(cat, cfg)
	results := d.Process(freqs)
	if len(results) == 0 {
		t.Fatal("no image decoded")
	}
	last := results[len(results)-1]
	if last.Mode.Name != "martin_m1" {
		t.Fatalf("decoded mode = %s, want martin_m1", last.Mode.Name)
	}

	for row := 0; row < last.Raster.Height; row++ {
		for col := 0; col < last.Raster.Width; col++ {
			if r := last.Raster.At(row, col, 0); r < 240 {
				t.Fatalf("R channel at (%d,%d) = %d, want >= 240", row, col, r)
			}
			if g := last.Raster.At(row, col, 1); g > 16 {
				t.Fatalf("G channel at (%d,%d) = %d, want <= 16", row, col, g)
			}
			if b := last.Raster.At(row, col, 2); b > 16 {
				t.Fatalf("B channel at (%d,%d) = %d, want <= 16", row, col, b)
			}
		}
	}
}

func TestDecoderFullFrameScottieS1SolidGreen(t *testing.T) {
	cfg := DefaultConfig()
	cat := NewCatalogue(cfg.SampleRate)
	mode := findMode(cat, "scottie_s1")

	colourHz := [3]float64{hzForBrightness(8), hzForBrightness(250), hzForBrightness(8)}
	freqs := genImage(mode, colourHz, 3+mode.Height)

	d := NewDecoder(cat, cfg)
	results := d.Process(freqs)
	if len(results) == 0 {
		t.Fatal("no image decoded")
	}
	last := results[len(results)-1]
	if last.Mode.Name != "scottie_s1" {
		t.Fatalf("decoded mode = %s, want scottie_s1", last.Mode.Name)
	}

	for row := 0; row < last.Raster.Height; row++ {
		for col := 0; col < last.Raster.Width; col++ {
			if g := last.Raster.At(row, col, 1); g < 240 {
				t.Fatalf("G channel at (%d,%d) = %d, want >= 240", row, col, g)
			}
		}
	}
}

func TestDecoderFullFramePD90MidGrey(t *testing.T) {
	cfg := DefaultConfig()
	cat := NewCatalogue(cfg.SampleRate)
	mode := findMode(cat, "pd_90")

	colourHz := [3]float64{1900, 1900, 1900} // Y=Cr=Cb=128 exactly
	freqs := genImage(mode, colourHz, 3+mode.Height)

	d := NewDecoder(cat, cfg)
	results := d.Process(freqs)
	if len(results) == 0 {
		t.Fatal("no image decoded")
	}
	last := results[len(results)-1]
	if last.Mode.Name != "pd_90" {
		t.Fatalf("decoded mode = %s, want pd_90", last.Mode.Name)
	}

	for row := 0; row < last.Raster.Height; row++ {
		for col := 0; col < last.Raster.Width; col++ {
			for ch := 0; ch < 3; ch++ {
				v := last.Raster.At(row, col, ch)
				if math.Abs(float64(v)-128) > 4 {
					t.Fatalf("channel %d at (%d,%d) = %d, want close to 128", ch, row, col, v)
				}
			}
		}
	}
}
