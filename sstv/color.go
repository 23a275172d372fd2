package sstv

/*
 * PD Colour-space Conversion
 *
 * Ported verbatim (arithmetic-for-arithmetic) from the PD conversion
 * loop at the end of dawsonjon/PicoSSTV's decode_sstv.py, with clamping
 * to [0, 255] added per the spec's SHOULD.
 */

// convertPDColourSpace rewrites a PD-family raster's channels from
// Y/Cr/Cb (stored in channels 0/1/2 by the pixel sampler) to R/G/B,
// clamping each result to [0, 255].
func convertPDColourSpace(r *Raster) {
	r.ForEachPixel(func(_, _ int, y, crRaw, cbRaw int32) (int32, int32, int32) {
		cr := crRaw - 128
		cb := cbRaw - 128

		red := y + 45*cr/32
		green := y - (11*cb+23*cr)/32
		blue := y + 113*cb/64

		return ClampChannel(red), ClampChannel(green), ClampChannel(blue)
	})
}

// ClampChannel clamps a channel value to [0, 255]. Exported so callers
// outside this package (the PNG/preview encoders) can saturate rather
// than wrap when a channel reaches exactly 256 (pure-white brightness).
func ClampChannel(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
