package sstv

import "testing"

func TestClampChannel(t *testing.T) {
	cases := []struct{ in, want int32 }{
		{-10, 0},
		{0, 0},
		{128, 128},
		{255, 255},
		{300, 255},
	}
	for _, c := range cases {
		if got := ClampChannel(c.in); got != c.want {
			t.Errorf("ClampChannel(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestConvertPDColourSpaceMidGrey(t *testing.T) {
	r := NewRaster(2, 1)
	// Y=128, Cr=128, Cb=128 (both chroma channels neutral) should decode
	// to a neutral grey in all three output channels.
	r.Set(0, 0, 0, 128)
	r.Set(0, 0, 1, 128)
	r.Set(0, 0, 2, 128)
	r.Set(0, 1, 0, 128)
	r.Set(0, 1, 1, 128)
	r.Set(0, 1, 2, 128)

	convertPDColourSpace(r)

	for col := 0; col < 2; col++ {
		for ch := 0; ch < 3; ch++ {
			if v := r.At(0, col, ch); v != 128 {
				t.Errorf("At(0,%d,%d) = %d, want 128 for neutral chroma", col, ch, v)
			}
		}
	}
}

func TestConvertPDColourSpaceClampsOutOfRange(t *testing.T) {
	r := NewRaster(1, 1)
	r.Set(0, 0, 0, 128) // Y = 128
	r.Set(0, 0, 1, 255) // Cr = 255 -> cr = 127, pushes red well above 255
	r.Set(0, 0, 2, 0)   // Cb = 0   -> cb = -128, pushes blue well below 0

	convertPDColourSpace(r)

	if v := r.At(0, 0, 0); v != 255 {
		t.Errorf("red = %d, want clamped to 255", v)
	}
	if v := r.At(0, 0, 2); v != 0 {
		t.Errorf("blue = %d, want clamped to 0", v)
	}
}
