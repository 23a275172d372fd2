package sstv

import "testing"

func TestSlidingPCMBufferWriteAndDrain(t *testing.T) {
	b := NewSlidingPCMBuffer(0) // unbounded
	b.Write([]int16{1, 2, 3})
	b.Write([]int16{4, 5})

	if got := b.Available(); got != 5 {
		t.Fatalf("Available() = %d, want 5", got)
	}

	out := b.Drain()
	want := []int16{1, 2, 3, 4, 5}
	if len(out) != len(want) {
		t.Fatalf("Drain() = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Drain()[%d] = %d, want %d", i, out[i], want[i])
		}
	}
	if got := b.Available(); got != 0 {
		t.Errorf("Available() after Drain() = %d, want 0", got)
	}
}

func TestSlidingPCMBufferTrimsToMaxSize(t *testing.T) {
	b := NewSlidingPCMBuffer(3)
	b.Write([]int16{1, 2, 3, 4, 5})

	if got := b.Available(); got != 3 {
		t.Fatalf("Available() = %d, want 3", got)
	}
	out := b.Drain()
	want := []int16{3, 4, 5}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Drain()[%d] = %d, want %d (oldest samples should be dropped)", i, out[i], want[i])
		}
	}
}

func TestSlidingPCMBufferReadExact(t *testing.T) {
	b := NewSlidingPCMBuffer(0)
	b.Write([]int16{10, 20, 30, 40})

	out, err := b.Read(2)
	if err != nil {
		t.Fatalf("Read(2): %v", err)
	}
	if out[0] != 10 || out[1] != 20 {
		t.Errorf("Read(2) = %v, want [10 20]", out)
	}
	if got := b.Available(); got != 2 {
		t.Errorf("Available() after Read(2) = %d, want 2", got)
	}
}

func TestSlidingPCMBufferReadUnderrun(t *testing.T) {
	b := NewSlidingPCMBuffer(0)
	b.Write([]int16{1, 2})

	if _, err := b.Read(5); err == nil {
		t.Error("Read(5) with only 2 queued = nil error, want an error")
	}
}

func TestSlidingPCMBufferReset(t *testing.T) {
	b := NewSlidingPCMBuffer(0)
	b.Write([]int16{1, 2, 3})
	b.Reset()
	if got := b.Available(); got != 0 {
		t.Errorf("Available() after Reset() = %d, want 0", got)
	}
}
