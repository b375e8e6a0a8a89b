package media

import (
	"testing"
	"time"
)

func TestSynthSourceProducesFrames(t *testing.T) {
	src, err := NewSynthSource(440)
	if err != nil {
		t.Fatalf("NewSynthSource: %v", err)
	}
	defer src.Stop()

	select {
	case frame := <-src.Frames():
		if len(frame) != frameSamples {
			t.Fatalf("frame has %d samples, want %d", len(frame), frameSamples)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame produced")
	}

	if !src.Live() {
		t.Fatal("source should be live")
	}
}

func TestSourceStop(t *testing.T) {
	src, err := NewSynthSource(440)
	if err != nil {
		t.Fatalf("NewSynthSource: %v", err)
	}

	src.Stop()
	src.Stop() // idempotent

	if src.Live() {
		t.Fatal("source should not be live after Stop")
	}

	// The frame channel closes once the pump notices.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-src.Frames():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frame channel never closed")
		}
	}
}

func TestEncodeALawSilence(t *testing.T) {
	frame := make([]int16, 8)
	out := encodeALaw(frame)
	if len(out) != len(frame) {
		t.Fatalf("encoded %d bytes for %d samples", len(out), len(frame))
	}
	// A-law encodes zero as 0xD5 (0x80^0x55).
	for i, b := range out {
		if b != 0xD5 {
			t.Fatalf("out[%d] = %#x, want 0xd5", i, b)
		}
	}
}
