package media

import (
	"context"
	"math"
	"sync/atomic"
)

// Meter tracks the level of an audio frame stream as a 0..1 scalar.
// It is a cooperative task bound to the lifetime of its source: it ends
// when the context is cancelled or the frame stream closes, never by
// polling a liveness flag.
type Meter struct {
	level atomic.Uint64
}

func NewMeter() *Meter {
	return &Meter{}
}

// Run consumes frames until ctx is cancelled or the stream closes.
func (m *Meter) Run(ctx context.Context, frames <-chan []int16) {
	defer m.level.Store(0)

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			m.level.Store(math.Float64bits(rms(frame)))
		}
	}
}

// Level returns the most recent level, in [0, 1].
func (m *Meter) Level() float64 {
	return math.Float64frombits(m.level.Load())
}

func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}
