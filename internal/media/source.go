package media

import (
	"math"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

const (
	// 8 kHz G.711, 20 ms frames
	sampleRate    = 8000
	frameDuration = 20 * time.Millisecond
	frameSamples  = sampleRate / 50
)

// Source is a live local audio source feeding one outbound track. The
// PCM frames it produces are also fanned out for level metering.
type Source struct {
	track  *webrtc.TrackLocalStaticSample
	frames chan []int16
	done   chan struct{}

	stopOnce sync.Once
}

// NewSynthSource creates a source that synthesizes a sine tone at the
// given frequency. Platform microphone capture plugs in at the same
// seam; the rest of the pipeline only sees frames and a track.
func NewSynthSource(freq float64) (*Source, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMA},
		"audio", "voxcall",
	)
	if err != nil {
		return nil, err
	}

	s := &Source{
		track:  track,
		frames: make(chan []int16, 4),
		done:   make(chan struct{}),
	}

	go s.pump(freq)
	return s, nil
}

// Acquire obtains the local audio source for a call.
func Acquire() (*Source, error) {
	return NewSynthSource(440)
}

// pump generates frames on a fixed cadence, writes them to the track
// and offers them to the meter without ever blocking on it.
func (s *Source) pump(freq float64) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	var phase float64
	step := 2 * math.Pi * freq / sampleRate

	for {
		select {
		case <-s.done:
			close(s.frames)
			return
		case <-ticker.C:
			frame := make([]int16, frameSamples)
			for i := range frame {
				frame[i] = int16(0.3 * math.MaxInt16 * math.Sin(phase))
				phase += step
			}

			_ = s.track.WriteSample(media.Sample{
				Data:     encodeALaw(frame),
				Duration: frameDuration,
			})

			select {
			case s.frames <- frame:
			default:
			}
		}
	}
}

// Track returns the outbound track to add to a peer connection.
func (s *Source) Track() *webrtc.TrackLocalStaticSample {
	return s.track
}

// Frames returns the PCM frame stream. The channel is closed when the
// source stops.
func (s *Source) Frames() <-chan []int16 {
	return s.frames
}

// Stop ends the source. Idempotent.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// Live reports whether the source is still producing frames.
func (s *Source) Live() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// encodeALaw converts PCM16 samples to G.711 A-law.
func encodeALaw(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, sample := range pcm {
		out[i] = alawByte(sample)
	}
	return out
}

func alawByte(sample int16) byte {
	sign := byte(0x80)
	if sample < 0 {
		sign = 0
		sample = -sample
	}
	if sample > 0x7F7B {
		sample = 0x7F7B
	}

	var compressed byte
	if sample >= 256 {
		exponent := byte(7)
		for mask := int16(0x4000); sample&mask == 0 && exponent > 1; mask >>= 1 {
			exponent--
		}
		mantissa := byte((sample >> (exponent + 3)) & 0x0F)
		compressed = (exponent << 4) | mantissa
	} else {
		compressed = byte(sample >> 4)
	}

	return (sign | compressed) ^ 0x55
}
