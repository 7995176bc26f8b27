package audio

import (
	"encoding/binary"
	"math"
	"time"
)

var toneFormat = Format{SampleRate: 44100, Channels: 1, BitDepth: 16}

// synthTone renders two short beeps and a pause at the given format,
// used when no ringtone file can be played.
func synthTone(f Format) []byte {
	type segment struct {
		freq float64
		dur  time.Duration
	}
	pattern := []segment{
		{880, 200 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{880, 200 * time.Millisecond},
		{0, 500 * time.Millisecond},
	}

	var total int
	for _, s := range pattern {
		total += samplesFor(f, s.dur)
	}
	out := make([]byte, 0, total*f.Channels*2)

	for _, s := range pattern {
		n := samplesFor(f, s.dur)
		fade := n / 20
		for i := 0; i < n; i++ {
			var v float64
			if s.freq > 0 {
				v = math.Sin(2 * math.Pi * s.freq * float64(i) / float64(f.SampleRate))
				// short ramps keep the beep from clicking
				if i < fade {
					v *= float64(i) / float64(fade)
				} else if i > n-fade {
					v *= float64(n-i) / float64(fade)
				}
			}
			sample := int16(v * 0.6 * math.MaxInt16)
			for c := 0; c < f.Channels; c++ {
				out = binary.LittleEndian.AppendUint16(out, uint16(sample))
			}
		}
	}
	return out
}

func samplesFor(f Format, d time.Duration) int {
	return int(float64(f.SampleRate) * d.Seconds())
}
