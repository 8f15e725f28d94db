package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gopxl/beep"
)

// Source creates independent streams of one sound. A stream that also
// implements beep.StreamSeeker can be looped.
type Source interface {
	Open() beep.Streamer
}

// Noise colors understood by ParseGenerated.
const (
	NoiseWhite = "white"
	NoisePink  = "pink"
	NoiseBrown = "brown"
)

const noiseAmplitude = 0.5

var noiseSeed atomic.Uint64

// ParseGenerated returns a procedural source for locations of the form
// "noise:<color>" or "tone:<hz>". ok is false for any other location.
func ParseGenerated(location string, sr beep.SampleRate) (src Source, ok bool, err error) {
	kind, arg, found := strings.Cut(location, ":")
	if !found {
		return nil, false, nil
	}

	switch kind {
	case "noise":
		switch arg {
		case NoiseWhite, NoisePink, NoiseBrown:
			return &NoiseSource{Color: arg}, true, nil
		}
		return nil, true, fmt.Errorf("%w: noise color %q", ErrUnknownSource, arg)
	case "tone":
		freq, err := strconv.ParseFloat(arg, 64)
		if err != nil || freq <= 0 || freq >= float64(sr)/2 {
			return nil, true, fmt.Errorf("%w: tone frequency %q", ErrUnknownSource, arg)
		}
		return &ToneSource{Freq: freq, SampleRate: sr}, true, nil
	}
	return nil, false, nil
}

// NoiseSource generates endless noise of one color.
type NoiseSource struct {
	Color string
}

func (s *NoiseSource) Open() beep.Streamer {
	seed := noiseSeed.Add(1)
	return &noise{
		color: s.Color,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// noise keeps one filter state per channel so the stereo image is wide.
type noise struct {
	color string
	rng   *rand.Rand
	pink  [2][7]float64
	brown [2]float64
}

func (n *noise) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		for ch := 0; ch < 2; ch++ {
			samples[i][ch] = noiseAmplitude * n.next(ch)
		}
	}
	return len(samples), true
}

func (n *noise) next(ch int) float64 {
	white := n.rng.Float64()*2 - 1

	switch n.color {
	case NoisePink:
		// Paul Kellett's refined pink filter.
		b := &n.pink[ch]
		b[0] = 0.99886*b[0] + white*0.0555179
		b[1] = 0.99332*b[1] + white*0.0750759
		b[2] = 0.96900*b[2] + white*0.1538520
		b[3] = 0.86650*b[3] + white*0.3104856
		b[4] = 0.55000*b[4] + white*0.5329522
		b[5] = -0.7616*b[5] - white*0.0168980
		out := b[0] + b[1] + b[2] + b[3] + b[4] + b[5] + b[6] + white*0.5362
		b[6] = white * 0.115926
		return clampSample(out * 0.11)
	case NoiseBrown:
		n.brown[ch] = (n.brown[ch] + 0.02*white) / 1.02
		return clampSample(n.brown[ch] * 3.5)
	default:
		return white
	}
}

func (n *noise) Err() error { return nil }

// ToneSource generates an endless sine wave.
type ToneSource struct {
	Freq       float64
	SampleRate beep.SampleRate
}

func (s *ToneSource) Open() beep.Streamer {
	return &tone{step: 2 * math.Pi * s.Freq / float64(s.SampleRate)}
}

type tone struct {
	phase float64
	step  float64
}

func (t *tone) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		v := noiseAmplitude * math.Sin(t.phase)
		samples[i][0], samples[i][1] = v, v
		t.phase += t.step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

// BufferSource plays decoded audio held in memory.
type BufferSource struct {
	Buffer *beep.Buffer
}

func (s *BufferSource) Open() beep.Streamer {
	return s.Buffer.Streamer(0, s.Buffer.Len())
}

func clampSample(v float64) float64 {
	return min(max(v, -1), 1)
}
