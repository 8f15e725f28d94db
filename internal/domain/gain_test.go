package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadroom(t *testing.T) {
	tests := []struct {
		name     string
		count    float64
		expected float64
	}{
		{name: "no tracks", count: 0, expected: 1.0},
		{name: "single track", count: 1, expected: 1.0},
		{name: "negative count", count: -3, expected: 1.0},
		{name: "NaN", count: math.NaN(), expected: 1.0},
		{name: "infinity", count: math.Inf(1), expected: 0},
		{name: "four tracks", count: 4, expected: 0.5},
		{name: "nine tracks fixture", count: 9, expected: 0.33},
		{name: "ten tracks", count: 10, expected: 1 / math.Sqrt(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Headroom(tt.count))
		})
	}
}

func TestToGainClampsAndSquares(t *testing.T) {
	assert.Equal(t, 0.0, ToGain(-0.5))
	assert.Equal(t, 1.0, ToGain(1.7))
	assert.InDelta(t, 0.25, ToGain(0.5), 1e-12)
	assert.InDelta(t, 0.5, ToLinear(50), 1e-12)
}

func TestCalculateTransientGain(t *testing.T) {
	assert.InDelta(t, 0.95, CalculateTransientGain(100, 100, 1), 1e-9)
	assert.InDelta(t, 0.2375, CalculateTransientGain(50, 100, 1), 1e-9)
	assert.InDelta(t, 0.95*0.5, CalculateTransientGain(100, 50, 1), 1e-9, "master volume is linear")
	assert.InDelta(t, 0.95*0.5, CalculateTransientGain(100, 100, 4), 1e-9)
	assert.InDelta(t, 0.95*0.33, CalculateTransientGain(100, 100, 9), 1e-9)
	assert.Equal(t, 0.0, CalculateTransientGain(0, 100, 1))
	assert.Equal(t, 0.0, CalculateTransientGain(100, 0, 1))
}

func TestCalculateTransientGainBounds(t *testing.T) {
	for track := MinVolume; track <= MaxVolume; track += 5 {
		for master := MinVolume; master <= MaxVolume; master += 5 {
			for count := 0; count <= MaxTracks; count++ {
				g := CalculateTransientGain(track, master, count)
				if g < 0 || g > PeakThreshold {
					t.Fatalf("gain %f out of bounds for track=%d master=%d count=%d", g, track, master, count)
				}
			}
		}
	}
}

func TestCalculateTransientGainDoesNotAllocate(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = CalculateTransientGain(73, 81, 6)
	})
	assert.Equal(t, 0.0, allocs)
}

func TestCalculateAllTransientGains(t *testing.T) {
	volumes := map[string]int{"rain": 50, "fire": 100, "wind": 0, "pink": 80}

	gains := CalculateAllTransientGains(volumes, 60)

	assert.Len(t, gains, 4)
	for id, v := range volumes {
		assert.Equal(t, CalculateTransientGain(v, 60, 4), gains[id], id)
	}
}

func TestNewGainPacket(t *testing.T) {
	p := NewGainPacket(0.42, 80)

	assert.Equal(t, 0.42, p.TargetGain)
	assert.Equal(t, DefaultRampMs, p.RampDurationMs)
	if assert.NotNil(t, p.TrackVolume) {
		assert.Equal(t, 80, *p.TrackVolume)
	}
}
