package domain

import "math"

// Volume bounds shared by tracks and the master channel.
const (
	MinVolume = 0
	MaxVolume = 100
)

// ToLinear converts a 0-100 volume into a 0.0-1.0 linear value.
func ToLinear(volume int) float64 {
	return float64(volume) / MaxVolume
}

// ToGain applies the square-law loudness curve to a linear value.
// Squaring concentrates slider resolution at low volumes, where the ear is
// most sensitive.
func ToGain(linear float64) float64 {
	l := clampUnit(linear)
	return l * l
}

// Headroom returns the gain reduction for trackCount simultaneously playing
// uncorrelated sources. It keeps the summed loudness roughly constant as
// tracks are added.
func Headroom(trackCount float64) float64 {
	switch {
	case math.IsNaN(trackCount), trackCount <= 1:
		return 1.0
	case math.IsInf(trackCount, 1):
		return 0
	case trackCount == 9:
		return 0.33
	}
	return 1 / math.Sqrt(trackCount)
}

func clampUnit(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

func validVolume(v int) bool {
	return v >= MinVolume && v <= MaxVolume
}
