package domain

import "math"

const (
	// PeakThreshold reserves 5% headroom against rounding and ramp overshoot.
	PeakThreshold = 0.95

	// DefaultRampMs is one display frame at 60 Hz.
	DefaultRampMs = 16
)

// VolumeCommand is either a raw Level or a precomputed GainPacket.
type VolumeCommand interface {
	isVolumeCommand()
}

// Level is a raw 0.0-1.0 track volume. The receiver derives the output gain.
type Level float64

func (Level) isVolumeCommand() {}

// GainPacket is a ramped volume command carrying an already computed gain.
// TrackVolume keeps the receiver's bookkeeping in step with the integer
// domain volume the gain was derived from.
type GainPacket struct {
	TargetGain     float64 `json:"targetGain"`
	RampDurationMs int     `json:"rampDurationMs"`
	TrackVolume    *int    `json:"trackVolume,omitempty"`
}

func (GainPacket) isVolumeCommand() {}

// NewGainPacket builds a one-frame ramp to gain for a track at trackVolume.
func NewGainPacket(gain float64, trackVolume int) GainPacket {
	v := trackVolume
	return GainPacket{
		TargetGain:     gain,
		RampDurationMs: DefaultRampMs,
		TrackVolume:    &v,
	}
}

// CalculateTransientGain converts a track volume and master volume into the
// output gain for a mix of trackCount tracks.
//
// Track volume follows the square-law curve, master volume stays linear.
// The function is pure and allocation free so it can run on every slider move.
func CalculateTransientGain(trackVolume, masterVolume, trackCount int) float64 {
	trackFactor := ToGain(ToLinear(trackVolume))
	masterFactor := clampUnit(ToLinear(masterVolume))
	headroom := Headroom(float64(trackCount))

	gain := trackFactor * masterFactor * headroom * PeakThreshold
	return math.Min(math.Max(gain, 0), PeakThreshold)
}

// CalculateAllTransientGains recomputes the gain of every track, keyed by id.
// The track count is the number of entries in volumes.
func CalculateAllTransientGains(volumes map[string]int, masterVolume int) map[string]float64 {
	gains := make(map[string]float64, len(volumes))
	for id, v := range volumes {
		gains[id] = CalculateTransientGain(v, masterVolume, len(volumes))
	}
	return gains
}
