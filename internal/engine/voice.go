package engine

import (
	"github.com/gopxl/beep"
)

// voice is one playing sound: a source stream followed by a linear gain ramp.
// All fields are guarded by the engine mutex.
type voice struct {
	id   string
	src  beep.Streamer
	loop bool

	gain     float64
	target   float64
	step     float64
	rampLeft int

	stopAfterRamp bool
	stopped       bool // removed, finish silently
	finished      bool // source drained on its own
}

func newVoice(id string, src beep.Streamer, loop bool) *voice {
	return &voice{id: id, src: src, loop: loop}
}

// rampTo moves the gain linearly to target over n samples.
func (v *voice) rampTo(target float64, n int) {
	target = min(max(target, 0), 1)
	v.target = target
	if n <= 0 {
		v.gain = target
		v.step = 0
		v.rampLeft = 0
		return
	}
	v.step = (target - v.gain) / float64(n)
	v.rampLeft = n
}

// fadeOut ramps to silence and then drops the voice from the mixer.
func (v *voice) fadeOut(n int) {
	v.rampTo(0, n)
	v.stopAfterRamp = true
	if n <= 0 {
		v.stopped = true
	}
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	if v.stopped || v.finished {
		return 0, false
	}

	filled := 0
	for filled < len(samples) {
		n, ok := v.src.Stream(samples[filled:])
		filled += n
		if ok && n > 0 {
			continue
		}
		if v.loop {
			if seeker, canSeek := v.src.(beep.StreamSeeker); canSeek && seeker.Len() > 0 {
				if err := seeker.Seek(0); err == nil {
					continue
				}
			}
		}
		v.finished = true
		break
	}

	for i := range samples[:filled] {
		if v.rampLeft > 0 {
			v.gain += v.step
			v.rampLeft--
			if v.rampLeft == 0 {
				v.gain = v.target
			}
		}
		samples[i][0] *= v.gain
		samples[i][1] *= v.gain
	}

	if v.stopAfterRamp && v.rampLeft == 0 {
		v.stopped = true
	}
	return filled, filled > 0
}

func (v *voice) Err() error { return v.src.Err() }
