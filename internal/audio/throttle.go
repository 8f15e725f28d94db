package audio

import "time"

// DefaultFrameInterval approximates one 60 Hz display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler runs fn once at the next frame boundary. Implementations
// must call fn asynchronously, never from inside ScheduleFrame.
type FrameScheduler interface {
	ScheduleFrame(fn func())
}

// TimerScheduler schedules frames on a fixed timer.
type TimerScheduler struct {
	Interval time.Duration
}

// NewTimerScheduler returns a scheduler firing after interval, or after
// DefaultFrameInterval when interval is not positive.
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimerScheduler{Interval: interval}
}

func (s *TimerScheduler) ScheduleFrame(fn func()) {
	time.AfterFunc(s.Interval, fn)
}
