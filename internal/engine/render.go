package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// ProgressFunc receives the number of frames rendered so far.
type ProgressFunc func(done, total int)

// Render writes d of the current mix to w as 16-bit stereo WAV. It pulls
// samples directly from the engine, so it fails while a sink is running.
func (e *Engine) Render(ctx context.Context, w io.WriteSeeker, d time.Duration, progress ProgressFunc) error {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running {
		return ErrEngineBusy
	}

	total := e.format.SampleRate.N(d)
	if total <= 0 {
		return fmt.Errorf("render duration must be positive, got %s", d)
	}

	rs := &renderStreamer{ctx: ctx, src: e, left: total, total: total, progress: progress}
	if err := wav.Encode(w, rs, e.format); err != nil {
		if rs.err != nil {
			return rs.err
		}
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return rs.err
}

// renderStreamer takes a fixed number of frames from src, reporting progress
// and stopping early when ctx is cancelled.
type renderStreamer struct {
	ctx      context.Context
	src      beep.Streamer
	left     int
	total    int
	progress ProgressFunc
	err      error
}

func (r *renderStreamer) Stream(samples [][2]float64) (int, bool) {
	if r.left <= 0 || r.err != nil {
		return 0, false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return 0, false
	}

	n := min(len(samples), r.left)
	n, _ = r.src.Stream(samples[:n])
	r.left -= n
	if r.progress != nil {
		r.progress(r.total-r.left, r.total)
	}
	return n, n > 0
}

func (r *renderStreamer) Err() error { return r.err }
