// Package audio connects the mix domain to a playback backend.
//
// Backend is the contract every concrete engine implements (a native bridge,
// a browser engine, or the beep engine in internal/engine). Port wraps a
// Backend with volume bookkeeping and per-frame throttling of volume updates.
package audio

import (
	"context"
	"time"

	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/events"
)

// MasterOptions modifies a master volume change.
type MasterOptions struct {
	// SkipSync stores the new master volume without re-sending every active
	// track's gain. Set it when the caller issues its own per-track updates,
	// otherwise the tracks are scaled twice.
	SkipSync bool
}

// ServiceStatus is an informational snapshot of a backend.
type ServiceStatus struct {
	TimeLeft           time.Duration `json:"timeLeft"`
	IsRunning          bool          `json:"isRunning"`
	IsPlaying          bool          `json:"isPlaying"`
	TracksPlayingCount int           `json:"tracksPlayingCount"`
}

// Backend produces sound. Volumes passed to Play and SetMasterVolume are
// 0.0-1.0; Initialize must succeed before Play is meaningful.
type Backend interface {
	Load(ctx context.Context, soundID, url string) error
	Unload(ctx context.Context, soundID string) error
	Play(ctx context.Context, soundID string, volume float64, loop bool) error
	Stop(ctx context.Context, soundID string) error
	StopAll(ctx context.Context) error
	SetVolume(ctx context.Context, soundID string, volume domain.VolumeCommand) error
	SetMasterVolume(ctx context.Context, volume float64, opts MasterOptions) error
	Initialize(ctx context.Context) error
	Resume(ctx context.Context) error
	ServiceStatus(ctx context.Context) (ServiceStatus, error)
	ActiveSounds(ctx context.Context) ([]string, error)
}

// Notifier is implemented by backends that emit events such as
// events.PlaybackTerminated. Port registers itself as the handler.
type Notifier interface {
	SetEventHandler(handler events.Handler)
}
