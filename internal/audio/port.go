package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/events"
)

// Port wraps a Backend. It remembers the domain volume of every sound it has
// started, turns volumes into gains, and collapses bursts of volume changes
// into one backend call per sound per frame.
//
// The active set is the port's own memory of what it started, not a live
// query of the backend. Backend failures do not roll it back; a
// PlaybackTerminated event or an explicit stop corrects it.
type Port struct {
	backend   Backend
	scheduler FrameScheduler
	bus       *events.Bus

	mu             sync.Mutex
	activeSounds   map[string]int     // sound id -> track volume 0-100
	pendingUpdates map[string]float64 // sound id -> gain awaiting flush
	masterVolume   int
	flushScheduled bool
	flushCtx       context.Context
}

// Option configures a Port.
type Option func(*Port)

// WithScheduler replaces the default 16 ms timer scheduler.
func WithScheduler(s FrameScheduler) Option {
	return func(p *Port) { p.scheduler = s }
}

// WithEventBus sets the bus backend events are republished on.
func WithEventBus(bus *events.Bus) Option {
	return func(p *Port) { p.bus = bus }
}

// NewPort wraps backend. If backend implements Notifier, the port subscribes
// to its events.
func NewPort(backend Backend, opts ...Option) *Port {
	p := &Port{
		backend:        backend,
		scheduler:      NewTimerScheduler(DefaultFrameInterval),
		bus:            events.NewBus(),
		activeSounds:   make(map[string]int),
		pendingUpdates: make(map[string]float64),
		masterVolume:   domain.DefaultMasterVolume,
	}
	for _, opt := range opts {
		opt(p)
	}

	if n, ok := backend.(Notifier); ok {
		n.SetEventHandler(p.HandleEvent)
	}

	return p
}

// Events returns the bus on which backend events are republished after the
// port has updated its bookkeeping.
func (p *Port) Events() *events.Bus {
	return p.bus
}

// Initialize prepares the backend and pins its own master volume at unity,
// since the port folds master volume into every track gain.
func (p *Port) Initialize(ctx context.Context) error {
	if err := p.backend.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	if err := p.backend.SetMasterVolume(ctx, 1.0, MasterOptions{SkipSync: true}); err != nil {
		return fmt.Errorf("failed to reset backend master volume: %w", err)
	}
	return nil
}

// Resume restarts backend output after it stopped, e.g. when the sink went
// away.
func (p *Port) Resume(ctx context.Context) error {
	return p.backend.Resume(ctx)
}

// Load makes soundID available to the backend from url without playing it.
func (p *Port) Load(ctx context.Context, soundID, url string) error {
	return p.backend.Load(ctx, soundID, url)
}

// Unload releases a sound and forgets any bookkeeping for it.
func (p *Port) Unload(ctx context.Context, soundID string) error {
	p.forget(soundID)
	return p.backend.Unload(ctx, soundID)
}

// Play starts soundID at volume (0.0-1.0) immediately.
func (p *Port) Play(ctx context.Context, soundID string, volume float64, loop bool) error {
	trackVolume := levelToTrackVolume(volume)

	p.mu.Lock()
	p.activeSounds[soundID] = trackVolume
	delete(p.pendingUpdates, soundID)
	gain := domain.CalculateTransientGain(trackVolume, p.masterVolume, len(p.activeSounds))
	p.mu.Unlock()

	slog.Debug("Playing sound", "soundId", soundID, "trackVolume", trackVolume, "gain", gain, "loop", loop)
	if err := p.backend.Play(ctx, soundID, gain, loop); err != nil {
		slog.Error("Backend play failed", "soundId", soundID, "error", err)
		return fmt.Errorf("failed to play %s: %w", soundID, err)
	}
	return nil
}

// SetVolume changes the volume of an active sound.
//
// A Level is converted to a gain and throttled to one backend call per
// frame. A GainPacket is forwarded immediately; its TrackVolume, if set,
// updates the bookkeeping.
func (p *Port) SetVolume(ctx context.Context, soundID string, volume domain.VolumeCommand) error {
	switch v := volume.(type) {
	case domain.Level:
		trackVolume := levelToTrackVolume(float64(v))

		p.mu.Lock()
		if _, ok := p.activeSounds[soundID]; !ok {
			p.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrSoundNotActive, soundID)
		}
		p.activeSounds[soundID] = trackVolume
		gain := domain.CalculateTransientGain(trackVolume, p.masterVolume, len(p.activeSounds))
		p.enqueueLocked(ctx, soundID, gain)
		p.mu.Unlock()
		return nil

	case domain.GainPacket:
		p.mu.Lock()
		if v.TrackVolume != nil {
			if _, ok := p.activeSounds[soundID]; ok {
				p.activeSounds[soundID] = *v.TrackVolume
			}
		}
		delete(p.pendingUpdates, soundID)
		p.mu.Unlock()

		if err := p.backend.SetVolume(ctx, soundID, v); err != nil {
			slog.Error("Backend setVolume failed", "soundId", soundID, "error", err)
			return fmt.Errorf("failed to set volume of %s: %w", soundID, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedCommand, volume)
	}
}

// SetMasterVolume stores the master volume (0-100). Unless opts.SkipSync is
// set, every active sound gets a throttled gain update.
func (p *Port) SetMasterVolume(ctx context.Context, volume int, opts MasterOptions) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.masterVolume = min(max(volume, domain.MinVolume), domain.MaxVolume)
	if opts.SkipSync {
		return
	}

	for id, gain := range domain.CalculateAllTransientGains(p.activeSounds, p.masterVolume) {
		p.enqueueLocked(ctx, id, gain)
	}
}

// MasterVolume returns the stored master volume.
func (p *Port) MasterVolume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.masterVolume
}

// Stop stops soundID and drops any pending update for it.
func (p *Port) Stop(ctx context.Context, soundID string) error {
	p.forget(soundID)

	if err := p.backend.Stop(ctx, soundID); err != nil {
		slog.Error("Backend stop failed", "soundId", soundID, "error", err)
		return fmt.Errorf("failed to stop %s: %w", soundID, err)
	}
	return nil
}

// StopAll stops every sound and clears all bookkeeping.
func (p *Port) StopAll(ctx context.Context) error {
	p.mu.Lock()
	clear(p.activeSounds)
	clear(p.pendingUpdates)
	p.mu.Unlock()

	if err := p.backend.StopAll(ctx); err != nil {
		slog.Error("Backend stopAll failed", "error", err)
		return fmt.Errorf("failed to stop all sounds: %w", err)
	}
	return nil
}

// ActiveSounds returns the ids the port believes are playing, sorted.
func (p *Port) ActiveSounds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.activeSounds))
	for id := range p.activeSounds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TrackVolume returns the bookkept volume of an active sound.
func (p *Port) TrackVolume(soundID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.activeSounds[soundID]
	return v, ok
}

// ServiceStatus reports the backend's playback state as it sees it.
func (p *Port) ServiceStatus(ctx context.Context) (ServiceStatus, error) {
	return p.backend.ServiceStatus(ctx)
}

// HandleEvent applies a backend event to the bookkeeping and republishes it.
func (p *Port) HandleEvent(e events.Event) {
	if e.Type == events.PlaybackTerminated {
		slog.Info("Playback terminated by backend", "soundId", e.SoundID, "reason", e.Message)
		p.forget(e.SoundID)
	}
	p.bus.Publish(e)
}

// enqueueLocked records gain as the latest update for soundID and makes sure
// a flush is scheduled. Callers hold p.mu.
func (p *Port) enqueueLocked(ctx context.Context, soundID string, gain float64) {
	p.pendingUpdates[soundID] = gain
	if p.flushScheduled {
		return
	}
	p.flushScheduled = true
	p.flushCtx = context.WithoutCancel(ctx)
	p.scheduler.ScheduleFrame(p.flush)
}

// flush sends every pending update as a one-frame ramp.
func (p *Port) flush() {
	p.mu.Lock()
	ctx := p.flushCtx
	packets := make(map[string]domain.GainPacket, len(p.pendingUpdates))
	for id, gain := range p.pendingUpdates {
		// Stopped mid-frame.
		if _, ok := p.activeSounds[id]; !ok {
			continue
		}
		packets[id] = domain.GainPacket{TargetGain: gain, RampDurationMs: domain.DefaultRampMs}
	}
	clear(p.pendingUpdates)
	p.flushScheduled = false
	p.flushCtx = nil
	p.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	for id, packet := range packets {
		if err := p.backend.SetVolume(ctx, id, packet); err != nil {
			slog.Warn("Throttled volume update failed", "soundId", id, "error", err)
		}
	}
}

func (p *Port) forget(soundID string) {
	p.mu.Lock()
	delete(p.activeSounds, soundID)
	delete(p.pendingUpdates, soundID)
	p.mu.Unlock()
}

func levelToTrackVolume(level float64) int {
	if math.IsNaN(level) {
		return domain.MinVolume
	}
	v := int(math.Round(level * domain.MaxVolume))
	return min(max(v, domain.MinVolume), domain.MaxVolume)
}
