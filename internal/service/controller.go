package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/events"
)

// MixStore persists mixes by name.
type MixStore interface {
	Save(name string, dto domain.MixDTO) error
	Load(name string) (domain.MixDTO, error)
	List() ([]string, error)
	Delete(name string) error
}

// LivePlayer receives throttled volume changes while a slider is dragged.
type LivePlayer interface {
	SetVolume(ctx context.Context, soundID string, volume domain.VolumeCommand) error
}

// MixController owns the current mix. Every edit produces a new immutable
// snapshot which is handed to SyncMix; edits that change nothing skip the
// sync entirely.
type MixController struct {
	syncer *SyncMix
	live   LivePlayer
	store  MixStore

	mu      sync.Mutex // orders snapshots into SyncMix; never held during a pass
	current atomic.Pointer[domain.Mix]
}

// NewMixController starts from an empty mix.
func NewMixController(syncer *SyncMix, live LivePlayer, store MixStore) *MixController {
	c := &MixController{
		syncer: syncer,
		live:   live,
		store:  store,
	}
	c.current.Store(domain.NewMix())
	return c
}

// Current returns the latest snapshot.
func (c *MixController) Current() *domain.Mix {
	return c.current.Load()
}

func (c *MixController) AddTrack(ctx context.Context, id string, volume int) (*domain.Mix, error) {
	return c.apply(ctx, func(m *domain.Mix) (*domain.Mix, error) {
		return m.AddTrack(id, volume)
	})
}

func (c *MixController) RemoveTrack(ctx context.Context, id string) (*domain.Mix, error) {
	return c.apply(ctx, func(m *domain.Mix) (*domain.Mix, error) {
		return m.RemoveTrack(id), nil
	})
}

func (c *MixController) SetTrackVolume(ctx context.Context, id string, volume int) (*domain.Mix, error) {
	return c.apply(ctx, func(m *domain.Mix) (*domain.Mix, error) {
		return m.UpdateTrackVolume(id, volume)
	})
}

func (c *MixController) SetMasterVolume(ctx context.Context, volume int) (*domain.Mix, error) {
	return c.apply(ctx, func(m *domain.Mix) (*domain.Mix, error) {
		return m.UpdateMasterVolume(volume), nil
	})
}

// SetTrackVolumeLive previews a volume while a slider is moving. The player
// throttles the change; the mix itself is not modified until the value is
// committed with SetTrackVolume.
func (c *MixController) SetTrackVolumeLive(ctx context.Context, id string, volume int) error {
	// Validation only; the edited snapshot is discarded.
	if _, err := c.Current().UpdateTrackVolume(id, volume); err != nil {
		return err
	}
	return c.live.SetVolume(ctx, id, domain.Level(domain.ToLinear(volume)))
}

// Clear replaces the mix with a fresh empty one.
func (c *MixController) Clear(ctx context.Context) *domain.Mix {
	m, _ := c.apply(ctx, func(*domain.Mix) (*domain.Mix, error) {
		return domain.NewMix(), nil
	})
	return m
}

// Replace installs mix as the current snapshot.
func (c *MixController) Replace(ctx context.Context, mix *domain.Mix) *domain.Mix {
	m, _ := c.apply(ctx, func(*domain.Mix) (*domain.Mix, error) {
		return mix, nil
	})
	return m
}

// Resync pushes the current snapshot again, e.g. after the backend dropped a
// sound on its own.
func (c *MixController) Resync(ctx context.Context) {
	c.mu.Lock()
	mix := c.current.Load()
	claimed := c.syncer.claim(mix)
	c.mu.Unlock()

	if claimed {
		c.syncer.run(ctx, mix)
	}
}

// Save stores the current mix under name. Empty mixes are rejected.
func (c *MixController) Save(name string) error {
	m := c.Current()
	if err := m.EnsureNotEmpty(); err != nil {
		return err
	}
	if err := c.store.Save(name, m.ToDTO()); err != nil {
		return fmt.Errorf("failed to save mix %s: %w", name, err)
	}
	slog.Info("Saved mix", "name", name, "mixId", m.ID(), "tracks", m.TrackCount())
	return nil
}

// Saved reads and validates the mix saved under name without playing it.
func (c *MixController) Saved(name string) (*domain.Mix, error) {
	dto, err := c.store.Load(name)
	if err != nil {
		return nil, err
	}
	m, err := domain.FromDTO(dto)
	if err != nil {
		return nil, fmt.Errorf("saved mix %s is invalid: %w", name, err)
	}
	return m, nil
}

// Load replaces the current mix with the one saved under name.
func (c *MixController) Load(ctx context.Context, name string) (*domain.Mix, error) {
	m, err := c.Saved(name)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded mix", "name", name, "mixId", m.ID(), "tracks", m.TrackCount())
	return c.Replace(ctx, m), nil
}

func (c *MixController) ListSaved() ([]string, error) {
	return c.store.List()
}

func (c *MixController) DeleteSaved(name string) error {
	return c.store.Delete(name)
}

// HandleEvent resyncs when the backend terminated a sound the mix still
// wants, so the sound is started again.
func (c *MixController) HandleEvent(e events.Event) {
	if e.Type != events.PlaybackTerminated {
		return
	}
	if _, wanted := c.Current().Track(e.SoundID); !wanted {
		return
	}
	slog.Info("Restarting terminated sound", "soundId", e.SoundID)
	go c.Resync(context.Background())
}

// apply stores the edited snapshot and claims SyncMix under the lock, then
// runs the pass without it. An edit made while a pass is running only fills
// the pending slot and returns at once.
func (c *MixController) apply(ctx context.Context, edit func(*domain.Mix) (*domain.Mix, error)) (*domain.Mix, error) {
	c.mu.Lock()
	prev := c.current.Load()
	next, err := edit(prev)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if next == prev {
		c.mu.Unlock()
		return prev, nil
	}
	c.current.Store(next)
	claimed := c.syncer.claim(next)
	c.mu.Unlock()

	if claimed {
		c.syncer.run(ctx, next)
	}
	return next, nil
}
