package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/ambient-mixer/internal/audio"
	"github.com/jaki95/ambient-mixer/internal/domain"
)

// gainBackend keeps the last gain the port sent for each sound.
type gainBackend struct {
	mu      sync.Mutex
	gains   map[string]float64
	masters int
}

func newGainBackend() *gainBackend {
	return &gainBackend{gains: make(map[string]float64)}
}

func (b *gainBackend) Gain(soundID string) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.gains[soundID]
	return g, ok
}

func (b *gainBackend) Load(ctx context.Context, soundID, url string) error { return nil }
func (b *gainBackend) Unload(ctx context.Context, soundID string) error    { return nil }

func (b *gainBackend) Play(ctx context.Context, soundID string, volume float64, loop bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gains[soundID] = volume
	return nil
}

func (b *gainBackend) Stop(ctx context.Context, soundID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.gains, soundID)
	return nil
}

func (b *gainBackend) StopAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.gains)
	return nil
}

func (b *gainBackend) SetVolume(ctx context.Context, soundID string, volume domain.VolumeCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch v := volume.(type) {
	case domain.GainPacket:
		b.gains[soundID] = v.TargetGain
	case domain.Level:
		b.gains[soundID] = float64(v)
	}
	return nil
}

func (b *gainBackend) SetMasterVolume(ctx context.Context, volume float64, opts audio.MasterOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.masters++
	return nil
}

func (b *gainBackend) Initialize(ctx context.Context) error { return nil }
func (b *gainBackend) Resume(ctx context.Context) error     { return nil }

func (b *gainBackend) ServiceStatus(ctx context.Context) (audio.ServiceStatus, error) {
	return audio.ServiceStatus{IsRunning: true}, nil
}

func (b *gainBackend) ActiveSounds(ctx context.Context) ([]string, error) { return nil, nil }

// heldFrames collects frame callbacks until Fire is called.
type heldFrames struct {
	mu  sync.Mutex
	fns []func()
}

func (s *heldFrames) ScheduleFrame(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

func (s *heldFrames) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func (s *heldFrames) Fire() {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func TestSyncThroughPortAppliesEachGainOnce(t *testing.T) {
	backend := newGainBackend()
	frames := &heldFrames{}
	port := audio.NewPort(backend, audio.WithScheduler(frames))
	uc := NewSyncMix(port)
	ctx := context.Background()

	mix := buildMix(t, 60,
		domain.Track{ID: "rain", Volume: 50},
		domain.Track{ID: "fire", Volume: 80},
	)
	report := uc.Execute(ctx, mix)
	require.NotNil(t, report)
	require.Empty(t, report.Failed())

	for _, tr := range mix.Tracks() {
		gain, ok := backend.Gain(tr.ID)
		require.True(t, ok, tr.ID)
		assert.InDelta(t, domain.CalculateTransientGain(tr.Volume, 60, 2), gain, 1e-9, tr.ID)
		vol, ok := port.TrackVolume(tr.ID)
		require.True(t, ok, tr.ID)
		assert.Equal(t, tr.Volume, vol)
	}
	assert.Equal(t, 60, port.MasterVolume())
	assert.Zero(t, frames.Len(), "master push must not schedule a flush")
	assert.Zero(t, backend.masters, "master volume is folded into track gains")

	mix = buildMix(t, 30, domain.Track{ID: "rain", Volume: 50})
	report = uc.Execute(ctx, mix)
	require.NotNil(t, report)
	require.Empty(t, report.Failed())

	assert.Equal(t, []string{"rain"}, port.ActiveSounds())
	_, playing := backend.Gain("fire")
	assert.False(t, playing)
	expected := domain.CalculateTransientGain(50, 30, 1)
	gain, _ := backend.Gain("rain")
	assert.InDelta(t, expected, gain, 1e-9)
	assert.Zero(t, frames.Len())

	// A live level at the same volume must land on the same gain.
	require.NoError(t, port.SetVolume(ctx, "rain", domain.Level(domain.ToLinear(50))))
	require.Equal(t, 1, frames.Len())
	frames.Fire()
	gain, _ = backend.Gain("rain")
	assert.InDelta(t, expected, gain, 1e-9)
}
