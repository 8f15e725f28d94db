// Package engine is a playback backend built on beep. Each playing sound is
// a voice with its own gain ramp; voices are summed by a beep.Mixer and the
// result passes through a master volume before it is either pumped to a
// system audio player in real time or rendered offline to WAV.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/jaki95/ambient-mixer/internal/audio"
	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/events"
)

const (
	DefaultSampleRate     = 44100
	DefaultBufferDuration = 20 * time.Millisecond
)

// Config configures an Engine.
type Config struct {
	SampleRate     int
	BufferDuration time.Duration
	Sink           string // auto, pipe or null
	WorkDir        string
	FFmpegPath     string

	// Sounds maps sound ids to locations. A sound in the catalog is loaded
	// on first play.
	Sounds map[string]string
}

// Engine implements audio.Backend and audio.Notifier.
type Engine struct {
	cfg      Config
	format   beep.Format
	loader   *Loader
	openSink func(kind string, sampleRate int) (Sink, error)

	mu         sync.Mutex
	sounds     map[string]Source
	voices     map[string]*voice
	mixer      *beep.Mixer
	master     *effects.Volume
	masterGain float64
	handler    events.Handler

	sink    Sink
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink makes Initialize use sink instead of opening one by kind.
func WithSink(sink Sink) Option {
	return func(e *Engine) {
		e.openSink = func(string, int) (Sink, error) { return sink, nil }
	}
}

// WithLoader replaces the default loader.
func WithLoader(l *Loader) Option {
	return func(e *Engine) { e.loader = l }
}

// New creates a stopped engine. Call Initialize to start real-time output.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BufferDuration <= 0 {
		cfg.BufferDuration = DefaultBufferDuration
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "ambient-mixer-sounds")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(cfg.SampleRate),
		NumChannels: 2,
		Precision:   2,
	}

	mixer := &beep.Mixer{}
	e := &Engine{
		cfg:        cfg,
		format:     format,
		loader:     NewLoader(format, cfg.WorkDir, NewTranscoder(cfg.FFmpegPath)),
		openSink:   OpenSink,
		sounds:     make(map[string]Source),
		voices:     make(map[string]*voice),
		mixer:      mixer,
		master:     &effects.Volume{Streamer: mixer, Base: 2},
		masterGain: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Format returns the PCM format the engine produces.
func (e *Engine) Format() beep.Format {
	return e.format
}

func (e *Engine) SetEventHandler(handler events.Handler) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
}

// Register makes src playable as soundID without going through the loader.
func (e *Engine) Register(soundID string, src Source) {
	e.mu.Lock()
	e.sounds[soundID] = src
	e.mu.Unlock()
}

func (e *Engine) Load(ctx context.Context, soundID, url string) error {
	e.emit(events.New(events.SoundLoading, soundID, url))

	src, err := e.loader.Load(ctx, url)
	if err != nil {
		slog.Error("Failed to load sound", "soundId", soundID, "location", url, "error", err)
		ev := events.New(events.SoundLoadFailed, soundID, url)
		ev.Error = err.Error()
		e.emit(ev)
		return fmt.Errorf("failed to load %s: %w", soundID, err)
	}

	e.Register(soundID, src)
	slog.Info("Sound loaded", "soundId", soundID, "location", url)
	e.emit(events.New(events.SoundLoaded, soundID, url))
	return nil
}

// Unload stops soundID if it is playing and forgets its source.
func (e *Engine) Unload(ctx context.Context, soundID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.voices[soundID]; ok {
		v.fadeOut(e.rampSamples(domain.DefaultRampMs))
		delete(e.voices, soundID)
	}
	delete(e.sounds, soundID)
	return nil
}

// Play starts soundID at gain volume, fading in over one ramp. A sound that
// is already playing restarts.
func (e *Engine) Play(ctx context.Context, soundID string, volume float64, loop bool) error {
	if err := e.ensureLoaded(ctx, soundID); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.sounds[soundID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSoundNotLoaded, soundID)
	}

	ramp := e.rampSamples(domain.DefaultRampMs)
	if old, ok := e.voices[soundID]; ok {
		old.fadeOut(ramp)
	}

	v := newVoice(soundID, src.Open(), loop)
	v.rampTo(volume, ramp)
	e.voices[soundID] = v
	e.mixer.Add(v)
	return nil
}

func (e *Engine) Stop(ctx context.Context, soundID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.voices[soundID]
	if !ok {
		return nil
	}
	v.fadeOut(e.rampSamples(domain.DefaultRampMs))
	delete(e.voices, soundID)
	return nil
}

func (e *Engine) StopAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ramp := e.rampSamples(domain.DefaultRampMs)
	for _, v := range e.voices {
		v.fadeOut(ramp)
	}
	clear(e.voices)
	return nil
}

// SetVolume ramps a playing sound to a new gain. A Level ramps over one
// default ramp; a GainPacket uses its own ramp duration.
func (e *Engine) SetVolume(ctx context.Context, soundID string, volume domain.VolumeCommand) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.voices[soundID]
	if !ok {
		return fmt.Errorf("%w: %s", audio.ErrSoundNotActive, soundID)
	}

	switch cmd := volume.(type) {
	case domain.Level:
		v.rampTo(float64(cmd), e.rampSamples(domain.DefaultRampMs))
	case domain.GainPacket:
		v.rampTo(cmd.TargetGain, e.rampSamples(cmd.RampDurationMs))
	default:
		return fmt.Errorf("%w: %T", audio.ErrUnsupportedCommand, volume)
	}
	return nil
}

// SetMasterVolume scales the whole mix by volume (0.0-1.0).
func (e *Engine) SetMasterVolume(ctx context.Context, volume float64, opts audio.MasterOptions) error {
	if math.IsNaN(volume) {
		volume = 0
	}
	volume = min(max(volume, 0), 1)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.masterGain = volume
	// effects.Volume multiplies by Base^Volume; log2(0) is -Inf so zero
	// is expressed as Silent.
	if volume <= 0 {
		e.master.Volume = 0
		e.master.Silent = true
	} else {
		e.master.Volume = math.Log2(volume)
		e.master.Silent = false
	}
	return nil
}

// MasterVolume returns the master gain.
func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.masterGain
}

// Initialize opens the output sink and starts pumping audio to it.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	sink, err := e.openSink(e.cfg.Sink, e.cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to open audio sink: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		sink.Close()
		return nil
	}
	e.sink = sink
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.pump(sink, e.stop, e.done)

	slog.Info("Audio engine started", "sink", sink.Name(), "sampleRate", e.cfg.SampleRate, "buffer", e.cfg.BufferDuration)
	return nil
}

// Resume restarts output after the sink went away.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running {
		return nil
	}

	if err := e.Close(); err != nil {
		slog.Warn("Failed to close previous sink", "error", err)
	}
	return e.Initialize(ctx)
}

// Close stops the pump and closes the sink. Voices and sounds are kept.
func (e *Engine) Close() error {
	e.mu.Lock()
	stop, done, sink := e.stop, e.done, e.sink
	e.stop, e.done, e.sink = nil, nil, nil
	e.running = false
	e.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if sink != nil {
		return sink.Close()
	}
	return nil
}

func (e *Engine) ServiceStatus(ctx context.Context) (audio.ServiceStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return audio.ServiceStatus{
		IsRunning:          e.running,
		IsPlaying:          e.running && len(e.voices) > 0,
		TracksPlayingCount: len(e.voices),
	}, nil
}

// ActiveSounds returns the ids of playing sounds, sorted.
func (e *Engine) ActiveSounds(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.voices))
	for id := range e.voices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stream fills samples with the next block of the mix. Voices whose source
// ran out are removed and reported as PlaybackTerminated.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	e.mu.Lock()
	e.master.Stream(samples)
	var ended []string
	for id, v := range e.voices {
		if v.finished {
			delete(e.voices, id)
			ended = append(ended, id)
		}
	}
	e.mu.Unlock()

	sort.Strings(ended)
	for _, id := range ended {
		slog.Debug("Sound finished", "soundId", id)
		e.emit(events.New(events.PlaybackTerminated, id, "ended"))
	}
	return len(samples), true
}

func (e *Engine) Err() error { return nil }

func (e *Engine) pump(sink Sink, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.BufferDuration)
	defer ticker.Stop()

	frames := e.format.SampleRate.N(e.cfg.BufferDuration)
	buf := make([][2]float64, frames)
	out := make([]byte, frames*4)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Stream(buf)
			floatToBytes(buf, out)
			if _, err := sink.Write(out); err != nil {
				slog.Error("Audio sink failed, output stopped", "sink", sink.Name(), "error", err)
				e.mu.Lock()
				e.running = false
				e.mu.Unlock()
				return
			}
		}
	}
}

func (e *Engine) ensureLoaded(ctx context.Context, soundID string) error {
	e.mu.Lock()
	_, loaded := e.sounds[soundID]
	e.mu.Unlock()
	if loaded {
		return nil
	}

	location, ok := e.cfg.Sounds[soundID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSoundNotLoaded, soundID)
	}
	return e.Load(ctx, soundID, location)
}

func (e *Engine) emit(ev events.Event) {
	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

func (e *Engine) rampSamples(ms int) int {
	if ms <= 0 {
		return 0
	}
	return e.format.SampleRate.N(time.Duration(ms) * time.Millisecond)
}
