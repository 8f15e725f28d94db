package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaki95/ambient-mixer/internal/audio"
	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/engine"
	"github.com/jaki95/ambient-mixer/internal/storage"
)

const renderKeyPrefix = "renders"

// Renderer bounces a mix to an audio file. Every render gets its own offline
// engine, synchronised through the same port and SyncMix path as live
// playback, so a render sounds like the mix it was taken from.
type Renderer struct {
	cfg        engine.Config
	storage    storage.Storage
	transcoder *engine.Transcoder
	sources    map[string]engine.Source
}

// NewRenderer renders sounds from cfg.Sounds and publishes results to store.
func NewRenderer(cfg engine.Config, store storage.Storage) *Renderer {
	cfg.Sink = engine.SinkNull
	return &Renderer{
		cfg:        cfg,
		storage:    store,
		transcoder: engine.NewTranscoder(cfg.FFmpegPath),
		sources:    make(map[string]engine.Source),
	}
}

// Register makes src available to every render as soundID.
func (r *Renderer) Register(soundID string, src engine.Source) {
	r.sources[soundID] = src
}

// Render writes d of mix in format (wav, mp3, flac or m4a) and returns the
// published location. progress receives rendered and total frame counts.
func (r *Renderer) Render(ctx context.Context, mix *domain.Mix, d time.Duration, format string, progress engine.ProgressFunc) (string, error) {
	if err := mix.EnsureNotEmpty(); err != nil {
		return "", err
	}

	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		format = "wav"
	}
	if !engine.IsSupportedFormat(format) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if format != "wav" && !r.transcoder.Available() {
		return "", fmt.Errorf("%w: %s", ErrTranscoderMissing, format)
	}

	eng := engine.New(r.cfg)
	defer eng.Close()
	for id, src := range r.sources {
		eng.Register(id, src)
	}

	report := NewSyncMix(audio.NewPort(eng)).Execute(ctx, mix)
	if failed := report.Failed(); len(failed) > 0 {
		errs := make([]error, 0, len(failed))
		for _, f := range failed {
			errs = append(errs, fmt.Errorf("%s %s: %w", f.Op, f.SoundID, f.Err))
		}
		return "", fmt.Errorf("%w: %w", ErrSyncFailed, errors.Join(errs...))
	}

	base := fmt.Sprintf("%s-%s", mix.ID(), uuid.NewString()[:8])
	wavPath := r.storage.TempPath(base + ".wav")

	slog.Info("Rendering mix", "mixId", mix.ID(), "tracks", mix.TrackCount(), "duration", d, "format", format)

	if err := r.renderWAV(ctx, eng, wavPath, d, progress); err != nil {
		os.Remove(wavPath)
		return "", err
	}

	outPath := wavPath
	if format != "wav" {
		outPath = r.storage.TempPath(base + "." + format)
		err := r.transcoder.Convert(ctx, wavPath, outPath)
		os.Remove(wavPath)
		if err != nil {
			os.Remove(outPath)
			return "", fmt.Errorf("failed to convert render to %s: %w", format, err)
		}
	}

	location, err := r.storage.UploadFile(outPath, fmt.Sprintf("%s/%s.%s", renderKeyPrefix, base, format))
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("failed to publish render: %w", err)
	}

	slog.Info("Render published", "mixId", mix.ID(), "location", location)
	return location, nil
}

func (r *Renderer) renderWAV(ctx context.Context, eng *engine.Engine, path string, d time.Duration, progress engine.ProgressFunc) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := eng.Render(ctx, f, d, progress); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
