package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/jaki95/ambient-mixer/internal/downloader"
)

// resampleQuality is passed to beep.Resample; 4 is beep's recommended
// default.
const resampleQuality = 4

// Loader turns a location into a Source. Locations are either generated
// sounds ("noise:pink", "tone:440") or audio files given as a path, a
// file:// URL or an http(s) URL. Files that are not WAV are transcoded with
// ffmpeg first.
type Loader struct {
	format     beep.Format
	workDir    string
	transcoder *Transcoder
	resolve    func(url string) (downloader.Downloader, error)
}

// NewLoader creates a loader decoding into format, keeping downloads and
// transcodes in workDir.
func NewLoader(format beep.Format, workDir string, transcoder *Transcoder) *Loader {
	if transcoder == nil {
		transcoder = NewTranscoder("")
	}
	return &Loader{
		format:     format,
		workDir:    workDir,
		transcoder: transcoder,
		resolve:    downloader.GetDownloader,
	}
}

func (l *Loader) Load(ctx context.Context, location string) (Source, error) {
	if src, ok, err := ParseGenerated(location, l.format.SampleRate); ok {
		return src, err
	}

	d, err := l.resolve(location)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(l.workDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	path, err := d.Download(ctx, location, l.workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}

	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		wavPath := filepath.Join(l.workDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".decoded.wav")
		if err := l.transcoder.ToWAV(ctx, path, wavPath, int(l.format.SampleRate)); err != nil {
			return nil, err
		}
		defer os.Remove(wavPath)
		path = wavPath
	}

	return l.decodeWAV(path)
}

func (l *Loader) decodeWAV(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if format.SampleRate != l.format.SampleRate {
		slog.Debug("Resampling sound", "path", path, "from", format.SampleRate, "to", l.format.SampleRate)
		s = beep.Resample(resampleQuality, format.SampleRate, l.format.SampleRate, s)
	}

	buf := beep.NewBuffer(l.format)
	buf.Append(s)
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no samples", ErrFileEmpty, path)
	}
	return &BufferSource{Buffer: buf}, nil
}
