package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/engine"
	"github.com/jaki95/ambient-mixer/internal/storage"
)

func newTestRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalFileStorage(filepath.Join(root, "data"), filepath.Join(root, "tmp"))
	require.NoError(t, err)

	cfg := engine.Config{
		SampleRate: 8000,
		WorkDir:    filepath.Join(root, "work"),
		Sounds: map[string]string{
			"rain": "noise:pink",
			"hum":  "tone:110",
		},
	}
	return NewRenderer(cfg, store), root
}

func TestRendererWritesWAV(t *testing.T) {
	r, root := newTestRenderer(t)
	mix := buildMix(t, 80,
		domain.Track{ID: "rain", Volume: 60},
		domain.Track{ID: "hum", Volume: 30},
	)

	var lastDone, lastTotal int
	location, err := r.Render(context.Background(), mix, 200*time.Millisecond, "", func(done, total int) {
		lastDone, lastTotal = done, total
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location, filepath.Join(root, "data", renderKeyPrefix)))
	assert.True(t, strings.HasSuffix(location, ".wav"))
	assert.Equal(t, 1600, lastTotal)
	assert.Equal(t, lastTotal, lastDone)

	f, err := os.Open(location)
	require.NoError(t, err)
	defer f.Close()

	s, format, err := wav.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8000, int(format.SampleRate))
	assert.Equal(t, 2, format.NumChannels)
	assert.Equal(t, 1600, s.Len())

	buf := make([][2]float64, 1600)
	n, _ := s.Stream(buf)
	require.Equal(t, 1600, n)
	var peak float64
	for _, frame := range buf {
		peak = max(peak, frame[0], -frame[0])
	}
	assert.Greater(t, peak, 0.0)
	assert.LessOrEqual(t, peak, 1.0)

	tmp, err := os.ReadDir(filepath.Join(root, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmp, "temporary render files are moved out")
}

func TestRendererErrors(t *testing.T) {
	r, _ := newTestRenderer(t)
	valid := buildMix(t, 100, domain.Track{ID: "rain", Volume: 50})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		mix    *domain.Mix
		format string
		want   error
	}{
		{"empty mix", context.Background(), domain.NewMix(), "wav", domain.ErrMixEmpty},
		{"unsupported format", context.Background(), valid, "ogg", ErrUnsupportedFormat},
		{"unknown sound", context.Background(), buildMix(t, 100, domain.Track{ID: "birds", Volume: 50}), "wav", ErrSyncFailed},
		{"cancelled", cancelled, valid, "wav", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(tt.ctx, tt.mix, 100*time.Millisecond, tt.format, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRendererUsesRegisteredSources(t *testing.T) {
	r, _ := newTestRenderer(t)
	src, ok, err := engine.ParseGenerated("noise:brown", 8000)
	require.True(t, ok)
	require.NoError(t, err)
	r.Register("brook", src)

	mix := buildMix(t, 100, domain.Track{ID: "brook", Volume: 40})
	location, err := r.Render(context.Background(), mix, 50*time.Millisecond, "wav", nil)

	require.NoError(t, err)
	assert.FileExists(t, location)
}
