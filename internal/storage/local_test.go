package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalFileStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalFileStorage(filepath.Join(dir, "output"), filepath.Join(dir, "temp"))
	require.NoError(t, err)
	return s
}

func writeKey(t *testing.T, s Storage, key, content string) {
	t.Helper()
	w, err := s.GetWriter(key)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestLocalWriteAndRead(t *testing.T) {
	s := newTestStorage(t)

	writeKey(t, s, "renders/a/b.wav", "RIFF")

	assert.True(t, s.FileExists("renders/a/b.wav"))
	r, err := s.GetReader("renders/a/b.wav")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
}

func TestLocalMissingKey(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetReader("mixes/nope.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete("mixes/nope.json"), ErrNotFound)
	assert.False(t, s.FileExists("mixes/nope.json"))
}

func TestLocalListFiles(t *testing.T) {
	s := newTestStorage(t)
	writeKey(t, s, "mixes/rain.json", "{}")
	writeKey(t, s, "mixes/river.json", "{}")
	writeKey(t, s, "mixes/fire.json", "{}")
	writeKey(t, s, "mixes/nested/deep.json", "{}")

	tests := []struct {
		name    string
		dir     string
		pattern string
		want    []string
	}{
		{"all files", "mixes", "", []string{"mixes/fire.json", "mixes/rain.json", "mixes/river.json"}},
		{"prefix", "mixes", "ri", []string{"mixes/river.json"}},
		{"missing dir", "renders", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListFiles(tt.dir, tt.pattern)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestLocalUploadFileMovesIntoTree(t *testing.T) {
	s := newTestStorage(t)
	tmp := s.TempPath("job.wav")
	require.NoError(t, os.WriteFile(tmp, []byte("audio"), 0o644))

	location, err := s.UploadFile(tmp, "renders/job.wav")

	require.NoError(t, err)
	assert.FileExists(t, location)
	assert.NoFileExists(t, tmp)
	assert.True(t, s.FileExists("renders/job.wav"))
}

func TestLocalCleanupEmptiesTempDir(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, os.WriteFile(s.TempPath("a.wav"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(s.TempPath("sub"), 0o755))

	require.NoError(t, s.Cleanup())

	entries, err := os.ReadDir(filepath.Dir(s.TempPath("a.wav")))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
