package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/ambient-mixer/config"
)

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFromConfig(context.Background(), config.StorageConfig{
		Type:      "local",
		OutputDir: filepath.Join(dir, "out"),
		TempDir:   filepath.Join(dir, "tmp"),
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalFileStorage{}, store)
	assert.Equal(t, filepath.Join(dir, "tmp", "x.wav"), store.TempPath("x.wav"))

	_, err = NewFromConfig(context.Background(), config.StorageConfig{Type: "s3"})
	assert.Error(t, err)
}
