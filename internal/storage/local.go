package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStorage implements the Storage interface for local filesystem
type LocalFileStorage struct {
	rootDir string
	tempDir string
}

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(rootDir, tempDir string) (*LocalFileStorage, error) {
	for _, dir := range []string{rootDir, tempDir} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &LocalFileStorage{
		rootDir: rootDir,
		tempDir: tempDir,
	}, nil
}

func (s *LocalFileStorage) path(key string) string {
	return filepath.Join(s.rootDir, filepath.FromSlash(strings.TrimPrefix(key, "/")))
}

// GetReader returns a reader for the specified key
func (s *LocalFileStorage) GetReader(key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

// GetWriter returns a writer for the specified key, creating parent
// directories as needed
func (s *LocalFileStorage) GetWriter(key string) (io.WriteCloser, error) {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	return os.Create(path)
}

// FileExists checks if a file exists
func (s *LocalFileStorage) FileExists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// ListFiles lists files in a directory matching a prefix pattern
func (s *LocalFileStorage) ListFiles(dir string, pattern string) ([]string, error) {
	files, err := os.ReadDir(s.path(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if pattern != "" && !strings.HasPrefix(file.Name(), pattern) {
			continue
		}
		results = append(results, joinKey(dir, file.Name()))
	}

	return results, nil
}

// Delete removes the file stored under key
func (s *LocalFileStorage) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

// UploadFile moves a local work file into the storage tree
func (s *LocalFileStorage) UploadFile(localPath, key string) (string, error) {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := os.Rename(localPath, dst); err == nil {
		return dst, nil
	}

	// Rename fails across devices; fall back to a copy.
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy %s: %w", localPath, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	_ = os.Remove(localPath)
	return dst, nil
}

// TempPath returns a path in the temp directory
func (s *LocalFileStorage) TempPath(name string) string {
	return filepath.Join(s.tempDir, name)
}

// Cleanup removes temporary files
func (s *LocalFileStorage) Cleanup() error {
	return cleanTempDir(s.tempDir)
}

func joinKey(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func cleanTempDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read temp directory: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	return nil
}
