package downloader

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileDownloader resolves local paths and file:// URLs. Nothing is copied.
type FileDownloader struct{}

func NewFileDownloader() *FileDownloader {
	return &FileDownloader{}
}

// SupportsURL accepts file:// URLs and anything without a URL scheme
func (d *FileDownloader) SupportsURL(url string) bool {
	return strings.HasPrefix(url, "file://") || !strings.Contains(url, "://")
}

func (d *FileDownloader) Download(ctx context.Context, url, outputDir string) (string, error) {
	path := strings.TrimPrefix(url, "file://")

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("unable to access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	if err := validateAudioFile(path); err != nil {
		return "", err
	}
	return path, nil
}
