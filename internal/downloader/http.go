package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPDownloader handles downloading from generic HTTP URLs
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// SupportsURL checks if the URL is an HTTP/HTTPS URL
func (d *HTTPDownloader) SupportsURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Download fetches the asset at downloadURL into outputDir
func (d *HTTPDownloader) Download(ctx context.Context, downloadURL, outputDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "ambient-mixer/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w with status: %d", ErrBadStatus, resp.StatusCode)
	}

	filename := filenameFor(downloadURL, resp.Header.Get("Content-Disposition"))

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, filename)
	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	bytesWritten, err := io.Copy(outFile, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if bytesWritten == 0 {
		return "", ErrEmptyFile
	}

	slog.Info("Downloaded sound asset", "path", outputPath, "size", bytesWritten, "filename", filename)

	if err := validateAudioFile(outputPath); err != nil {
		return "", fmt.Errorf("downloaded file validation failed: %w", err)
	}

	return outputPath, nil
}

// filenameFor picks a local file name from Content-Disposition or the URL
// path, defaulting to a .wav extension.
func filenameFor(downloadURL, contentDisp string) string {
	filename := "sound"
	if idx := strings.Index(contentDisp, "filename="); idx != -1 {
		filename = strings.Trim(contentDisp[idx+9:], "\"; ")
	} else if u, err := url.Parse(downloadURL); err == nil && u.Path != "" {
		if name := filepath.Base(u.Path); name != "" && name != "." && name != "/" {
			filename = name
		}
	}
	filename = filepath.Base(filename)

	if filepath.Ext(filename) == "" {
		filename += ".wav"
	}
	return filename
}

// validateAudioFile checks the file signature so error pages are not handed
// to the decoder
func validateAudioFile(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file for validation: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if n < 4 {
		return fmt.Errorf("%w: file too small", ErrNotAudio)
	}

	header := buffer[:n]

	switch {
	case header[0] == 0xFF && (header[1]&0xE0) == 0xE0:
		return nil // MP3 frame header
	case string(header[:3]) == "ID3":
		return nil
	case string(header[:4]) == "RIFF":
		return nil
	case string(header[:4]) == "fLaC":
		return nil
	case string(header[:4]) == "OggS":
		return nil
	case len(header) >= 8 && string(header[4:8]) == "ftyp":
		return nil // M4A/MP4
	}

	headerStr := strings.ToLower(string(header[:min(len(header), 100)]))
	if strings.Contains(headerStr, "<html") || strings.Contains(headerStr, "<!doctype") {
		return fmt.Errorf("%w: file appears to be HTML - check the URL", ErrNotAudio)
	}

	// Let ffmpeg have a go at anything else.
	slog.Warn("Could not verify audio file format, proceeding anyway", "path", filePath, "header", fmt.Sprintf("%x", header[:min(len(header), 16)]))
	return nil
}
