package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Output formats the transcoder can produce, with their FFmpeg codec and
// muxer.
var supportedFormats = map[string]struct {
	codec  string
	format string
}{
	"mp3":  {"libmp3lame", "mp3"},
	"m4a":  {"aac", "mp4"},
	"wav":  {"pcm_s16le", "wav"},
	"flac": {"flac", "flac"},
}

const defaultAudioBitrate = "192k"

var (
	ErrFileNotFound     = fmt.Errorf("file not found")
	ErrFileEmpty        = fmt.Errorf("file is empty")
	ErrInvalidPath      = fmt.Errorf("invalid path")
	ErrInvalidExtension = fmt.Errorf("invalid file extension")
)

// ffmpegError wraps FFmpeg command errors with additional context
type ffmpegError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *ffmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s\nCommand: %s\nOutput: %s", e.wrapped, e.cmd, e.output)
}

func (e *ffmpegError) Unwrap() error {
	return e.wrapped
}

// newFFmpegError creates a new ffmpegError with truncated command output
func newFFmpegError(cmd *exec.Cmd, output []byte, err error) error {
	cmdStr := cmd.String()
	if len(cmdStr) > 200 {
		cmdStr = cmdStr[:200] + "..."
	}
	out := string(output)
	if len(out) > 2000 {
		out = out[len(out)-2000:]
	}
	return &ffmpegError{
		cmd:     cmdStr,
		output:  out,
		wrapped: err,
	}
}

// Transcoder converts between audio formats with the ffmpeg binary.
type Transcoder struct {
	bin string
}

// NewTranscoder uses bin, or "ffmpeg" from PATH when bin is empty.
func NewTranscoder(bin string) *Transcoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Transcoder{bin: bin}
}

// Available reports whether the ffmpeg binary can be found.
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.bin)
	return err == nil
}

// IsSupportedFormat reports whether Convert can produce ext.
func IsSupportedFormat(ext string) bool {
	_, ok := supportedFormats[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

func validateFile(path string) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("unable to access file: %s: %w", path, err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidPath, path)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrFileEmpty, path)
	}

	return nil
}

// ToWAV decodes any input ffmpeg understands into 16-bit stereo PCM WAV at
// sampleRate.
func (t *Transcoder) ToWAV(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	if err := validateFile(inputPath); err != nil {
		return fmt.Errorf("transcoding failed: %w", err)
	}

	slog.Debug("Transcoding to wav", "input", inputPath, "output", outputPath, "sampleRate", sampleRate)

	return t.run(ctx, outputPath,
		"-y",
		"-i", inputPath,
		"-map", "0:a:0",
		"-ac", "2",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outputPath,
	)
}

// Convert re-encodes a rendered WAV into the format named by outputPath's
// extension.
func (t *Transcoder) Convert(ctx context.Context, inputPath, outputPath string) error {
	if err := validateFile(inputPath); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(outputPath), "."))
	codecInfo, ok := supportedFormats[ext]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, ext)
	}

	slog.Debug("Converting render", "input", inputPath, "output", outputPath, "codec", codecInfo.codec)

	args := []string{
		"-y",
		"-i", inputPath,
		"-map", "0:a",
		"-c:a", codecInfo.codec,
		"-f", codecInfo.format,
	}
	if ext == "mp3" || ext == "m4a" {
		args = append(args, "-b:a", defaultAudioBitrate)
	}
	if ext == "m4a" {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, outputPath)

	return t.run(ctx, outputPath, args...)
}

func (t *Transcoder) run(ctx context.Context, outputPath string, args ...string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newFFmpegError(cmd, output, err)
	}
	return nil
}
