package service

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported render format")
	ErrTranscoderMissing = errors.New("ffmpeg is required for this format")
	ErrSyncFailed        = errors.New("failed to start every track")
)
