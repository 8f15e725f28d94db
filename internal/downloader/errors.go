package downloader

import "errors"

var (
	ErrUnsupportedURL = errors.New("no downloader available for URL")
	ErrEmptyFile      = errors.New("downloaded file is empty")
	ErrNotAudio       = errors.New("file does not look like audio")
	ErrBadStatus      = errors.New("download failed")
)
