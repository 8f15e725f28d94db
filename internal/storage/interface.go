package storage

import (
	"io"
)

// Storage keeps saved mixes and rendered audio under slash separated keys
// such as "mixes/evening.json" or "renders/<job>.wav". Work files that need
// seeking are written to TempPath first and published with UploadFile.
type Storage interface {
	GetReader(key string) (io.ReadCloser, error)

	GetWriter(key string) (io.WriteCloser, error)

	FileExists(key string) bool

	// ListFiles returns the keys directly under dir whose base name starts
	// with pattern.
	ListFiles(dir string, pattern string) ([]string, error)

	Delete(key string) error

	// UploadFile copies a local file to key and returns where it can be
	// fetched from.
	UploadFile(localPath, key string) (string, error)

	TempPath(name string) string

	Cleanup() error
}
