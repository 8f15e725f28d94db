// Package downloader fetches sound assets so the engine can decode them from
// a local file.
package downloader

import (
	"context"
)

// Downloader fetches a sound asset.
type Downloader interface {
	// Download stores the asset at url in outputDir and returns the path of
	// the local file. Implementations may return the original path when the
	// asset is already local.
	Download(ctx context.Context, url, outputDir string) (string, error)

	// SupportsURL checks if this downloader can handle the given URL
	SupportsURL(url string) bool
}
