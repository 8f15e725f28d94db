package downloader

import (
	"fmt"
)

// GetDownloader returns the appropriate downloader for the given URL
func GetDownloader(url string) (Downloader, error) {
	fileDownloader := NewFileDownloader()
	if fileDownloader.SupportsURL(url) {
		return fileDownloader, nil
	}

	httpDownloader := NewHTTPDownloader()
	if httpDownloader.SupportsURL(url) {
		return httpDownloader, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
}
