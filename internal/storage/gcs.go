package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage implements the Storage interface for Google Cloud Storage
type GCSStorage struct {
	client        *storage.Client
	bucket        string
	tempDir       string
	objectPrefix  string
	ctx           context.Context
	publicBaseURL string
}

// NewGCSStorage creates a new GCSStorage instance
func NewGCSStorage(ctx context.Context, bucketName, objectPrefix, tempDir, credentialsFile, publicBaseURL string) (*GCSStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		// Use application default credentials
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &GCSStorage{
		client:        client,
		bucket:        bucketName,
		tempDir:       tempDir,
		objectPrefix:  strings.Trim(objectPrefix, "/"),
		ctx:           ctx,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *GCSStorage) objectName(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.objectPrefix != "" {
		return s.objectPrefix + "/" + key
	}
	return key
}

func (s *GCSStorage) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.objectName(key))
}

// GetReader returns a reader for an object
func (s *GCSStorage) GetReader(key string) (io.ReadCloser, error) {
	r, err := s.object(key).NewReader(s.ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return r, err
}

// GetWriter returns a writer for an object. The object is created when the
// writer is closed.
func (s *GCSStorage) GetWriter(key string) (io.WriteCloser, error) {
	w := s.object(key).NewWriter(s.ctx)
	if strings.HasSuffix(key, ".json") {
		w.ContentType = "application/json"
	}
	return w, nil
}

// FileExists checks if an object exists
func (s *GCSStorage) FileExists(key string) bool {
	_, err := s.object(key).Attrs(s.ctx)
	return err == nil
}

// ListFiles lists objects directly under dir matching a prefix pattern
func (s *GCSStorage) ListFiles(dir string, pattern string) ([]string, error) {
	dir = strings.Trim(dir, "/")
	prefix := s.objectName(dir)
	if prefix != "" {
		prefix += "/"
	}

	it := s.client.Bucket(s.bucket).Objects(s.ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}

		// Synthetic directory entries only carry a prefix.
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		fileName := path.Base(attrs.Name)
		if pattern != "" && !strings.HasPrefix(fileName, pattern) {
			continue
		}

		results = append(results, joinKey(dir, fileName))
	}

	return results, nil
}

// Delete removes an object
func (s *GCSStorage) Delete(key string) error {
	err := s.object(key).Delete(s.ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

// UploadFile uploads a local file to GCS and removes the local copy
func (s *GCSStorage) UploadFile(localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer f.Close()

	objectName := s.objectName(key)

	ctx, cancel := context.WithTimeout(s.ctx, time.Minute*5)
	defer cancel()

	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err = io.Copy(wc, f); err != nil {
		return "", fmt.Errorf("failed to copy file to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	_ = os.Remove(localPath)

	// Return the public URL if available, or just the object name
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, objectName), nil
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// TempPath returns a path in the local temp directory
func (s *GCSStorage) TempPath(name string) string {
	return filepath.Join(s.tempDir, name)
}

// Cleanup removes temporary files
func (s *GCSStorage) Cleanup() error {
	return cleanTempDir(s.tempDir)
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
