package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
)

// GCSSink writes archive objects to a Google Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
}

// NewGCSSink constructs a sink for the given bucket.
func NewGCSSink(client *storage.Client, bucket string) *GCSSink {
	if client == nil {
		panic("gcs sink requires client")
	}
	if bucket == "" {
		panic("gcs sink requires bucket")
	}
	return &GCSSink{client: client, bucket: bucket}
}

func (s *GCSSink) Write(ctx context.Context, key string, contents []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	if _, err := w.Write(contents); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

// LocalSink writes archive objects under a base directory. Used for local
// development and tests.
type LocalSink struct {
	basePath string
}

// NewLocalSink constructs a filesystem-backed sink.
func NewLocalSink(basePath string) *LocalSink {
	if basePath == "" {
		panic("local sink requires basePath")
	}
	return &LocalSink{basePath: basePath}
}

func (s *LocalSink) Write(ctx context.Context, key string, contents []byte) error {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.WriteFile(fullPath, contents, 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	return nil
}

var (
	_ Sink = (*GCSSink)(nil)
	_ Sink = (*LocalSink)(nil)
)
