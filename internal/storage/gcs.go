package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsWriteTimeout = 2 * time.Minute

// gcsStorage implements Storage on a Google Cloud Storage bucket
type gcsStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage creates a GCS-backed storage. An empty credentialsFile uses
// the application default credentials.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*gcsStorage, error) {
	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &gcsStorage{
		client: client,
		bucket: bucket,
	}, nil
}

// Put uploads the object, overwriting any existing one
func (s *gcsStorage) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(p).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// Open opens the object for reading
func (s *gcsStorage) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}

	reader, err := s.client.Bucket(s.bucket).Object(p).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %q: %w", p, err)
	}
	return reader, nil
}

// Delete removes the object
func (s *gcsStorage) Delete(ctx context.Context, objectPath string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}

	err = s.client.Bucket(s.bucket).Object(p).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", p, s.bucket, err)
	}
	return nil
}

// SignedURL returns a V4 signed GET URL
func (s *gcsStorage) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	signed, err := s.client.Bucket(s.bucket).SignedURL(p, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign GCS object %q: %w", p, err)
	}
	return signed, nil
}

// PublicURL returns the unsigned object URL
func (s *gcsStorage) PublicURL(objectPath string) string {
	p, _ := cleanPath(objectPath)
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, (&url.URL{Path: p}).EscapedPath())
}

// Close releases the underlying client
func (s *gcsStorage) Close() error {
	return s.client.Close()
}
