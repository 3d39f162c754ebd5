// Package storage keeps media objects (videos, narration, answer images)
// and hands out time-limited URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when no object exists at the given path
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidPath is returned for empty paths or paths escaping the storage root
var ErrInvalidPath = errors.New("invalid object path")

// Storage stores media objects addressed by slash-separated paths
type Storage interface {
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectPath string) error
	SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
	PublicURL(objectPath string) string
}

// TokenSigner issues short-lived tokens bound to an object path
type TokenSigner interface {
	GenerateMediaToken(objectPath string, ttl time.Duration) (string, error)
}

// localStorage implements Storage using the local filesystem.
// Signed URLs point at the API's media route and carry a media token.
type localStorage struct {
	basePath string
	baseURL  string
	signer   TokenSigner
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath, baseURL string, signer TokenSigner) *localStorage {
	return &localStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		signer:   signer,
	}
}

// cleanPath normalises an object path and rejects traversal outside the root
func cleanPath(objectPath string) (string, error) {
	p := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(objectPath)), "/")
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}

// generatePath maps an object path onto the filesystem
func (s *localStorage) generatePath(objectPath string) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(p)), nil
}

// Put writes the object, replacing any existing file at the same path
func (s *localStorage) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error {
	fullPath, err := s.generatePath(objectPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// Open opens an object for reading
func (s *localStorage) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	return s.OpenFile(objectPath)
}

// OpenFile opens an object and returns *os.File, which supports seeking for range requests
func (s *localStorage) OpenFile(objectPath string) (*os.File, error) {
	fullPath, err := s.generatePath(objectPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes an object
func (s *localStorage) Delete(ctx context.Context, objectPath string) error {
	fullPath, err := s.generatePath(objectPath)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SignedURL returns {baseURL}/media/{path}?token={media token}
func (s *localStorage) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	token, err := s.signer.GenerateMediaToken(p, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign media token: %w", err)
	}

	return s.PublicURL(p) + "?token=" + url.QueryEscape(token), nil
}

// PublicURL returns the unsigned media URL of an object
func (s *localStorage) PublicURL(objectPath string) string {
	p, _ := cleanPath(objectPath)
	return s.baseURL + "/media/" + (&url.URL{Path: p}).EscapedPath()
}
