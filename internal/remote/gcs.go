// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tomtom215/tabularium/internal/config"
)

// GCSStore is a Store backed by a Google Cloud Storage bucket.
//
// Document names are joined to the configured prefix to form object names.
// Uploads go through the object writer, which only publishes the object
// once Close succeeds, so partial uploads are never visible.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a GCS-backed store.
//
// When cfg.CredentialsFile is empty the client uses Application Default
// Credentials, which covers workload identity and local gcloud auth.
func NewGCSStore(ctx context.Context, cfg config.GCSRemoteConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("remote: gcs bucket must not be empty")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote: failed to create gcs client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// objectName joins the store prefix and document name.
func (s *GCSStore) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// object returns the handle for the named document.
func (s *GCSStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.objectName(name))
}

// Find returns metadata for the named document, or ErrNotFound.
func (s *GCSStore) Find(ctx context.Context, name string) (*Object, error) {
	attrs, err := s.object(name).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("remote: attrs %s: %w", name, err)
	}
	return &Object{Name: name, Size: attrs.Size, Updated: attrs.Updated}, nil
}

// Upload replaces the named document with the contents of r.
func (s *GCSStore) Upload(ctx context.Context, name string, r io.Reader) error {
	w := s.object(name).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close() //nolint:errcheck // Abandoned write, Close error is secondary
		return fmt.Errorf("remote: failed to write %s: %w", name, err)
	}
	// Close finalizes the upload; the object does not exist until it returns.
	if err := w.Close(); err != nil {
		return fmt.Errorf("remote: failed to publish %s: %w", name, err)
	}
	return nil
}

// Delete removes the named document. The storage library does not always
// map a 404 to ErrObjectNotExist on delete, so both forms are tolerated.
func (s *GCSStore) Delete(ctx context.Context, name string) error {
	err := s.object(name).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("remote: failed to delete %s: %w", name, err)
}

// ReadText returns the full content of the named document.
func (s *GCSStore) ReadText(ctx context.Context, name string) (string, error) {
	r, err := s.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("remote: open %s: %w", name, err)
	}
	defer r.Close() //nolint:errcheck // Read side, content already consumed

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("remote: read %s: %w", name, err)
	}
	return string(data), nil
}

// List returns all documents under prefix. GCS already yields objects in
// lexicographic name order, which is the Store contract's sort order.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	full := s.objectName(prefix)
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: full})

	var objects []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("remote: list %q: %w", prefix, err)
		}
		name := attrs.Name
		if s.prefix != "" {
			name = strings.TrimPrefix(name, s.prefix+"/")
		}
		objects = append(objects, Object{Name: name, Size: attrs.Size, Updated: attrs.Updated})
	}
	return objects, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
