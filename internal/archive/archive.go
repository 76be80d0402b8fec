// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

/*
Package archive bundles application state into gzip-compressed tar files.

Archive Structure:

	state-20260825T120000Z.tar.gz
	├── app.db           (configured file, stored at its base name)
	├── config/          (configured directory, walked recursively)
	│   └── settings.yaml
	└── manifest.json    (per-file SHA-256 checksums, always the final entry)

Creation Process:
 1. Set up writers (file -> gzip -> tar)
 2. Walk each configured path, adding regular files
 3. Calculate SHA-256 checksums while copying
 4. Append the manifest as the final entry
 5. Close writers in reverse order

A .sha256 sidecar of the finished archive allows integrity verification
after download without unpacking.
*/
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Manifest records what went into an archive and the checksum of every file.
type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	Sources   []string  `json:"sources"`
	Files     []File    `json:"files"`
	TotalSize int64     `json:"totalSize"`
}

// File is a single archived file.
type File struct {
	Path     string    `json:"path"`   // entry path inside the archive
	Source   string    `json:"source"` // original filesystem path
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
	Checksum string    `json:"checksum"` // hex-encoded SHA-256
}

// Builder creates state archives.
type Builder struct {
	logger zerolog.Logger
}

// NewBuilder creates an archive builder.
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{
		logger: logger.With().Str("component", "archive").Logger(),
	}
}

// writerStack holds the layered writers behind a tar archive.
type writerStack struct {
	tarWriter *tar.Writer
	closers   []io.Closer
}

// Close closes all writers in reverse order, returning the first error encountered.
func (ws *writerStack) Close() error {
	var firstErr error
	for i := len(ws.closers) - 1; i >= 0; i-- {
		if err := ws.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// setupWriters creates the file, compression, and tar writers for an archive.
//
//nolint:gosec // G304: destPath is derived from the configured work directory
func setupWriters(destPath string) (*writerStack, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	gzWriter := gzip.NewWriter(outFile)

	ws := &writerStack{
		closers: []io.Closer{outFile, gzWriter},
	}
	ws.tarWriter = tar.NewWriter(gzWriter)
	ws.closers = append(ws.closers, ws.tarWriter)

	return ws, nil
}

// Create writes a gzip-compressed tar archive of the given paths to destPath
// and returns the manifest describing its contents. Files land at their base
// name; directories are walked recursively and keep their structure under the
// directory's base name. The manifest is appended as the archive's final
// entry, so a partially written archive never carries one.
func (b *Builder) Create(ctx context.Context, destPath string, paths []string) (manifest *Manifest, err error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths to archive")
	}

	ws, err := setupWriters(destPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		closeErr := ws.Close()
		if err == nil {
			err = closeErr
		}
	}()

	manifest = &Manifest{
		CreatedAt: time.Now().UTC(),
		Sources:   append([]string(nil), paths...),
	}

	for _, root := range paths {
		if err := b.addPath(ctx, ws.tarWriter, root, manifest); err != nil {
			return nil, err
		}
	}

	if err := writeManifestEntry(ws.tarWriter, manifest); err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("archive", destPath).
		Int("files", len(manifest.Files)).
		Int64("bytes", manifest.TotalSize).
		Msg("State archive created")

	return manifest, nil
}

// addPath adds one configured path to the archive. Plain files are stored at
// their base name; directories are walked with their structure preserved
// under the directory's base name.
func (b *Builder) addPath(ctx context.Context, tw *tar.Writer, root string, manifest *Manifest) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", root, err)
	}

	base := filepath.Base(root)
	if !info.IsDir() {
		return b.addFile(ctx, tw, root, base, manifest)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("failed to walk %s: %w", path, walkErr)
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			b.logger.Warn().Str("path", path).Msg("Skipping irregular file")
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		return b.addFile(ctx, tw, path, filepath.ToSlash(filepath.Join(base, rel)), manifest)
	})
}

// addFile copies one file into the archive, hashing it on the way through.
//
//nolint:gosec // G304: srcPath comes from the configured state paths
func (b *Builder) addFile(ctx context.Context, tw *tar.Writer, srcPath, entryPath string, manifest *Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", srcPath, err)
	}
	header.Name = entryPath

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", srcPath, err)
	}

	// Calculate checksum while copying
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tw, hasher), file); err != nil {
		return fmt.Errorf("failed to copy %s to archive: %w", srcPath, err)
	}

	manifest.Files = append(manifest.Files, File{
		Path:     entryPath,
		Source:   srcPath,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	})
	manifest.TotalSize += info.Size()

	return nil
}

// writeManifestEntry appends the manifest as the archive's final entry.
func writeManifestEntry(tw *tar.Writer, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	header := &tar.Header{
		Name:    "manifest.json",
		Size:    int64(len(data)),
		Mode:    0o640,
		ModTime: time.Now(),
	}

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ChecksumFile calculates the hex-encoded SHA-256 checksum of a file.
//
//nolint:gosec // G304: path is produced by the archive builder
func ChecksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// WriteChecksumFile writes a sha256sum-compatible sidecar next to the archive
// and returns the sidecar path.
func WriteChecksumFile(archivePath string) (string, error) {
	sum, err := ChecksumFile(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", archivePath, err)
	}

	sidecar := archivePath + ".sha256"
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(archivePath))
	if err := os.WriteFile(sidecar, []byte(line), 0o640); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}

	return sidecar, nil
}
