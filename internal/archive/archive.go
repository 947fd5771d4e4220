// Package archive packs a session directory into a single compressed
// file for sharing or backup.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Archive compresses the files in sessionDir into destPath as a
// zstd-compressed tarball. Returns the written path.
func Archive(sessionDir, destPath string) (string, error) {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return "", fmt.Errorf("failed to read session directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() { _ = dest.Close() }()

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	tw := tar.NewWriter(encoder)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addFile(tw, filepath.Join(sessionDir, entry.Name()), entry.Name()); err != nil {
			_ = tw.Close()
			_ = encoder.Close()
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		_ = encoder.Close()
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize compression: %w", err)
	}
	return destPath, nil
}

func addFile(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", name, err)
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return nil
}

// Extract unpacks an archive created by Archive into destDir.
func Extract(archivePath, destDir string) error {
	src, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = src.Close() }()

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tr := tar.NewReader(decoder)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		// Entry names are flat file names written by Archive.
		name := filepath.Base(filepath.Clean(header.Name))
		if name == "." || name == ".." || strings.Contains(name, string(os.PathSeparator)) {
			continue
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		out, err := os.Create(filepath.Join(destDir, name))
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return fmt.Errorf("failed to extract %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", name, err)
		}
	}
}

// DefaultArchiveName returns the archive file name for a session ID.
func DefaultArchiveName(sessionID string) string {
	return sessionID + ".tar.zst"
}
