package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sokinpui/linepatch/internal/ui"
)

// PathResolver finds absolute paths for files.
type PathResolver struct {
	lookupDirs []string
}

// NewPathResolver creates a new PathResolver. With no lookup directories the
// current working directory is used.
func NewPathResolver(lookupDirs []string) *PathResolver {
	if len(lookupDirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			// This is unlikely to fail, but if it does, it's a critical error.
			panic(fmt.Sprintf("could not get current working directory: %v", err))
		}
		return &PathResolver{lookupDirs: []string{wd}}
	}

	absDirs := make([]string, 0, len(lookupDirs))
	for _, dir := range lookupDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			ui.Warning("Invalid lookup directory '%s', ignoring: %v", dir, err)
			continue
		}
		absDirs = append(absDirs, abs)
	}
	return &PathResolver{lookupDirs: absDirs}
}

// ResolveExisting finds an absolute path only if the file exists.
// Absolute paths are checked as given.
func (r *PathResolver) ResolveExisting(path string) string {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	for _, dir := range r.lookupDirs {
		absPath := filepath.Join(dir, path)
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}
	return ""
}

// Resolve is like ResolveExisting but fails when the file cannot be found
// in any lookup directory.
func (r *PathResolver) Resolve(path string) (string, error) {
	if resolved := r.ResolveExisting(path); resolved != "" {
		return resolved, nil
	}
	return "", fmt.Errorf("file not found: %s: %w", path, os.ErrNotExist)
}

// GetFileSHA256 returns the hex SHA-256 of a file's content.
func GetFileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
