// Package fileutil provides case-insensitive file lookup over the real file
// system and over any fs.FS.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FindFileCaseInsensitive returns the path of the regular file in dir whose
// name equals filename ignoring case. An exact match wins over a case-folded
// one. The error wraps fs.ErrNotExist when nothing matches.
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, err := match(entries, dir, filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// FindFileCaseInsensitiveFS is FindFileCaseInsensitive for an fs.FS. dir and
// the returned path use forward slashes.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, err := match(entries, dir, filename)
	if err != nil {
		return "", err
	}
	return path.Join(dir, name), nil
}

func match(entries []fs.DirEntry, dir, filename string) (string, error) {
	found := ""
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == filename {
			return filename, nil
		}
		if found == "" && strings.EqualFold(entry.Name(), filename) {
			found = entry.Name()
		}
	}
	if found == "" {
		return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
	}
	return found, nil
}
