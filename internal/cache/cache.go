// Package cache provides the persisted stores for embeddings and the
// citation graph. Stores are loaded lazily, written atomically (temp file +
// rename), and safe for concurrent readers.
package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Errors returned by cache operations.
var (
	ErrCacheNotFound      = errors.New("cache file not found")
	ErrUnsupportedVersion = errors.New("unsupported cache version")
)

// File names within the cache directory.
const (
	EmbeddingsFileName = "embeddings.gob"
	GraphFileName      = "citation_graph.gob"
	JournalsFileName   = "journals.json"
	ReviewedDBFileName = "reviewed.db"
)

// CurrentVersion is the cache format version for compatibility checking.
const CurrentVersion = 1

// writeGob atomically writes a gob-encoded value to path, creating parent
// directories as needed.
func writeGob(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding cache: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// readGob decodes a gob-encoded value from path. Returns ErrCacheNotFound if
// the file does not exist.
func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("opening cache file: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decoding cache: %w", err)
	}

	return nil
}

// removeFile deletes a cache file, ignoring a missing file.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}
