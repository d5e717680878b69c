package cache

import (
	"fmt"

	"github.com/matsen/scry/internal/citation"
)

// graphFile is the on-disk format of the citation graph cache.
type graphFile struct {
	Version int
	Graph   *citation.Graph
}

// SaveGraph atomically persists an expanded citation graph, including its
// build parameters and partial flag.
func SaveGraph(path string, g *citation.Graph) error {
	return writeGob(path, graphFile{Version: CurrentVersion, Graph: g})
}

// LoadGraph reads a persisted citation graph. Returns ErrCacheNotFound when
// no graph has been built, and ErrUnsupportedVersion for stale formats.
func LoadGraph(path string) (*citation.Graph, error) {
	var file graphFile
	if err := readGob(path, &file); err != nil {
		return nil, err
	}
	if file.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (rebuild with 'scry init --force')",
			ErrUnsupportedVersion, file.Version, CurrentVersion)
	}
	if file.Graph == nil {
		return nil, ErrCacheNotFound
	}
	return file.Graph, nil
}

// RemoveGraph deletes the persisted citation graph, if any.
func RemoveGraph(path string) error {
	return removeFile(path)
}
