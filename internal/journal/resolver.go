package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long an unresolved name is left alone before a
// repeat resolve is allowed to query the index again.
const DefaultCooldown = 7 * 24 * time.Hour

// Finder locates a source identifier for a journal name. An empty id with a
// nil error means no match was found.
type Finder interface {
	FindSource(ctx context.Context, name string) (string, error)
}

// entry records one resolution outcome. An empty SourceID marks the name as
// unresolved at ResolvedAt.
type entry struct {
	SourceID   string    `json:"source_id,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type resolverFile struct {
	Version int              `json:"version"`
	Entries map[string]entry `json:"entries"`
}

const resolverFileVersion = 1

// Resolver maps journal names to index source identifiers through a
// persisted JSON cache. Resolved names are never re-queried; unresolved
// names are retried only after the cooldown elapses, or under force.
type Resolver struct {
	finder   Finder
	path     string
	cooldown time.Duration

	mu      sync.Mutex
	loaded  bool
	entries map[string]entry
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCooldown overrides the retry cooldown for unresolved names.
func WithCooldown(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.cooldown = d
	}
}

// NewResolver creates a resolver backed by the JSON cache file at path. The
// file is created on first save; a missing or unreadable file starts the
// resolver empty.
func NewResolver(finder Finder, path string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		finder:   finder,
		path:     path,
		cooldown: DefaultCooldown,
		entries:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize canonicalizes a journal name for cache keying: case folded,
// trimmed, trailing punctuation stripped.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimRight(name, ".,;:")
}

// Resolve returns the source identifier for name, or an empty string when
// the name is unresolved. Cached outcomes are reused; set force to re-query
// regardless of what is cached.
func (r *Resolver) Resolve(ctx context.Context, name string, force bool) (string, error) {
	results, err := r.ResolveMany(ctx, []string{name}, force)
	if err != nil {
		return "", err
	}
	return results[name], nil
}

// ResolveMany resolves a batch of names, returning a mapping from each input
// name to its source identifier (empty string when unresolved). Cache hits
// short-circuit; only misses and cooled-down unresolved entries reach the
// index. A failed lookup leaves that one name unresolved for this call
// without caching anything, so the next call retries it; only context
// cancellation aborts the batch.
func (r *Resolver) ResolveMany(ctx context.Context, names []string, force bool) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()

	results := make(map[string]string, len(names))
	now := time.Now().UTC()
	dirty := false

	for _, name := range names {
		key := Normalize(name)
		if key == "" {
			results[name] = ""
			continue
		}

		if e, ok := r.entries[key]; ok && !force {
			if e.SourceID != "" || now.Sub(e.ResolvedAt) < r.cooldown {
				results[name] = e.SourceID
				continue
			}
		}

		id, err := r.finder.FindSource(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				if dirty {
					r.save()
				}
				return nil, fmt.Errorf("resolve journal %q: %w", name, err)
			}
			// Unresolved for this call only. Not cached, so the next call
			// retries right away instead of waiting out the cooldown.
			results[name] = ""
			continue
		}
		r.entries[key] = entry{SourceID: id, ResolvedAt: now}
		results[name] = id
		dirty = true
	}

	if dirty {
		if err := r.save(); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ResolveIDs resolves names and splits the outcome: the deduplicated source
// identifiers in sorted order, and the names that stayed unresolved.
func (r *Resolver) ResolveIDs(ctx context.Context, names []string, force bool) (ids []string, unresolved []string, err error) {
	results, err := r.ResolveMany(ctx, names, force)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool, len(results))
	for _, name := range names {
		id := results[name]
		if id == "" {
			unresolved = append(unresolved, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, unresolved, nil
}

// Len returns the number of cached entries, resolved or not.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return len(r.entries)
}

// Clear drops all cached entries and removes the backing file.
func (r *Resolver) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]entry)
	r.loaded = true
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove journal cache: %w", err)
	}
	return nil
}

// load reads the cache file once per resolver. Corrupt or
// version-mismatched files start the resolver empty.
func (r *Resolver) load() {
	if r.loaded {
		return
	}
	r.loaded = true

	data, err := os.ReadFile(r.path)
	if err != nil {
		return
	}
	var file resolverFile
	if err := json.Unmarshal(data, &file); err != nil || file.Version != resolverFileVersion {
		return
	}
	if file.Entries != nil {
		r.entries = file.Entries
	}
}

func (r *Resolver) save() error {
	data, err := json.MarshalIndent(resolverFile{
		Version: resolverFileVersion,
		Entries: r.entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode journal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write journal cache: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write journal cache: %w", err)
	}
	return nil
}
