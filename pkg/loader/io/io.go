package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/relex/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// FileSource reads corpus files directly from the local filesystem with caching.
type FileSource struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewFileSource creates a new filesystem-based source.
func NewFileSource() *FileSource {
	return &FileSource{
		cache: make(map[string][]byte),
	}
}

// ReadFile reads the file content from the filesystem. Results are cached.
func (l *FileSource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	key := filepath.Clean(path)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(key)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = content
		l.cacheMu.Unlock()

		return content, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// List returns the regular files of dir in lexical order.
func (l *FileSource) List(ctx context.Context, dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, loader.ErrNotDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(names)
	return names, nil
}

// Forget drops path from the cache. Corpus files are read once per run, so
// callers release them after parsing.
func (l *FileSource) Forget(path string) {
	l.cacheMu.Lock()
	delete(l.cache, filepath.Clean(path))
	l.cacheMu.Unlock()
}
