// Package io reads documents from the local filesystem.
package io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/graphrag/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxCachedFile is the largest file kept in the cache.
const DefaultMaxCachedFile = 8 << 20

type cachedFile struct {
	data    []byte
	size    int64
	modTime time.Time
}

// IOGraphFileLoader reads local files. Contents are cached and served again
// only while the file's size and modification time are unchanged, so a long
// running worker picks up edited documents.
type IOGraphFileLoader struct {
	maxCached int64

	mu    sync.RWMutex
	cache map[string]cachedFile
	group singleflight.Group
}

// NewIOGraphFileLoader creates a filesystem loader that caches files up to
// DefaultMaxCachedFile bytes.
func NewIOGraphFileLoader() *IOGraphFileLoader {
	return &IOGraphFileLoader{
		maxCached: DefaultMaxCachedFile,
		cache:     make(map[string]cachedFile),
	}
}

// GetFileText returns the content of file. A missing file is reported as
// loader.ErrFileNotFound.
func (l *IOGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	path := strings.TrimPrefix(file.FilePath, "file://")
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", loader.ErrFileNotFound, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	key := loader.CacheKey(file)
	if data, ok := l.cached(key, info); ok {
		return data, nil
	}

	result, err, _ := l.group.Do(key, func() (any, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", loader.ErrFileNotFound, path)
			}
			return nil, err
		}
		if int64(len(data)) <= l.maxCached {
			l.mu.Lock()
			l.cache[key] = cachedFile{data: data, size: info.Size(), modTime: info.ModTime()}
			l.mu.Unlock()
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (l *IOGraphFileLoader) cached(key string, info fs.FileInfo) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.cache[key]
	if !ok || c.size != info.Size() || !c.modTime.Equal(info.ModTime()) {
		return nil, false
	}
	return c.data, true
}

// Forget drops the cached content of file.
func (l *IOGraphFileLoader) Forget(file loader.GraphFile) {
	l.mu.Lock()
	delete(l.cache, loader.CacheKey(file))
	l.mu.Unlock()
}
