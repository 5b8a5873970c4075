package pdf

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/graphrag/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// PDFGraphLoader loads PDF files and extracts their text content, one
// segment per page.
type PDFGraphLoader struct {
	cache   map[string][]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewPDFGraphLoader creates a PDF loader. Raw bytes come from the file's own
// source loader.
func NewPDFGraphLoader() *PDFGraphLoader {
	return &PDFGraphLoader{
		cache: make(map[string][]string),
	}
}

// GetSegments extracts the text of every non-blank page in page order.
func (l *PDFGraphLoader) GetSegments(ctx context.Context, file loader.GraphFile) ([]string, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := file.GetText(ctx)
		if err != nil {
			return nil, err
		}

		out, err := runPDFToText(ctx, content)
		if err != nil {
			return nil, err
		}
		pages := splitPages(out)

		l.cacheMu.Lock()
		l.cache[key] = pages
		l.cacheMu.Unlock()

		return pages, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}
