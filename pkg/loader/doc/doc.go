package doc

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/graphrag/pkg/loader"

	"golang.org/x/sync/singleflight"
)

const docXMLMax = 50 << 20

// DocGraphLoader loads Word documents (.docx) and extracts their text content
// as a single segment.
type DocGraphLoader struct {
	cache   map[string]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewDocGraphLoader creates a document loader that extracts text directly from docx XML.
func NewDocGraphLoader() *DocGraphLoader {
	return &DocGraphLoader{
		cache: make(map[string]string),
	}
}

// GetSegments extracts the text content of a Word document.
func (l *DocGraphLoader) GetSegments(ctx context.Context, file loader.GraphFile) ([]string, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	cached, ok := l.cache[key]
	l.cacheMu.RUnlock()
	if ok {
		return segments(cached), nil
	}

	result, err, _ := l.group.Do(key, func() (any, error) {
		content, err := file.GetText(ctx)
		if err != nil {
			return nil, err
		}
		text, err := parseDocx(content)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = text
		l.cacheMu.Unlock()

		return text, nil
	})
	if err != nil {
		return nil, err
	}

	return segments(result.(string)), nil
}

// GetTextFromIO extracts text content from a Word document provided as an io.Reader.
func GetTextFromIO(input io.Reader) (string, error) {
	content, err := io.ReadAll(input)
	if err != nil {
		return "", err
	}
	return parseDocx(content)
}

func segments(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []string{text}
}
