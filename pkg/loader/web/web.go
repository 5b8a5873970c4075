package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/graphrag/pkg/loader"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"
)

const maxBody = 50 << 20

// WebGraphLoader loads content from web URLs. For HTML pages it uses
// readability to extract the main content; other content types are returned
// as fetched so the extension-specific parser can handle them.
type WebGraphLoader struct {
	client *http.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewWebGraphLoader creates a new web loader using http.DefaultClient.
func NewWebGraphLoader() *WebGraphLoader {
	return NewWebGraphLoaderWithClient(http.DefaultClient)
}

// NewWebGraphLoaderWithClient creates a web loader with a custom HTTP client.
func NewWebGraphLoaderWithClient(client *http.Client) *WebGraphLoader {
	return &WebGraphLoader{
		client: client,
		cache:  make(map[string][]byte),
	}
}

// GetFileText fetches a URL and returns its readable content.
func (l *WebGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		result, err := l.fetch(ctx, file.FilePath)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = result
		l.cacheMu.Unlock()

		return result, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

func (l *WebGraphLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", loader.ErrFileNotFound, rawURL)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("failed to fetch url: %s returned %d", rawURL, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBody)
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return io.ReadAll(body)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		return nil, fmt.Errorf("failed to render article text: %w", err)
	}

	return []byte(builder.String()), nil
}
