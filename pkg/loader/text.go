package loader

import (
	"context"
	"strings"
)

// TextGraphLoader reads plain text and markdown files as a single segment.
type TextGraphLoader struct{}

// NewTextGraphLoader creates a plain text loader.
func NewTextGraphLoader() *TextGraphLoader {
	return &TextGraphLoader{}
}

// GetSegments returns the file content as one segment, or none when the file
// is blank.
func (l *TextGraphLoader) GetSegments(ctx context.Context, file GraphFile) ([]string, error) {
	content, err := file.GetText(ctx)
	if err != nil {
		return nil, err
	}
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []string{text}, nil
}
