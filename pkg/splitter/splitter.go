// Package splitter cuts document segments into overlapping chunks.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/OFFIS-RIT/graphrag/pkg/ai"

	"github.com/tmc/langchaingo/textsplitter"
)

// Unit selects how chunk length is measured.
type Unit string

const (
	UnitChars  Unit = "chars"
	UnitTokens Unit = "tokens"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Params configures a Splitter. A zero ChunkSize or a negative
// ChunkOverlap selects the default.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
	Unit         Unit
	// LenFunc overrides the length measure implied by Unit.
	LenFunc func(string) int
}

// Splitter is a recursive character splitter: it prefers paragraph, then
// line, then word boundaries and only cuts inside words as a last resort.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

// New creates a Splitter. Overlap must be smaller than the chunk size.
func New(params Params) (*Splitter, error) {
	size := params.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := params.ChunkOverlap
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}

	lenFunc := params.LenFunc
	if lenFunc == nil {
		switch params.Unit {
		case "", UnitChars:
			lenFunc = utf8.RuneCountInString
		case UnitTokens:
			lenFunc = tokenLen
		default:
			return nil, fmt.Errorf("unknown chunk unit %q", params.Unit)
		}
	}

	return &Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
			textsplitter.WithLenFunc(lenFunc),
		),
	}, nil
}

// Split splits every segment independently and returns all chunks in
// segment order. Blank chunks are dropped.
func (s *Splitter) Split(segments []string) ([]string, error) {
	var chunks []string
	for i, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		parts, err := s.inner.SplitText(seg)
		if err != nil {
			return nil, fmt.Errorf("failed to split segment %d: %w", i, err)
		}
		for _, p := range parts {
			if strings.TrimSpace(p) != "" {
				chunks = append(chunks, p)
			}
		}
	}
	return chunks, nil
}

func tokenLen(text string) int {
	n, err := ai.CountTokens(text)
	if err != nil {
		return utf8.RuneCountInString(text)
	}
	return n
}
