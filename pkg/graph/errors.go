package graph

import (
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/graphrag/pkg/schema"
)

var (
	// ErrExtractionFailed marks a chunk whose extractor call failed or
	// returned output that could not be decoded.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrEmbeddingFailed marks a chunk stored without an embedding. It is
	// not found by vector search but keeps its text and position.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrStoreUnavailable marks a failure to reach the graph store. It aborts
	// the current document.
	ErrStoreUnavailable = errors.New("graph store unavailable")
	// ErrInvalidLabel is returned for entity or relationship labels outside
	// the vocabulary.
	ErrInvalidLabel = schema.ErrInvalidLabel
	// ErrUnresolvedEndpoint is returned when a relationship endpoint names no
	// entity in the graph.
	ErrUnresolvedEndpoint = errors.New("unresolved relationship endpoint")
	// ErrAmbiguousEndpoint is returned when a bare endpoint name matches
	// entities of more than one label.
	ErrAmbiguousEndpoint = errors.New("ambiguous relationship endpoint")
	ErrUnsupportedFile   = errors.New("unsupported file")
	ErrDocumentLoad      = errors.New("document load failed")
)

// ChunkError records a failure that was isolated to one chunk. The chunk
// node and its position in the chain are kept.
type ChunkError struct {
	Index   int
	ChunkID string
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%s): %v", e.Index, e.ChunkID, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// ConstraintError records a schema operation that failed during setup.
type ConstraintError struct {
	Name string
	Err  error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s: %v", e.Name, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}
