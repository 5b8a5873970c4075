package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/OFFIS-RIT/graphrag/pkg/common"
)

var (
	// ErrUnavailable wraps connection-level failures of the backing database.
	ErrUnavailable = errors.New("graph store unavailable")
	// ErrNotFound is returned when a referenced node does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentifier is returned when a label, relationship type or
	// index name would have to be interpolated but is not a plain identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

const (
	// VectorIndexName is the name of the chunk embedding index.
	VectorIndexName = "chunk_vector_index"

	LabelDocument = "Document"
	LabelChunk    = "Chunk"

	RelHasChunk    = "HAS_CHUNK"
	RelNext        = "NEXT"
	RelMentionedIn = "MENTIONED_IN"
)

// GraphStorage persists the document graph and answers the vector and
// pattern queries used at retrieval time. Every write is a merge keyed by the
// node or edge identity, except CreateChunk which always creates.
//
// Labels and relationship types passed in have already been checked against
// the vocabulary; implementations still reject anything that is not a plain
// identifier before building a query with it.
type GraphStorage interface {
	// MergeDocument matches the Document by FileName. ID and CreatedAt of doc
	// are only used when the node is created; the stored values are returned.
	MergeDocument(ctx context.Context, doc common.Document) (common.Document, bool, error)
	// DeleteDocumentChunks removes all chunks of a document and their edges.
	DeleteDocumentChunks(ctx context.Context, docID string) (int, error)
	CreateChunk(ctx context.Context, docID string, chunk common.Chunk) error
	LinkChunks(ctx context.Context, prevID, nextID string) error

	// MergeEntity merges by (Label, Name), unions properties and links the
	// entity MENTIONED_IN the chunk.
	MergeEntity(ctx context.Context, entity common.Entity, chunkID string) error
	// FindEntities returns entities named name carrying any of labels.
	FindEntities(ctx context.Context, name string, labels []string) ([]common.EntityRef, error)
	// MergeRelationship merges the edge by (Source, Type, Target) and unions
	// properties. Both endpoints must exist; otherwise ErrNotFound.
	MergeRelationship(ctx context.Context, rel common.Relationship) error

	EnsureVectorIndex(ctx context.Context, name string, dims int) error
	EnsureUniqueConstraint(ctx context.Context, name, label, property string) error

	// VectorSearch returns at most k chunks by descending cosine similarity.
	// A missing or empty index yields an empty result.
	VectorSearch(ctx context.Context, embedding []float32, k int) ([]common.ScoredChunk, error)
	// ContextWindow returns nil, nil when the chunk does not exist.
	ContextWindow(ctx context.Context, chunkID string) (*common.ContextWindow, error)
	// Facts returns relationships between entities mentioned in the chunks.
	Facts(ctx context.Context, chunkIDs []string) ([]common.Fact, error)

	Close(ctx context.Context) error
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CheckIdentifier returns ErrInvalidIdentifier unless s is safe to
// interpolate as a label, type or index name.
func CheckIdentifier(s string) error {
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return nil
}

// DedupeStrings drops empty and repeated values, keeping first occurrences.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
