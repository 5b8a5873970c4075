package query

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

// Retriever runs vector search over the chunk index and reads the graph
// around the hits.
type Retriever struct {
	embedder ai.Embedder
	store    store.GraphStorage
}

func NewRetriever(embedder ai.Embedder, s store.GraphStorage) *Retriever {
	return &Retriever{embedder: embedder, store: s}
}

// Search returns at most k chunks by descending similarity to text. An empty
// result means nothing relevant is stored.
func (r *Retriever) Search(ctx context.Context, text string, k int) ([]common.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	embedding, err := r.embedder.GenerateEmbedding(ctx, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := r.store.VectorSearch(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ContextWindow returns the chunk and its neighbours, or nil when the chunk
// does not exist.
func (r *Retriever) ContextWindow(ctx context.Context, chunkID string) (*common.ContextWindow, error) {
	w, err := r.store.ContextWindow(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("failed to read context window: %w", err)
	}
	return w, nil
}

// Facts returns the relationships touching entities mentioned in chunkIDs.
func (r *Retriever) Facts(ctx context.Context, chunkIDs []string) ([]common.Fact, error) {
	facts, err := r.store.Facts(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts: %w", err)
	}
	return facts, nil
}
