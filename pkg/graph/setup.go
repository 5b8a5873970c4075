package graph

import (
	"context"
	"strings"

	"github.com/OFFIS-RIT/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/graphrag/pkg/schema"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

// SetupSchema creates the chunk vector index and the uniqueness constraints
// using the client's store, vocabulary and dimensions.
func (g *GraphClient) SetupSchema(ctx context.Context) []*ConstraintError {
	return SetupSchema(ctx, g.store, g.vocab, g.dimensions)
}

// SetupSchema creates the vector index over chunk embeddings and unique
// constraints on Document.id, Chunk.id and the name of every vocabulary
// label. Every operation is create-if-absent and attempted on its own; the
// failed ones are logged and returned.
func SetupSchema(ctx context.Context, st store.GraphStorage, vocab *schema.Vocabulary, dims int) []*ConstraintError {
	if vocab == nil {
		vocab = schema.Default()
	}

	var failed []*ConstraintError
	record := func(name string, err error) {
		if err != nil {
			logger.Warn("[Setup] schema operation failed", "name", name, "err", err)
			failed = append(failed, &ConstraintError{Name: name, Err: storeErr(err)})
			return
		}
		logger.Debug("[Setup] ensured", "name", name)
	}

	record(store.VectorIndexName, st.EnsureVectorIndex(ctx, store.VectorIndexName, dims))
	record("document_id", st.EnsureUniqueConstraint(ctx, "document_id", store.LabelDocument, "id"))
	record("chunk_id", st.EnsureUniqueConstraint(ctx, "chunk_id", store.LabelChunk, "id"))
	for _, label := range vocab.Labels() {
		name := strings.ToLower(label) + "_name"
		record(name, st.EnsureUniqueConstraint(ctx, name, label, "name"))
	}

	logger.Info("[Setup] Schema ready", "operations", len(vocab.Labels())+3, "failed", len(failed))
	return failed
}
