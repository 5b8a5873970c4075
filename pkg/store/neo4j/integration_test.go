package neo4j

import (
	"os"
	"testing"
	"time"

	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/store"

	"github.com/stretchr/testify/require"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
)

func newIntegrationStore(t *testing.T) *GraphNeo4jStorage {
	t.Helper()
	if os.Getenv("GRAPHRAG_INTEGRATION") != "1" {
		t.Skip("set GRAPHRAG_INTEGRATION=1 to run container tests")
	}

	ctx := t.Context()
	container, err := tcneo4j.Run(ctx, "neo4j:5.26", tcneo4j.WithAdminPassword("password"))
	require.NoError(t, err, "failed to start neo4j container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.BoltUrl(ctx)
	require.NoError(t, err)

	s, err := NewGraphNeo4jStorage(ctx, NewGraphNeo4jStorageParams{
		URI:      uri,
		Username: "neo4j",
		Password: "password",
	})
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

func TestNeo4jGraphRoundTrip(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := t.Context()

	hits, err := s.VectorSearch(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err, "search without index must not fail")
	require.Empty(t, hits)

	require.NoError(t, s.EnsureVectorIndex(ctx, store.VectorIndexName, 3))
	require.NoError(t, s.EnsureVectorIndex(ctx, store.VectorIndexName, 3), "index creation must be idempotent")
	require.NoError(t, s.EnsureUniqueConstraint(ctx, "document_id", "Document", "id"))
	require.NoError(t, s.EnsureUniqueConstraint(ctx, "legalentity_name", "LegalEntity", "name"))

	doc, created, err := s.MergeDocument(ctx, common.Document{ID: "d1", FileName: "acme.txt", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.True(t, created)
	again, created, err := s.MergeDocument(ctx, common.Document{ID: "d2", FileName: "acme.txt", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, doc.ID, again.ID)

	chunks := []common.Chunk{
		{ID: "c0", Text: "intro", Embedding: []float32{0, 1, 0}, Index: 0},
		{ID: "c1", Text: "Acme Corp owns Beta LLC.", Embedding: []float32{1, 0, 0}, Index: 1},
	}
	for _, c := range chunks {
		require.NoError(t, s.CreateChunk(ctx, doc.ID, c))
	}
	require.NoError(t, s.LinkChunks(ctx, "c0", "c1"))

	require.NoError(t, s.MergeEntity(ctx, common.Entity{Label: "LegalEntity", Name: "Acme Corp", Properties: map[string]string{"lei": "1"}}, "c1"))
	require.NoError(t, s.MergeEntity(ctx, common.Entity{Label: "LegalEntity", Name: "Beta LLC"}, "c1"))

	refs, err := s.FindEntities(ctx, "Beta LLC", []string{"LegalEntity", "Person"})
	require.NoError(t, err)
	require.Equal(t, []common.EntityRef{{Label: "LegalEntity", Name: "Beta LLC"}}, refs)

	require.NoError(t, s.MergeRelationship(ctx, common.Relationship{
		Source: common.EntityRef{Label: "LegalEntity", Name: "Acme Corp"},
		Target: common.EntityRef{Label: "LegalEntity", Name: "Beta LLC"},
		Type:   "OWNS",
	}))

	// vector indexes are populated asynchronously
	require.Eventually(t, func() bool {
		hits, err := s.VectorSearch(ctx, []float32{1, 0, 0}, 1)
		return err == nil && len(hits) == 1 && hits[0].ID == "c1"
	}, 30*time.Second, 500*time.Millisecond)

	w, err := s.ContextWindow(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NotNil(t, w.Prev)
	require.Equal(t, "intro", *w.Prev)
	require.Nil(t, w.Next)

	facts, err := s.Facts(ctx, []string{"c1"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "OWNS", facts[0].Type)

	n, err := s.DeleteDocumentChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
