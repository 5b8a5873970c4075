package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/OFFIS-RIT/graphrag/pkg/schema"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
	"github.com/OFFIS-RIT/graphrag/pkg/store/memory"
)

func TestSetupSchema(t *testing.T) {
	st := memory.New()
	vocab, err := schema.New([]schema.NodeType{{Label: "LegalEntity"}, {Label: "Person"}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if failed := SetupSchema(t.Context(), st, vocab, 1536); len(failed) != 0 {
			t.Fatalf("failed = %v", failed)
		}
	}
	want := []string{"chunk_id", "document_id", "legalentity_name", "person_name"}
	if got := st.Constraints(); !slices.Equal(got, want) {
		t.Fatalf("constraints = %v, want %v", got, want)
	}
	name, dims := st.VectorIndex()
	if name != store.VectorIndexName || dims != 1536 {
		t.Fatalf("vector index = %s/%d", name, dims)
	}
}

func TestSetupSchemaIsBestEffort(t *testing.T) {
	st := memory.New(memory.WithHook(func(op string) error {
		switch op {
		case "EnsureUniqueConstraint:chunk_id":
			return errors.New("already exists with different definition")
		case "EnsureVectorIndex":
			return store.ErrUnavailable
		}
		return nil
	}))
	vocab, err := schema.New([]schema.NodeType{{Label: "Person"}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	failed := SetupSchema(t.Context(), st, vocab, 8)
	if len(failed) != 2 {
		t.Fatalf("failed = %v", failed)
	}
	if failed[0].Name != store.VectorIndexName || !errors.Is(failed[0], ErrStoreUnavailable) {
		t.Fatalf("first failure = %v", failed[0])
	}
	if failed[1].Name != "chunk_id" {
		t.Fatalf("second failure = %v", failed[1])
	}
	if got := st.Constraints(); !slices.Equal(got, []string{"document_id", "person_name"}) {
		t.Fatalf("constraints = %v", got)
	}
}
