package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/graphrag/pkg/schema"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

// ReingestMode selects what happens to the chunks of a document that is
// ingested again under the same file name.
type ReingestMode string

const (
	// ReingestAppend keeps earlier chunk chains and adds a new one.
	ReingestAppend ReingestMode = "append"
	// ReingestReplace deletes the document's earlier chunks first. Entities
	// and their mentions in other chunks are kept.
	ReingestReplace ReingestMode = "replace"
)

// ParseReingestMode accepts "append", "replace" or the empty string.
func ParseReingestMode(s string) (ReingestMode, error) {
	switch ReingestMode(s) {
	case "", ReingestAppend:
		return ReingestAppend, nil
	case ReingestReplace:
		return ReingestReplace, nil
	}
	return "", fmt.Errorf("unknown reingest mode %q", s)
}

// TextSplitter turns ordered raw segments into ordered chunks.
type TextSplitter interface {
	Split(segments []string) ([]string, error)
}

// DocumentLoader resolves paths to raw text segments and expands
// directories into the files they contain.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (string, []string, error)
	Walk(ctx context.Context, root string) ([]string, error)
}

// GraphClient is the ingestion orchestrator. It owns no connections; the
// store and AI client are created and closed by the caller.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	store         store.GraphStorage
	embedder      ai.Embedder
	extractor     Extractor
	vocab         *schema.Vocabulary
	splitter      TextSplitter
	loader        DocumentLoader
	reingestMode  ReingestMode
	parallelFiles int
	dimensions    int
}

// DocumentLocker is implemented by stores that can serialise ingestion of
// the same file across processes.
type DocumentLocker interface {
	WithDocumentLock(ctx context.Context, fileName string, fn func(ctx context.Context) error) error
}

// NewGraphClientParams defines the collaborators of a GraphClient.
//
// Loader is only needed for IngestFile and IngestPath. ParallelFiles bounds
// how many files IngestPath ingests at once; chunks of one document are
// always processed in order. Dimensions is the vector index size used by
// SetupSchema.
type NewGraphClientParams struct {
	Store         store.GraphStorage
	Embedder      ai.Embedder
	Extractor     Extractor
	Vocabulary    *schema.Vocabulary
	Splitter      TextSplitter
	Loader        DocumentLoader
	ReingestMode  ReingestMode
	ParallelFiles int
	Dimensions    int
}

// NewGraphClient creates a GraphClient.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		Store:      st,
//		Embedder:   aiClient,
//		Extractor:  extractor,
//		Vocabulary: schema.Default(),
//		Splitter:   sp,
//		Loader:     resolver,
//		Dimensions: 1536,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	switch {
	case params.Store == nil:
		return nil, errors.New("graph client needs a store")
	case params.Embedder == nil:
		return nil, errors.New("graph client needs an embedder")
	case params.Extractor == nil:
		return nil, errors.New("graph client needs an extractor")
	case params.Splitter == nil:
		return nil, errors.New("graph client needs a splitter")
	}

	vocab := params.Vocabulary
	if vocab == nil {
		vocab = schema.Default()
	}
	mode, err := ParseReingestMode(string(params.ReingestMode))
	if err != nil {
		return nil, err
	}
	parallel := params.ParallelFiles
	if parallel <= 0 {
		parallel = 1
	}
	dims := params.Dimensions
	if dims <= 0 {
		dims = 1536
	}

	return &GraphClient{
		store:         params.Store,
		embedder:      params.Embedder,
		extractor:     params.Extractor,
		vocab:         vocab,
		splitter:      params.Splitter,
		loader:        params.Loader,
		reingestMode:  mode,
		parallelFiles: parallel,
		dimensions:    dims,
	}, nil
}

// storeErr tags connection failures so callers can tell them apart from
// failures that only affect one entity or relationship.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
