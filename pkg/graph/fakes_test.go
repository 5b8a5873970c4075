package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/graphrag/pkg/schema"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

type passthroughSplitter struct{}

func (passthroughSplitter) Split(segments []string) ([]string, error) {
	var out []string
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// wordEmbedder puts each text on one axis per known word.
type wordEmbedder struct {
	words []string
	fail  map[string]bool
}

func (e *wordEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	text := strings.ToLower(string(input))
	if e.fail[string(input)] {
		return nil, errors.New("embedding backend down")
	}
	out := make([]float32, len(e.words)+1)
	out[len(e.words)] = 0.01
	for i, w := range e.words {
		if strings.Contains(text, w) {
			out[i] = 1
		}
	}
	return out, nil
}

type scriptedExtractor struct {
	mu      sync.Mutex
	results map[string]*Extraction
	errs    map[string]error
	calls   []string
}

func (e *scriptedExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if err, ok := e.errs[text]; ok {
		return nil, err
	}
	if res, ok := e.results[text]; ok {
		return res, nil
	}
	return &Extraction{}, nil
}

type fakeAI struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	system    []string
}

func (f *fakeAI) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeAI) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeAI) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not scripted")
}

func (f *fakeAI) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.system = ai.ApplyOptions(ai.GenerateOptions{}, opts...).SystemPrompts
	if i < len(f.errs) && f.errs[i] != nil {
		return f.errs[i]
	}
	if i >= len(f.responses) {
		return errors.New("no response scripted")
	}
	return json.Unmarshal([]byte(f.responses[i]), out)
}

func (f *fakeAI) ResetMetrics() {}

func (f *fakeAI) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func newTestClient(t *testing.T, st store.GraphStorage, ex Extractor, mode ReingestMode) *GraphClient {
	t.Helper()
	g, err := NewGraphClient(NewGraphClientParams{
		Store:        st,
		Embedder:     &wordEmbedder{words: []string{"acme", "beta", "owns", "intro"}},
		Extractor:    ex,
		Vocabulary:   schema.Default(),
		Splitter:     passthroughSplitter{},
		ReingestMode: mode,
		Dimensions:   5,
	})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	return g
}

func acmeExtraction() *Extraction {
	return &Extraction{
		Entities: []ExtractedEntity{
			{Name: "Acme Corp", Type: "LegalEntity"},
			{Name: "Beta LLC", Type: "LegalEntity"},
		},
		Relationships: []ExtractedRelationship{
			{Source: "Acme Corp", Target: "Beta LLC", Type: "OWNS"},
		},
	}
}
