// Package query answers questions from the document graph: it retrieves the
// chunks closest to the question and lets the language model answer from
// them.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

// NoRelevantInformation is the answer given when retrieval finds nothing.
const NoRelevantInformation = "No relevant information found."

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

type queryOptions struct {
	TopK          int
	ContextWindow bool
	GraphFacts    bool
	Model         string
	SystemPrompts []string
}

// QueryOption is a functional option for configuring query behavior.
type QueryOption func(*queryOptions)

// WithTopK sets how many chunks are retrieved.
func WithTopK(k int) QueryOption {
	return func(o *queryOptions) {
		if k > 0 {
			o.TopK = k
		}
	}
}

// WithContextWindow surrounds every retrieved chunk with its neighbours in
// the chunk chain before generation.
func WithContextWindow(enabled bool) QueryOption {
	return func(o *queryOptions) {
		o.ContextWindow = enabled
	}
}

// WithGraphFacts appends the relationships of the entities mentioned in the
// retrieved chunks as one more context block.
func WithGraphFacts(enabled bool) QueryOption {
	return func(o *queryOptions) {
		o.GraphFacts = enabled
	}
}

// WithModel returns a QueryOption that specifies which AI model to use
// for generating answers.
func WithModel(model string) QueryOption {
	return func(o *queryOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a QueryOption that appends additional system
// prompts to the answer prompt.
func WithSystemPrompts(prompts ...string) QueryOption {
	return func(o *queryOptions) {
		o.SystemPrompts = append(o.SystemPrompts, prompts...)
	}
}

// Answer is the result of a question. Sources are the texts of the
// retrieved chunks in rank order.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// GraphQueryClient runs the ask pipeline: retrieve, enrich, generate.
type GraphQueryClient struct {
	retriever *Retriever
	generator *Generator
	options   queryOptions
}

// NewGraphQueryClient creates a GraphQueryClient over an owned store and AI
// client. The AI client must embed with the same model used at ingestion.
//
// Example:
//
//	client := query.NewGraphQueryClient(aiClient, st, query.WithTopK(5))
//	ans, err := client.Ask(ctx, "Who owns Beta LLC?")
func NewGraphQueryClient(aiC ai.GraphAIClient, s store.GraphStorage, opts ...QueryOption) *GraphQueryClient {
	c := &GraphQueryClient{
		retriever: NewRetriever(aiC, s),
		options:   queryOptions{TopK: DefaultTopK},
	}
	for _, o := range opts {
		if o != nil {
			o(&c.options)
		}
	}
	c.generator = NewGenerator(aiC, c.options.Model, c.options.SystemPrompts...)
	return c
}

// Retriever returns the retriever used by the client.
func (c *GraphQueryClient) Retriever() *Retriever {
	return c.retriever
}

// Ask answers question from the graph. An empty retrieval is not an error;
// it yields NoRelevantInformation without calling the model.
func (c *GraphQueryClient) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	hits, err := c.retriever.Search(ctx, question, c.options.TopK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		logger.Debug("[Query] no relevant chunks", "question", question)
		return &Answer{Answer: NoRelevantInformation, Sources: []string{}}, nil
	}

	sources := make([]string, len(hits))
	contexts := make([]string, len(hits))
	ids := make([]string, len(hits))
	for i, h := range hits {
		sources[i] = h.Text
		contexts[i] = h.Text
		ids[i] = h.ID
	}

	if c.options.ContextWindow {
		for i, h := range hits {
			w, err := c.retriever.ContextWindow(ctx, h.ID)
			if err != nil {
				return nil, err
			}
			contexts[i] = windowText(w, h.Text)
		}
	}
	if c.options.GraphFacts {
		facts, err := c.retriever.Facts(ctx, ids)
		if err != nil {
			return nil, err
		}
		if block := FormatFacts(facts); block != "" {
			contexts = append(contexts, block)
		}
	}

	logger.Debug("[Query] retrieved", "chunks", len(hits), "top_score", hits[0].Score)

	answer, err := c.generator.GenerateAnswer(ctx, question, contexts)
	if err != nil {
		return nil, err
	}
	return &Answer{Answer: answer, Sources: sources}, nil
}

func windowText(w *common.ContextWindow, fallback string) string {
	if w == nil {
		return fallback
	}
	parts := make([]string, 0, 3)
	if w.Prev != nil {
		parts = append(parts, *w.Prev)
	}
	parts = append(parts, w.Current)
	if w.Next != nil {
		parts = append(parts, *w.Next)
	}
	return strings.Join(parts, "\n")
}

// FormatFacts renders relationships one per line, as in
// "Acme Corp -[OWNS]-> Beta LLC". It returns "" for no facts.
func FormatFacts(facts []common.Fact) string {
	if len(facts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Known relationships:")
	for _, f := range facts {
		fmt.Fprintf(&b, "\n%s -[%s]-> %s", f.Source.Name, f.Type, f.Target.Name)
	}
	return b.String()
}
