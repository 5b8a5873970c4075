package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/graphrag/internal/util"
	"github.com/OFFIS-RIT/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/schema"
)

// ExtractedEntity is one entity as reported by the extractor, before the
// label is checked against the vocabulary.
type ExtractedEntity struct {
	Name       string            `json:"name" jsonschema_description:"Name of the entity exactly as written in the text"`
	Type       string            `json:"type" jsonschema_description:"One of the provided node types"`
	Properties []common.Property `json:"properties" jsonschema_description:"Attributes of the entity stated in the text as key/value pairs"`
}

// ExtractedRelationship is one relationship as reported by the extractor.
// Source and Target are entity names.
type ExtractedRelationship struct {
	Source     string            `json:"source" jsonschema_description:"Name of the source entity, as listed in entities"`
	Target     string            `json:"target" jsonschema_description:"Name of the target entity, as listed in entities"`
	Type       string            `json:"type" jsonschema_description:"One of the provided relationship types"`
	Properties []common.Property `json:"properties" jsonschema_description:"Attributes of the relationship stated in the text as key/value pairs"`
}

// Extraction is the structured result for one chunk. An empty extraction is
// a valid result and distinct from an error.
type Extraction struct {
	Entities      []ExtractedEntity       `json:"entities" jsonschema_description:"Entities identified in the text"`
	Relationships []ExtractedRelationship `json:"relationships" jsonschema_description:"Relationships identified in the text"`
}

// Extractor maps chunk text to entities and relationships. Every failure is
// reported wrapping ErrExtractionFailed.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// LLMExtractor extracts with a schema-constrained language model call. The
// system prompt lists the vocabulary so the model only uses known labels.
type LLMExtractor struct {
	client       ai.GraphAIClient
	systemPrompt string
	maxRetries   int
	backoff      time.Duration
}

// NewLLMExtractorParams configures an LLMExtractor. MaxRetries defaults to
// 3; Backoff is the delay before the first retry and doubles afterwards.
type NewLLMExtractorParams struct {
	Client     ai.GraphAIClient
	Vocabulary *schema.Vocabulary
	MaxRetries int
	Backoff    time.Duration
}

func NewLLMExtractor(params NewLLMExtractorParams) (*LLMExtractor, error) {
	if params.Client == nil {
		return nil, errors.New("extractor needs an AI client")
	}
	vocab := params.Vocabulary
	if vocab == nil {
		vocab = schema.Default()
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &LLMExtractor{
		client:       params.Client,
		systemPrompt: RenderExtractPrompt(vocab),
		maxRetries:   maxRetries,
		backoff:      params.Backoff,
	}, nil
}

// RenderExtractPrompt fills the extraction prompt with the vocabulary.
func RenderExtractPrompt(vocab *schema.Vocabulary) string {
	var nodes strings.Builder
	for _, n := range vocab.Nodes() {
		nodes.WriteString("- ")
		nodes.WriteString(n.Label)
		if n.Description != "" {
			nodes.WriteString(" (")
			nodes.WriteString(n.Description)
			nodes.WriteString(")")
		}
		nodes.WriteString("\n")
	}
	var rels strings.Builder
	for _, r := range vocab.Relationships() {
		rels.WriteString("- ")
		rels.WriteString(r.Type)
		if r.Description != "" {
			rels.WriteString(" (")
			rels.WriteString(r.Description)
			rels.WriteString(")")
		}
		rels.WriteString("\n")
	}
	return fmt.Sprintf(ai.ExtractPrompt, strings.TrimRight(nodes.String(), "\n"), strings.TrimRight(rels.String(), "\n"))
}

// Extract runs the model on text, retrying transient failures and
// malformed output.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	res, err := util.RetryWithBackoff(ctx, e.maxRetries, e.backoff, func(ctx context.Context) (*Extraction, error) {
		var out Extraction
		err := e.client.GenerateCompletionWithFormat(
			ctx,
			"extract_entities_and_relationships",
			"Extract entities and relationships from a text chunk.",
			text,
			&out,
			ai.WithSystemPrompts(e.systemPrompt),
		)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return res, nil
}
