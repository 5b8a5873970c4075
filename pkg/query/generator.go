package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/graphrag/pkg/ai"
)

// Generator asks the language model to answer from the given context only.
// It makes exactly one call per answer and does not retry.
type Generator struct {
	client        ai.GraphAIClient
	model         string
	systemPrompts []string
}

func NewGenerator(client ai.GraphAIClient, model string, systemPrompts ...string) *Generator {
	return &Generator{
		client:        client,
		model:         model,
		systemPrompts: append([]string{ai.AnswerPrompt}, systemPrompts...),
	}
}

// GenerateAnswer joins contexts in the given order and returns the model's
// response verbatim.
func (g *Generator) GenerateAnswer(ctx context.Context, question string, contexts []string) (string, error) {
	prompt := fmt.Sprintf(ai.AnswerUserPrompt, strings.Join(contexts, "\n\n"), question)
	opts := []ai.GenerateOption{ai.WithSystemPrompts(g.systemPrompts...)}
	if g.model != "" {
		opts = append(opts, ai.WithModel(g.model))
	}
	resp, err := g.client.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return resp, nil
}
