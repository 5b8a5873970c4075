package openai

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeOpenAI struct {
	chatContent string
	chatBodies  []map[string]any
}

func (f *fakeOpenAI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			f.chatBodies = append(f.chatBodies, req)
			resp := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 0,
				"model":   req["model"],
				"choices": []any{map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": f.chatContent},
				}},
				"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
			}
			_ = json.NewEncoder(w).Encode(resp)
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			inputs, _ := req["input"].([]any)
			data := make([]any, 0, len(inputs))
			// answer in reverse order to exercise index mapping
			for i := len(inputs) - 1; i >= 0; i-- {
				data = append(data, map[string]any{
					"object":    "embedding",
					"index":     i,
					"embedding": []float64{float64(i + 1), 0.5, 0.25},
				})
			}
			resp := map[string]any{
				"object": "list",
				"model":  req["model"],
				"data":   data,
				"usage":  map[string]any{"prompt_tokens": 4, "total_tokens": 4},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestClient(t *testing.T, fake *fakeOpenAI, dim int) *GraphOpenAIClient {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	return NewGraphOpenAIClient(NewGraphOpenAIClientParams{
		EmbeddingModel:  "text-embedding-3-small",
		ExtractionModel: "extract-model",
		AnswerModel:     "answer-model",
		EmbeddingDim:    dim,
		EmbeddingURL:    srv.URL + "/",
		EmbeddingKey:    "test",
		ChatURL:         srv.URL + "/",
		ChatKey:         "test",
	})
}

func TestGenerateCompletion(t *testing.T) {
	fake := &fakeOpenAI{chatContent: "Acme Corp owns Beta LLC."}
	client := newTestClient(t, fake, 3)

	got, err := client.GenerateCompletion(t.Context(), "Who owns Beta LLC?")
	if err != nil {
		t.Fatalf("GenerateCompletion: %v", err)
	}
	if got != "Acme Corp owns Beta LLC." {
		t.Fatalf("unexpected answer %q", got)
	}
	if len(fake.chatBodies) != 1 || fake.chatBodies[0]["model"] != "answer-model" {
		t.Fatalf("expected answer model request, got %v", fake.chatBodies)
	}
	if m := client.GetMetrics(); m.TotalTokens != 10 || m.Requests != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	fake := &fakeOpenAI{chatContent: `{"names":["Acme Corp","Beta LLC"]}`}
	client := newTestClient(t, fake, 3)

	var out struct {
		Names []string `json:"names"`
	}
	if err := client.GenerateCompletionWithFormat(t.Context(), "names", "extract names", "text", &out); err != nil {
		t.Fatalf("GenerateCompletionWithFormat: %v", err)
	}
	if len(out.Names) != 2 || out.Names[1] != "Beta LLC" {
		t.Fatalf("unexpected output %+v", out)
	}
	req := fake.chatBodies[0]
	if req["model"] != "extract-model" {
		t.Fatalf("expected extraction model, got %v", req["model"])
	}
	if _, ok := req["response_format"]; !ok {
		t.Fatalf("expected response_format in request")
	}
}

func TestGenerateEmbeddings(t *testing.T) {
	client := newTestClient(t, &fakeOpenAI{}, 4)

	got, err := client.GenerateEmbeddings(t.Context(), [][]byte{[]byte("first"), []byte("   "), []byte("third")})
	if err != nil {
		t.Fatalf("GenerateEmbeddings: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(got))
	}
	for i, vec := range got {
		if len(vec) != 4 {
			t.Fatalf("vector %d has %d dims, want 4", i, len(vec))
		}
	}
	if got[0][0] != 1 || got[2][0] != 2 {
		t.Fatalf("embeddings not mapped back by index: %v", got)
	}
	for _, v := range got[1] {
		if v != 0 {
			t.Fatalf("blank input should give zero vector, got %v", got[1])
		}
	}
}

func TestMissingKeys(t *testing.T) {
	client := NewGraphOpenAIClient(NewGraphOpenAIClientParams{})
	if _, err := client.GenerateCompletion(t.Context(), "x"); err == nil {
		t.Fatal("expected error without chat key")
	}
	if _, err := client.GenerateEmbedding(t.Context(), []byte("x")); err == nil {
		t.Fatal("expected error without embedding key")
	}
}
