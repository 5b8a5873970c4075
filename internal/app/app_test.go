package app

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/OFFIS-RIT/graphrag/pkg/splitter"
	"github.com/OFFIS-RIT/graphrag/pkg/store/memory"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"GRAPH_STORE", "AI_ADAPTER", "AI_EMBED_DIM", "AI_TIMEOUT_MIN", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"CHUNK_UNIT", "REINGEST_MODE", "QUERY_TOP_K", "QUERY_CONTEXT_WINDOW", "PORT", "OPENAI_API_KEY",
		"AI_CHAT_KEY", "AI_EMBED_KEY", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := LoadConfig()
	if cfg.GraphStore != "neo4j" || cfg.AIAdapter != "openai" {
		t.Fatalf("unexpected backends: %+v", cfg)
	}
	if cfg.EmbedDim != 1536 || cfg.TopK != 3 || cfg.Port != "8000" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ChunkSize != splitter.DefaultChunkSize || cfg.ChunkOverlap != splitter.DefaultChunkOverlap || cfg.ChunkUnit != splitter.UnitChars {
		t.Fatalf("unexpected splitter config: %+v", cfg)
	}
	if cfg.AITimeout != 5*time.Minute || cfg.ReingestMode != "append" || cfg.ContextWindow || cfg.LogJSON {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFallsBackToOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_CHAT_KEY", "")
	t.Setenv("AI_EMBED_KEY", "sk-embed")
	t.Setenv("LOG_FORMAT", "json")

	cfg := LoadConfig()
	if cfg.ChatKey != "sk-test" || cfg.EmbedKey != "sk-embed" || !cfg.LogJSON {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func testConfig() Config {
	return Config{
		GraphStore:     "memory",
		AIAdapter:      "openai",
		ChatKey:        "sk-test",
		EmbedKey:       "sk-test",
		EmbedDim:       1536,
		AIParallel:     2,
		AITimeout:      time.Minute,
		AIRetries:      1,
		ChunkSize:      500,
		ChunkOverlap:   50,
		ChunkUnit:      splitter.UnitChars,
		ReingestMode:   "replace",
		IngestParallel: 2,
		TopK:           3,
	}
}

func TestNew(t *testing.T) {
	a, err := New(t.Context(), testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := a.Store.(*memory.Store); !ok {
		t.Fatalf("store = %T", a.Store)
	}
	if a.Graph == nil || a.Query == nil || a.Resolver == nil || a.AI == nil {
		t.Fatalf("app not fully built: %+v", a)
	}
	if err := a.Close(t.Context()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "store", mutate: func(c *Config) { c.GraphStore = "sqlite" }},
		{name: "adapter", mutate: func(c *Config) { c.AIAdapter = "bard" }},
		{name: "credentials", mutate: func(c *Config) { c.ChatKey = ""; c.ChatURL = "" }},
		{name: "overlap", mutate: func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{name: "reingest mode", mutate: func(c *Config) { c.ReingestMode = "merge" }},
		{name: "schema file", mutate: func(c *Config) { c.SchemaFile = filepath.Join(t.TempDir(), "missing.yaml") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(t.Context(), cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewVocabularyFromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "vocab.yaml")
	content := "nodes:\n  - label: Ship\nrelationships:\n  - type: DOCKED_AT\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := NewVocabulary(Config{SchemaFile: p})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(v.Labels(), []string{"Ship"}) {
		t.Fatalf("labels = %v", v.Labels())
	}
}

func TestNewResolver(t *testing.T) {
	t.Setenv("AWS_BUCKET", "")
	t.Setenv("AWS_ENDPOINT", "")

	r, err := NewResolver(t.Context(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"a.txt", "b.md", "c.pdf", "d.docx", "https://example.com/page"} {
		if !r.Supported(p) {
			t.Fatalf("%s should be supported", p)
		}
	}
	for _, p := range []string{"e.xlsx", "s3://bucket/f.txt"} {
		if r.Supported(p) {
			t.Fatalf("%s should not be supported", p)
		}
	}
}
