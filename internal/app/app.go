// Package app builds the collaborators a process owns from its
// configuration and releases them again on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/graphrag/internal/storage"
	"github.com/OFFIS-RIT/graphrag/pkg/ai"
	oai "github.com/OFFIS-RIT/graphrag/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/graphrag/pkg/ai/openai"
	"github.com/OFFIS-RIT/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/graphrag/pkg/loader"
	"github.com/OFFIS-RIT/graphrag/pkg/loader/doc"
	loaderio "github.com/OFFIS-RIT/graphrag/pkg/loader/io"
	"github.com/OFFIS-RIT/graphrag/pkg/loader/pdf"
	"github.com/OFFIS-RIT/graphrag/pkg/loader/web"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/graphrag/pkg/logger/console"
	"github.com/OFFIS-RIT/graphrag/pkg/query"
	"github.com/OFFIS-RIT/graphrag/pkg/schema"
	"github.com/OFFIS-RIT/graphrag/pkg/splitter"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
	"github.com/OFFIS-RIT/graphrag/pkg/store/memory"
	"github.com/OFFIS-RIT/graphrag/pkg/store/neo4j"
	"github.com/OFFIS-RIT/graphrag/pkg/store/pgx"
)

// App holds the owned collaborators of one process. It is created by New
// and must be closed with Close.
type App struct {
	Config     Config
	Store      store.GraphStorage
	AI         ai.GraphAIClient
	Vocabulary *schema.Vocabulary
	Resolver   *loader.Resolver
	Graph      *graph.GraphClient
	Query      *query.GraphQueryClient
}

// InitLogger installs the console logger.
func InitLogger(cfg Config, prefix string) {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		JSON:   cfg.LogJSON,
		Prefix: prefix,
	}))
}

// New builds every collaborator from cfg. On error nothing stays open.
func New(ctx context.Context, cfg Config) (*App, error) {
	vocab, err := NewVocabulary(cfg)
	if err != nil {
		return nil, err
	}
	aiClient, err := NewAIClient(cfg)
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sp, err := splitter.New(splitter.Params{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Unit:         cfg.ChunkUnit,
	})
	if err != nil {
		return nil, err
	}
	extractor, err := graph.NewLLMExtractor(graph.NewLLMExtractorParams{
		Client:     aiClient,
		Vocabulary: vocab,
		MaxRetries: cfg.AIRetries,
		Backoff:    time.Second,
	})
	if err != nil {
		return nil, err
	}

	st, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	g, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Store:         st,
		Embedder:      aiClient,
		Extractor:     extractor,
		Vocabulary:    vocab,
		Splitter:      sp,
		Loader:        resolver,
		ReingestMode:  graph.ReingestMode(cfg.ReingestMode),
		ParallelFiles: cfg.IngestParallel,
		Dimensions:    cfg.EmbedDim,
	})
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	q := query.NewGraphQueryClient(
		aiClient,
		st,
		query.WithTopK(cfg.TopK),
		query.WithContextWindow(cfg.ContextWindow),
		query.WithGraphFacts(cfg.GraphFacts),
	)

	return &App{
		Config:     cfg,
		Store:      st,
		AI:         aiClient,
		Vocabulary: vocab,
		Resolver:   resolver,
		Graph:      g,
		Query:      q,
	}, nil
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close(ctx)
}

// LogMetrics logs and resets the accumulated model usage.
func (a *App) LogMetrics() {
	m := a.AI.GetMetrics()
	d := time.Duration(m.DurationMs) * time.Millisecond
	logger.Info(
		"AI Metrics",
		"requests", m.Requests,
		"input_tokens", m.InputTokens,
		"output_tokens", m.OutputTokens,
		"total_tokens", m.TotalTokens,
		"duration", fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60),
	)
	a.AI.ResetMetrics()
}

// NewVocabulary loads GRAPH_SCHEMA_FILE or returns the built-in vocabulary.
func NewVocabulary(cfg Config) (*schema.Vocabulary, error) {
	if cfg.SchemaFile == "" {
		return schema.Default(), nil
	}
	return schema.Load(cfg.SchemaFile)
}

// NewStore opens the configured graph store.
func NewStore(ctx context.Context, cfg Config) (store.GraphStorage, error) {
	switch cfg.GraphStore {
	case "", "neo4j":
		return neo4j.NewGraphNeo4jStorage(ctx, neo4j.NewGraphNeo4jStorageParams{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
	case "postgres":
		return pgx.NewGraphDBStorage(ctx, pgx.NewGraphDBStorageParams{
			DatabaseURL: cfg.DatabaseURL,
			Dimensions:  cfg.EmbedDim,
		})
	case "memory":
		logger.Warn("Using the in-memory graph store, nothing is persisted")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown GRAPH_STORE %q", cfg.GraphStore)
}

// NewAIClient creates the configured language model client.
func NewAIClient(cfg Config) (ai.GraphAIClient, error) {
	switch cfg.AIAdapter {
	case "ollama":
		return oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			EmbeddingModel:  cfg.EmbedModel,
			ExtractionModel: cfg.ExtractModel,
			AnswerModel:     cfg.AnswerModel,
			EmbeddingDim:    cfg.EmbedDim,

			BaseURL: cfg.ChatURL,
			ApiKey:  cfg.ChatKey,

			MaxConcurrentRequests: int64(cfg.AIParallel),
			Timeout:               cfg.AITimeout,
		})
	case "", "openai":
		if cfg.ChatKey == "" && cfg.ChatURL == "" {
			return nil, errors.New("no model credentials: set OPENAI_API_KEY or AI_CHAT_KEY")
		}
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			EmbeddingModel:  cfg.EmbedModel,
			ExtractionModel: cfg.ExtractModel,
			AnswerModel:     cfg.AnswerModel,
			EmbeddingDim:    cfg.EmbedDim,

			EmbeddingURL: cfg.EmbedURL,
			EmbeddingKey: cfg.EmbedKey,
			ChatURL:      cfg.ChatURL,
			ChatKey:      cfg.ChatKey,

			MaxConcurrentRequests: int64(cfg.AIParallel),
			Timeout:               cfg.AITimeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown AI_ADAPTER %q", cfg.AIAdapter)
}

// NewResolver registers the sources and parsers. The s3 source is only
// added when object storage is configured.
func NewResolver(ctx context.Context, cfg Config) (*loader.Resolver, error) {
	r := loader.NewResolver()
	r.RegisterSource(loaderio.NewIOGraphFileLoader(), "file")
	r.RegisterSource(web.NewWebGraphLoader(), "http", "https")
	if storage.Enabled() {
		s3Loader, err := storage.NewS3Loader(ctx)
		if err != nil {
			return nil, err
		}
		r.RegisterSource(s3Loader, "s3")
	}

	// web pages arrive as readable text from the http source
	r.RegisterParser(loader.NewTextGraphLoader(), ".txt", ".md", ".html")
	r.RegisterParser(pdf.NewPDFGraphLoader(), ".pdf")
	r.RegisterParser(doc.NewDocGraphLoader(), ".docx")
	return r, nil
}
