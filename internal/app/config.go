package app

import (
	"time"

	"github.com/OFFIS-RIT/graphrag/internal/util"
	"github.com/OFFIS-RIT/graphrag/pkg/splitter"
)

// Config is the process configuration read from the environment.
type Config struct {
	GraphStore string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
	DatabaseURL   string

	AIAdapter      string
	ChatURL        string
	ChatKey        string
	EmbedURL       string
	EmbedKey       string
	ExtractModel   string
	AnswerModel    string
	EmbedModel     string
	EmbedDim       int
	AIParallel     int
	AITimeout      time.Duration
	AIRetries      int
	SchemaFile     string
	ChunkSize      int
	ChunkOverlap   int
	ChunkUnit      splitter.Unit
	ReingestMode   string
	IngestParallel int
	TopK           int
	ContextWindow  bool
	GraphFacts     bool
	Port           string
	AuthURL        string
	MasterAPIKey   string
	Debug          bool
	LogJSON        bool
}

// LoadConfig reads the configuration. Call util.LoadEnv first to pick up a
// .env file.
func LoadConfig() Config {
	openAIKey := util.GetEnv("OPENAI_API_KEY")
	return Config{
		GraphStore: util.GetEnvString("GRAPH_STORE", "neo4j"),

		Neo4jURI:      util.GetEnvString("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     util.GetEnvString("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: util.GetEnvString("NEO4J_PASSWORD", "password"),
		Neo4jDatabase: util.GetEnv("NEO4J_DATABASE"),
		DatabaseURL:   util.GetEnv("DATABASE_URL"),

		AIAdapter:      util.GetEnvString("AI_ADAPTER", "openai"),
		ChatURL:        util.GetEnv("AI_CHAT_URL"),
		ChatKey:        util.GetEnvFirst(openAIKey, "AI_CHAT_KEY"),
		EmbedURL:       util.GetEnv("AI_EMBED_URL"),
		EmbedKey:       util.GetEnvFirst(openAIKey, "AI_EMBED_KEY"),
		ExtractModel:   util.GetEnvString("AI_EXTRACT_MODEL", "gpt-4o"),
		AnswerModel:    util.GetEnvString("AI_ANSWER_MODEL", "gpt-4o"),
		EmbedModel:     util.GetEnvString("AI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:       util.GetEnvInt("AI_EMBED_DIM", 1536),
		AIParallel:     util.GetEnvInt("AI_PARALLEL_REQ", 4),
		AITimeout:      time.Duration(util.GetEnvNumeric("AI_TIMEOUT_MIN", 5) * float64(time.Minute)),
		AIRetries:      util.GetEnvInt("AI_RETRIES", 3),
		SchemaFile:     util.GetEnv("GRAPH_SCHEMA_FILE"),
		ChunkSize:      util.GetEnvInt("CHUNK_SIZE", splitter.DefaultChunkSize),
		ChunkOverlap:   util.GetEnvInt("CHUNK_OVERLAP", splitter.DefaultChunkOverlap),
		ChunkUnit:      splitter.Unit(util.GetEnvString("CHUNK_UNIT", string(splitter.UnitChars))),
		ReingestMode:   util.GetEnvString("REINGEST_MODE", "append"),
		IngestParallel: util.GetEnvInt("INGEST_PARALLEL", 1),
		TopK:           util.GetEnvInt("QUERY_TOP_K", 3),
		ContextWindow:  util.GetEnvBool("QUERY_CONTEXT_WINDOW", false),
		GraphFacts:     util.GetEnvBool("QUERY_GRAPH_FACTS", false),
		Port:           util.GetEnvString("PORT", "8000"),
		AuthURL:        util.GetEnv("AUTH_URL"),
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		Debug:          util.GetEnvBool("DEBUG", false),
		LogJSON:        util.GetEnvString("LOG_FORMAT", "text") == "json",
	}
}
