// Package bootstrap builds the rag service and its snapshot store from deployment settings.
// Both the http api and the mcp server start through here.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/customHttpClient"
	"github.com/akolanti/QuizRAG/internal/data/boltStore"
	"github.com/akolanti/QuizRAG/internal/rag"
	"github.com/akolanti/QuizRAG/internal/rag/embedding"
	"github.com/akolanti/QuizRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/QuizRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/QuizRAG/internal/rag/expander"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/internal/rag/llm/gemini"
	"github.com/akolanti/QuizRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("bootstrap")

func NewIndex(ctx context.Context, settings config.Settings) (vectorDB.Index, error) {
	if settings.VectorBackend == config.BackendQdrant {
		return qdrantDB.GetQdrantClient(ctx, settings.QdrantHost, settings.QdrantPort)
	}
	return memoryDB.New(int(config.EmbeddingOutputDimensionality)), nil
}

func NewEmbedder(ctx context.Context, settings config.Settings) (embedding.Embedder, error) {
	httpClient := customHttpClient.Client()
	switch settings.EmbeddingProvider {
	case config.ProviderOpenAI:
		return openaiEmbedding.NewEmbedder(settings.OpenAIAPIKey, config.OpenAIEmbeddingModel, httpClient)
	default:
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel, settings.GoogleAPIKey, httpClient)
	}
}

func NewProvider(ctx context.Context, settings config.Settings) (llm.Provider, error) {
	httpClient := customHttpClient.Client()
	switch settings.LLMProvider {
	case config.ProviderOpenAI:
		return openaiLLM.NewChatClient(settings.OpenAIAPIKey, config.OpenAIChatModel, httpClient)
	default:
		return gemini.GetGeminiClient(ctx, config.GeminiModelName, settings.GoogleAPIKey, httpClient)
	}
}

// NewRagService wires the index and both providers. Any client that fails to start is fatal.
func NewRagService(ctx context.Context, settings config.Settings, cache expander.Cache) (rag.Service, error) {
	index, err := NewIndex(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}
	embedder, err := NewEmbedder(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("embedding provider %s: %w", settings.EmbeddingProvider, err)
	}
	provider, err := NewProvider(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("llm provider %s: %w", settings.LLMProvider, err)
	}
	logger.Info("External services ready",
		"vectorBackend", settings.VectorBackend,
		"embeddingProvider", settings.EmbeddingProvider,
		"llmProvider", settings.LLMProvider)

	return rag.NewService(rag.Dependencies{
		Index:          index,
		Embedder:       embedder,
		Provider:       provider,
		ExpansionCache: cache,
	}), nil
}

// Snapshots persists ready documents across restarts. A zero value (no path configured) does nothing.
type Snapshots struct {
	store *boltStore.SnapshotStore
}

func OpenSnapshots(path string) (*Snapshots, error) {
	if path == "" {
		return &Snapshots{}, nil
	}
	s, err := boltStore.Open(path)
	if err != nil {
		return nil, err
	}
	return &Snapshots{store: s}, nil
}

// Restore replays stored vectors into the service without re-embedding and returns the document count.
func (s *Snapshots) Restore(ctx context.Context, svc rag.Service) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	snaps, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	return svc.RestoreSnapshot(ctx, snaps)
}

func (s *Snapshots) Save(svc rag.Service) {
	if s.store == nil {
		return
	}
	snaps := svc.ExportSnapshot()
	if err := s.store.Save(snaps); err != nil {
		logger.Error("Could not save snapshot", "error", err)
		return
	}
	logger.Info("Snapshot saved", "documents", len(snaps))
}

func (s *Snapshots) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		logger.Warn("Could not close snapshot store", "error", err)
	}
}
