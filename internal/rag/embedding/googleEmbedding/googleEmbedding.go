package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/rag/embedding"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var initErr error
var dimension int32 = config.EmbeddingOutputDimensionality

const rateLimitBackoff = 5 * time.Second

// task types tell the model which side of a retrieval pair it embeds
const (
	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
)

type embedFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

type client struct {
	genAi     *genai.Client
	model     string
	embedCall embedFunc
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, httpClient *http.Client) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI, HTTPClient: httpClient})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		initErr = err
		return
	}
	embeddingClient = &client{
		genAi: c,
		model: modelName,
	}
	logger.Debug("Google Embedding model name: " + modelName)
	logger.Info("Google Embedding client created")
}

// GetGoogleEmbeddingClient builds the process-wide embedding client on first use.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, httpClient *http.Client) (embedding.Embedder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey, httpClient)
	})

	if embeddingClient == nil {
		if initErr == nil {
			initErr = errors.New("google embedding client unavailable")
		}
		return nil, initErr
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model, embedCall: embeddingClient.genAi.Models.EmbedContent}, nil
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := c.embed(ctx, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, taskQuery)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errors.New("google returned no embedding")
	}
	return res[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := c.embed(ctx, getContent(texts), taskDocument)
	if err != nil {
		return nil, err
	}
	if len(res) != len(texts) {
		return nil, errors.New("google returned a short embedding batch")
	}
	return res, nil
}

func (c *client) embed(ctx context.Context, contents []*genai.Content, task string) ([][]float32, error) {
	log := logger.WithTrace(ctx)

	result, err := c.doCall(ctx, contents, task)
	if err != nil && doRetry(err, log) {
		log.Debug("Retrying after rate limit", "wait", rateLimitBackoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rateLimitBackoff):
		}
		result, err = c.doCall(ctx, contents, task)
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}

	vectors := make([][]float32, 0, len(result.Embeddings))
	for _, e := range result.Embeddings {
		vectors = append(vectors, e.Values)
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, contents []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	return c.embedCall(ctx, c.model, contents, &genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: task})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// doRetry reports whether err is a quota error worth one more attempt.
func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}
