package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var initErr error
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string, apikey string, httpClient *http.Client) (llm.Provider, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey, httpClient)
	})

	if geminiClient == nil {
		if initErr == nil {
			initErr = errors.New("gemini client unavailable")
		}
		return nil, initErr
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}, nil
}

func newGeminiClient(ctx context.Context, modelName string, apikey string, httpClient *http.Client) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI, HTTPClient: httpClient})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		initErr = err
		return
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Debug("Gemini client created", "model", modelName)
	logger.Info("Gemini client created")
}

func (c *llmClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	log := logger.WithTrace(ctx)

	contentConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		PresencePenalty:  genai.Ptr(req.PresencePenalty),
		FrequencyPenalty: genai.Ptr(req.FrequencyPenalty),
		ResponseMIMEType: "application/json",
	}
	if req.SystemInstruction != "" {
		contentConfig.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(req.Prompt), contentConfig)
	if err != nil {
		log.Error("Gemini generate failed", "error", err)
		return "", err
	}
	text := result.Text()
	if text == "" {
		return "", errors.New("gemini returned an empty reply")
	}
	return text, nil
}
