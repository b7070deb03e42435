package openaiLLM

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type chatClient struct {
	client openai.Client
	model  string
	logger *logger_i.Logger
}

// NewChatClient returns a Provider backed by the OpenAI chat completions api.
func NewChatClient(apiKey string, model string, httpClient *http.Client) (llm.Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &chatClient{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger_i.NewLogger("llm_openai"),
	}, nil
}

func (c *chatClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.WithTrace(ctx)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(c.model),
		Messages:         messages,
		Temperature:      openai.Float(float64(req.Temperature)),
		PresencePenalty:  openai.Float(float64(req.PresencePenalty)),
		FrequencyPenalty: openai.Float(float64(req.FrequencyPenalty)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		log.Error("OpenAI completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned an empty reply")
	}
	return resp.Choices[0].Message.Content, nil
}
