package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/gate"
)

// Request is a single structured-output call. The model is asked to reply with one JSON object.
type Request struct {
	SystemInstruction string
	Prompt            string
	Temperature       float32
	PresencePenalty   float32
	FrequencyPenalty  float32
}

type Provider interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

type gatedProvider struct {
	inner   Provider
	gate    *gate.Gate
	timeout time.Duration
}

// NewGatedProvider routes every call of inner through g, each bounded by timeout.
// Failures come back wrapped in ErrGeneration.
func NewGatedProvider(inner Provider, g *gate.Gate, timeout time.Duration) Provider {
	return &gatedProvider{inner: inner, gate: g, timeout: timeout}
}

func (p *gatedProvider) GenerateJSON(ctx context.Context, req Request) (string, error) {
	var out string
	err := p.gate.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		text, err := p.inner.GenerateJSON(callCtx, req)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, commonModels.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", commonModels.ErrGeneration, err)
	}
	return out, nil
}

// DecodeJSON unmarshals the first JSON object in raw into v, tolerating markdown code fences
// and chatter around the object.
func DecodeJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no json object in reply", commonModels.ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %w", commonModels.ErrMalformedOutput, err)
	}
	return nil
}
