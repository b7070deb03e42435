// Package generator turns a topic and its retrieved passages into one multiple-choice record.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/internal/rag/sampling"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

const (
	ReasonProviderError   = "provider_error"
	ReasonMalformedOutput = "malformed_output"
	ReasonInvalidRecord   = "invalid_record"
	ReasonCancelled       = "cancelled"
)

type Request struct {
	Topic          string
	Contexts       []commonModels.RetrievedChunk
	VariationID    int
	Diversity      float64
	NumChoices     int
	AvoidQuestions []string
}

type Generator struct {
	provider    llm.Provider
	logger      *logger_i.Logger
	maxAttempts int
	retryWait   time.Duration
}

func New(provider llm.Provider) *Generator {
	return &Generator{
		provider:    provider,
		logger:      logger_i.NewLogger("generator"),
		maxAttempts: config.GenerationMaxAttempts,
		retryWait:   config.GenerationRetryWait,
	}
}

// SamplingFor scales creativity and repetition penalties linearly with diversity.
func SamplingFor(diversity float64) (temperature, presence, frequency float32) {
	d := float32(sampling.Clamp(diversity, 0, 1))
	temperature = config.MinTemperature + (config.MaxTemperature-config.MinTemperature)*d
	if temperature < config.MinTemperature {
		temperature = config.MinTemperature
	}
	if temperature > config.MaxTemperature {
		temperature = config.MaxTemperature
	}
	return temperature, config.MaxPresencePenalty * d, config.MaxFrequencyPenalty * d
}

// Generate never fails: any provider error, malformed reply or schema violation yields
// the fallback record tagged with the reason.
func (g *Generator) Generate(ctx context.Context, req Request) commonModels.Generation {
	log := g.logger.WithTrace(ctx).With("topic", req.Topic, "variationId", req.VariationID)
	if req.NumChoices < config.MinNumChoices {
		req.NumChoices = config.DefaultNumChoices
	}

	temperature, presence, frequency := SamplingFor(req.Diversity)
	llmReq := llm.Request{
		SystemInstruction: config.QuestionSystemPrompt,
		Prompt:            BuildPrompt(req),
		Temperature:       temperature,
		PresencePenalty:   presence,
		FrequencyPenalty:  frequency,
	}

	var raw string
	var err error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		raw, err = g.call(ctx, llmReq)
		if err == nil || !errors.Is(err, commonModels.ErrGeneration) || attempt == g.maxAttempts {
			break
		}
		log.Warn("generation attempt failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(g.retryWait):
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		reason := ReasonProviderError
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			reason = ReasonCancelled
		}
		log.Error("generation failed, returning fallback", "error", err)
		return fallback(req.Topic, reason)
	}

	var record commonModels.GeneratedRecord
	if err = llm.DecodeJSON(raw, &record); err != nil {
		log.Warn("generation reply unusable, returning fallback", "error", err)
		return fallback(req.Topic, ReasonMalformedOutput)
	}
	record, err = Normalize(record, req.NumChoices)
	if err != nil {
		log.Warn("generated record rejected, returning fallback", "error", err)
		return fallback(req.Topic, ReasonInvalidRecord)
	}
	return commonModels.Generation{Record: record}
}

func (g *Generator) call(ctx context.Context, req llm.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.GenerationCallTimeout)
	defer cancel()
	raw, err := g.provider.GenerateJSON(callCtx, req)
	if err != nil && !errors.Is(err, commonModels.ErrGeneration) && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", commonModels.ErrGeneration, err)
	}
	return raw, err
}

func fallback(topic string, reason string) commonModels.Generation {
	metrics.IncrementFallback(reason)
	return commonModels.Generation{
		Record: commonModels.GeneratedRecord{
			Question: topic,
			Choices:  []commonModels.Choice{},
		},
		Fallback:       true,
		FallbackReason: reason,
	}
}

// Normalize fills missing choice labels by position, resolves the answer to a label and
// checks every required field. Evidence is optional.
func Normalize(rec commonModels.GeneratedRecord, numChoices int) (commonModels.GeneratedRecord, error) {
	rec.Question = strings.TrimSpace(rec.Question)
	rec.Rationale = strings.TrimSpace(rec.Rationale)
	rec.Evidence = strings.TrimSpace(rec.Evidence)
	if rec.Question == "" {
		return rec, fmt.Errorf("%w: empty question", commonModels.ErrMalformedOutput)
	}
	if len(rec.Choices) != numChoices {
		return rec, fmt.Errorf("%w: %d choices, want %d", commonModels.ErrMalformedOutput, len(rec.Choices), numChoices)
	}

	labels := make(map[string]struct{}, len(rec.Choices))
	for i := range rec.Choices {
		c := &rec.Choices[i]
		c.Label = strings.ToUpper(strings.TrimSpace(c.Label))
		c.Text = strings.TrimSpace(c.Text)
		if c.Label == "" {
			c.Label = string(rune('A' + i))
		}
		if c.Text == "" {
			return rec, fmt.Errorf("%w: choice %s has no text", commonModels.ErrMalformedOutput, c.Label)
		}
		if _, dup := labels[c.Label]; dup {
			return rec, fmt.Errorf("%w: duplicate label %s", commonModels.ErrMalformedOutput, c.Label)
		}
		labels[c.Label] = struct{}{}
	}

	answer := strings.TrimSpace(rec.Answer)
	resolved := ""
	for _, c := range rec.Choices {
		if strings.EqualFold(answer, c.Label) || strings.EqualFold(answer, c.Text) {
			resolved = c.Label
			break
		}
	}
	if resolved == "" {
		return rec, fmt.Errorf("%w: answer %q matches no choice", commonModels.ErrMalformedOutput, rec.Answer)
	}
	rec.Answer = resolved

	if rec.Rationale == "" {
		return rec, fmt.Errorf("%w: empty rationale", commonModels.ErrMalformedOutput)
	}
	return rec, nil
}

func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Variation: #%d. Make this question clearly different from other variations of the same topic.\n\n", req.VariationID)

	b.WriteString("Context passages:\n")
	for i, c := range req.Contexts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, sampling.NormalizeText(c.Content))
	}

	if len(req.AvoidQuestions) > 0 {
		b.WriteString("\nDo not repeat or paraphrase these earlier questions:\n")
		for _, q := range req.AvoidQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	labels := make([]string, req.NumChoices)
	for i := range labels {
		labels[i] = string(rune('A' + i))
	}
	fmt.Fprintf(&b, `
Write one multiple-choice question answerable only from the passages above, with exactly %d choices labelled %s.
Reply with a JSON object:
{"question": "...", "choices": [{"label": "A", "text": "..."}], "answer": "<label>", "rationale": "...", "evidence": "<short quote from a passage>"}`,
		req.NumChoices, strings.Join(labels, ", "))
	return b.String()
}
