// Package topics labels a document with short study topics sampled from its opening chunks.
package topics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/internal/rag/sampling"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

const labelsPerChunk = 3

type Extractor struct {
	provider llm.Provider
	logger   *logger_i.Logger
}

// New expects a gated provider; Extract issues one call per sampled chunk concurrently.
func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider, logger: logger_i.NewLogger("topic_extractor")}
}

type topicReply struct {
	Topics []string `json:"topics"`
}

// Extract returns deduplicated topic labels in chunk order. A chunk whose call fails is skipped.
func (e *Extractor) Extract(ctx context.Context, chunks []commonModels.DocChunk) []string {
	log := e.logger.WithTrace(ctx)
	sample := chunks
	if len(sample) > config.TopicSampleChunks {
		sample = sample[:config.TopicSampleChunks]
	}

	perChunk := make([][]string, len(sample))
	var wg sync.WaitGroup
	for i, c := range sample {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labels, err := e.extractOne(ctx, c.Content)
			if err != nil {
				log.Warn("topic extraction failed for chunk, skipping", "chunk", c.Key, "error", err)
				return
			}
			perChunk[i] = labels
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{})
	out := make([]string, 0, config.MaxTopicsPerDocument)
	for _, labels := range perChunk {
		for _, l := range labels {
			l = sampling.NormalizeText(l)
			key := strings.ToLower(l)
			if l == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, l)
			if len(out) == config.MaxTopicsPerDocument {
				return out
			}
		}
	}
	return out
}

func (e *Extractor) extractOne(ctx context.Context, content string) ([]string, error) {
	raw, err := e.provider.GenerateJSON(ctx, llm.Request{
		SystemInstruction: config.TopicSystemPrompt,
		Prompt: fmt.Sprintf(`Passage:
%s

Name up to %d short study topics (2 to 5 words each) this passage covers.
Reply with a JSON object of the form {"topics": ["...", "..."]}.`, content, labelsPerChunk),
		Temperature: config.MinTemperature,
	})
	if err != nil {
		return nil, err
	}
	var reply topicReply
	if err = llm.DecodeJSON(raw, &reply); err != nil {
		return nil, err
	}
	if len(reply.Topics) > labelsPerChunk {
		reply.Topics = reply.Topics[:labelsPerChunk]
	}
	return reply.Topics, nil
}
