// Package expander turns a study topic into a seeded selection of search queries.
package expander

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/internal/rag/sampling"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

// Cache keeps raw, unshuffled query lists per topic.
type Cache interface {
	GetQueries(ctx context.Context, topic string) ([]string, bool)
	SaveQueries(ctx context.Context, topic string, queries []string) error
}

type Expander struct {
	provider llm.Provider
	cache    Cache
	logger   *logger_i.Logger
}

// New builds an Expander. cache may be nil.
func New(provider llm.Provider, cache Cache) *Expander {
	return &Expander{
		provider: provider,
		cache:    cache,
		logger:   logger_i.NewLogger("query_expander"),
	}
}

type expansionReply struct {
	Queries []string `json:"queries"`
}

// Expand returns at most 2*fanout queries for topic, shuffled by seed.
// If the provider fails or replies with nothing usable the result is [topic].
func (e *Expander) Expand(ctx context.Context, topic string, seed int64, fanout int) []string {
	return SelectQueries(e.RawQueries(ctx, topic), seed, fanout)
}

// RawQueries returns the provider's cleaned query list before any shuffling.
func (e *Expander) RawQueries(ctx context.Context, topic string) []string {
	log := e.logger.WithTrace(ctx).With("topic", topic)

	if e.cache != nil {
		if cached, ok := e.cache.GetQueries(ctx, topic); ok && len(cached) > 0 {
			log.Debug("expansion cache hit", "queries", len(cached))
			return cached
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, config.ExpansionCallTimeout)
	defer cancel()

	raw, err := e.provider.GenerateJSON(callCtx, llm.Request{
		SystemInstruction: config.ExpansionSystemPrompt,
		Prompt:            buildPrompt(topic),
		Temperature:       config.ExpansionTemperature,
	})
	if err != nil {
		log.Warn("query expansion failed, using the topic alone", "error", err)
		return []string{topic}
	}

	var reply expansionReply
	if err = llm.DecodeJSON(raw, &reply); err != nil {
		log.Warn("query expansion reply unusable, using the topic alone", "error", err)
		return []string{topic}
	}

	queries := CleanQueries(reply.Queries)
	if len(queries) == 0 {
		log.Warn("query expansion returned no queries, using the topic alone")
		return []string{topic}
	}
	if len(queries) < config.MinExpandedQueries {
		log.Debug("fewer expanded queries than asked for", "got", len(queries))
	}

	if e.cache != nil {
		if err = e.cache.SaveQueries(ctx, topic, queries); err != nil {
			log.Warn("could not cache expanded queries", "error", err)
		}
	}
	return queries
}

// SelectQueries shuffles raw with seed and keeps min(2*fanout, len(raw)). raw is not modified.
func SelectQueries(raw []string, seed int64, fanout int) []string {
	if fanout < 1 {
		fanout = 1
	}
	return sampling.Take(sampling.Shuffled(raw, seed), 2*fanout)
}

// CleanQueries trims, drops empties and case-insensitive duplicates, and caps the list.
func CleanQueries(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = sampling.NormalizeText(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == config.MaxExpandedQueries {
			break
		}
	}
	return out
}

func buildPrompt(topic string) string {
	return fmt.Sprintf(`Topic: %q

Write between %d and %d short search queries that would find passages about this topic in study notes.
Cover synonyms, the canonical terminology, named entities and distinct subtopics. Keep each query under 12 words.
Reply with a JSON object of the form {"queries": ["...", "..."]}.`, topic, config.MinExpandedQueries, config.MaxExpandedQueries)
}

