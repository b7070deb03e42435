// Package retriever gathers a diverse, deduplicated and seed-sampled context set for a topic.
package retriever

import (
	"context"
	"maps"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/internal/rag/chunkStore"
	"github.com/akolanti/QuizRAG/internal/rag/sampling"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// Source is the searchable corpus: ready documents only.
type Source interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	SearchReady(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error)
}

// State is the pipeline-scoped record threaded through expansion, retrieval and generation.
type State struct {
	Topic       string
	Seed        int64
	Diversity   float64
	Queries     []string
	NumContexts int
	QueryFanout int
	Retrieved   []commonModels.RetrievedChunk
}

type Params struct {
	K      int
	FetchK int
	Lambda float64
}

// ParamsFor scales search breadth and the MMR trade-off with diversity.
func ParamsFor(diversity float64) Params {
	d := sampling.Clamp(diversity, 0, 1)
	p := Params{
		K:      config.LowDiversityK,
		FetchK: config.LowDiversityFetchK,
		Lambda: config.MMRLambdaBase + config.MMRLambdaSpan*d,
	}
	if d >= config.LowDiversityCutoff {
		p.K = config.HighDiversityK
		p.FetchK = config.HighDiversityFetchK
	}
	return p
}

type Retriever struct {
	source Source
	logger *logger_i.Logger
}

func New(source Source) *Retriever {
	return &Retriever{source: source, logger: logger_i.NewLogger("retriever")}
}

// Retrieve fills state.Retrieved. A failing query is logged and skipped. The only error
// returned is the caller's cancellation; an empty result is not an error here.
func (r *Retriever) Retrieve(ctx context.Context, state State) (State, error) {
	log := r.logger.WithTrace(ctx).With("topic", state.Topic, "seed", state.Seed)

	queries := SelectQueries(state)
	params := ParamsFor(state.Diversity)
	log.Debug("retrieving", "queries", len(queries), "k", params.K, "fetchK", params.FetchK, "lambda", params.Lambda)

	perQuery := make([][]vectorDB.Match, len(queries))
	var g errgroup.Group
	g.SetLimit(config.RetrievalQueryLimit)
	for i, q := range queries {
		g.Go(func() error {
			matches, err := r.searchOne(ctx, q, params)
			if err != nil {
				log.Warn("query failed, skipping", "query", q, "error", err)
				metrics.IncrementSkippedQuery()
				return nil
			}
			perQuery[i] = matches
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return state, err
	}

	merged := Dedupe(perQuery)
	sampled := sampling.Take(sampling.Shuffled(merged, state.Seed), state.NumContexts)

	state.Queries = queries
	state.Retrieved = sampled
	log.Debug("retrieved", "unique", len(merged), "kept", len(sampled))
	return state, nil
}

func (r *Retriever) searchOne(ctx context.Context, query string, params Params) ([]vectorDB.Match, error) {
	vector, err := r.source.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	candidates, err := r.source.SearchReady(ctx, vector, params.FetchK)
	metrics.CaptureExecutionMetrics("vector_search", time.Since(start))
	if err != nil {
		return nil, err
	}
	return MMR(candidates, params.K, params.Lambda), nil
}

// SelectQueries reshuffles the expanded queries with the state's seed and keeps QueryFanout of them.
// With no queries the topic itself is searched.
func SelectQueries(state State) []string {
	if len(state.Queries) == 0 {
		return []string{state.Topic}
	}
	fanout := state.QueryFanout
	if fanout < 1 {
		fanout = 1
	}
	return sampling.Take(sampling.Shuffled(state.Queries, state.Seed), fanout)
}

// Dedupe merges per-query results in query order, keeping the first occurrence of each
// passage after whitespace normalization.
func Dedupe(perQuery [][]vectorDB.Match) []commonModels.RetrievedChunk {
	seen := make(map[string]struct{})
	out := make([]commonModels.RetrievedChunk, 0)
	for _, matches := range perQuery {
		for _, m := range matches {
			content := m.Metadata[chunkStore.MetaContent]
			norm := sampling.NormalizeText(content)
			if norm == "" {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}

			meta := maps.Clone(m.Metadata)
			delete(meta, chunkStore.MetaContent)
			out = append(out, commonModels.RetrievedChunk{
				Key:      m.Key,
				Content:  content,
				Metadata: meta,
				Score:    m.Score,
			})
		}
	}
	return out
}
