package rag

import (
	"context"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/internal/rag/generator"
	"github.com/akolanti/QuizRAG/internal/rag/retriever"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

// pipelineState is threaded through the stages; it lives for one GenerateForTopic call.
type pipelineState struct {
	params     GenerateParams
	retrieval  retriever.State
	generation commonModels.Generation
}

func newPipelineState(p GenerateParams) pipelineState {
	return pipelineState{
		params: p,
		retrieval: retriever.State{
			Topic:       p.Topic,
			Seed:        *p.Seed,
			Diversity:   *p.Diversity,
			NumContexts: p.NumContexts,
			QueryFanout: p.QueryFanout,
		},
	}
}

func (st pipelineState) outcome() commonModels.GenerationOutcome {
	return commonModels.GenerationOutcome{
		Generation:  st.generation,
		Topic:       st.params.Topic,
		Seed:        *st.params.Seed,
		VariationId: st.params.VariationID,
		Queries:     st.retrieval.Queries,
		Contexts:    st.retrieval.Retrieved,
	}
}

func (s *service) executeExpandStep(ctx context.Context, log *logger_i.Logger, st pipelineState) pipelineState {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("expand_queries", time.Since(start)) }()

	st.retrieval.Queries = s.expander.Expand(ctx, st.params.Topic, st.retrieval.Seed, st.params.QueryFanout)
	log.Debug("queries expanded", "queries", len(st.retrieval.Queries))
	return st
}

func (s *service) executeRetrieveStep(ctx context.Context, log *logger_i.Logger, st pipelineState) (pipelineState, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieve", time.Since(start)) }()

	retrieved, err := s.retriever.Retrieve(ctx, st.retrieval)
	if err != nil {
		log.Error("retrieval aborted", "error", err)
		return st, err
	}
	st.retrieval = retrieved
	log.Debug("contexts retrieved", "contexts", len(retrieved.Retrieved))
	return st, nil
}

func (s *service) executeGenerateStep(ctx context.Context, log *logger_i.Logger, st pipelineState) pipelineState {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("generate_question", time.Since(start)) }()

	st.generation = s.generator.Generate(ctx, generator.Request{
		Topic:          st.params.Topic,
		Contexts:       st.retrieval.Retrieved,
		VariationID:    st.params.VariationID,
		Diversity:      *st.params.Diversity,
		NumChoices:     st.params.NumChoices,
		AvoidQuestions: st.params.AvoidQuestions,
	})
	if st.generation.Fallback {
		log.Warn("generator returned the fallback record", "reason", st.generation.FallbackReason)
	}
	return st
}
