package rag

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/internal/rag/chat"
	"github.com/akolanti/QuizRAG/internal/rag/chunkStore"
	"github.com/akolanti/QuizRAG/internal/rag/embedding"
	"github.com/akolanti/QuizRAG/internal/rag/expander"
	"github.com/akolanti/QuizRAG/internal/rag/gate"
	"github.com/akolanti/QuizRAG/internal/rag/generator"
	"github.com/akolanti/QuizRAG/internal/rag/ingest"
	"github.com/akolanti/QuizRAG/internal/rag/llm"
	"github.com/akolanti/QuizRAG/internal/rag/retriever"
	"github.com/akolanti/QuizRAG/internal/rag/topics"
	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

/*
Service is the only thing the worker, the http handlers and the mcp tools talk to.
The private service struct owns the chunk store and the pipeline stages; callers never
see the index, the embedder or the llm directly, which keeps them swappable in tests.
*/

var (
	ErrEmptyTopic    = errors.New("topic is required")
	ErrEmptyQuestion = errors.New("question is required")
)

type Service interface {
	GenerateForTopic(ctx context.Context, params GenerateParams) (commonModels.GenerationOutcome, error)
	ProcessGenerateJob(ctx context.Context, job jobModel.Job, avoidQuestions []string) jobModel.Job

	IngestChunks(ctx context.Context, documentId string, chunks []commonModels.ChunkInput, info commonModels.DocumentInfo) (commonModels.Document, error)
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job

	SearchDocument(ctx context.Context, documentId string, query string, k int) ([]commonModels.ScoredChunk, error)
	AskDocument(ctx context.Context, documentId string, question string, k int) (commonModels.Answer, error)
	ProcessAskJob(ctx context.Context, job jobModel.Job, history []commonModels.ChatExchange) jobModel.Job
	RemoveDocument(ctx context.Context, documentId string) error
	ListDocuments() []commonModels.Document
	GetDocument(documentId string) (commonModels.Document, error)
	Topics() []string

	ExportSnapshot() []chunkStore.DocumentSnapshot
	RestoreSnapshot(ctx context.Context, snaps []chunkStore.DocumentSnapshot) (int, error)
}

// Dependencies are the external collaborators. Embedder and Provider are wrapped in the
// shared concurrency gate here, so callers pass the raw clients.
type Dependencies struct {
	Index          vectorDB.Index
	Embedder       embedding.Embedder
	Provider       llm.Provider
	ExpansionCache expander.Cache
	Gate           *gate.Gate
}

type service struct {
	store     *chunkStore.Store
	expander  *expander.Expander
	retriever *retriever.Retriever
	generator *generator.Generator
	topics    *topics.Extractor
	chat      *chat.Responder
	logger    *logger_i.Logger
	now       func() time.Time
}

func NewService(deps Dependencies) Service {
	g := deps.Gate
	if g == nil {
		g = gate.New(config.EmbeddingGateSize)
		g.Observe(metrics.SetGateInFlight)
	}
	embedder := embedding.NewGatedEmbedder(deps.Embedder, g, config.EmbeddingCallTimeout)
	provider := llm.NewGatedProvider(deps.Provider, g, config.GenerationCallTimeout)
	store := chunkStore.New(deps.Index, embedder)

	return &service{
		store:     store,
		expander:  expander.New(provider, deps.ExpansionCache),
		retriever: retriever.New(store),
		generator: generator.New(provider),
		topics:    topics.New(provider),
		chat:      chat.New(provider),
		logger:    logger_i.NewLogger("rag_service"),
		now:       time.Now,
	}
}

// GenerateForTopic runs expand_queries -> retrieve -> generate_question. An empty retrieval
// stops the run with ErrNoContext before the generator is called.
func (s *service) GenerateForTopic(ctx context.Context, params GenerateParams) (commonModels.GenerationOutcome, error) {
	params, err := s.normalize(params)
	if err != nil {
		return commonModels.GenerationOutcome{}, err
	}
	state := newPipelineState(params)
	log := s.logger.WithTrace(ctx).With("topic", params.Topic, "seed", *params.Seed)

	state = s.executeExpandStep(ctx, log, state)

	state, err = s.executeRetrieveStep(ctx, log, state)
	if err != nil {
		return commonModels.GenerationOutcome{}, err
	}
	if len(state.retrieval.Retrieved) == 0 {
		metrics.IncrementNoContext()
		log.Warn("no usable context retrieved, not generating")
		return commonModels.GenerationOutcome{}, commonModels.ErrNoContext
	}

	state = s.executeGenerateStep(ctx, log, state)
	return state.outcome(), nil
}

func (s *service) ProcessGenerateJob(ctx context.Context, job jobModel.Job, avoidQuestions []string) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	if job.JobPayload.Generate == nil {
		return s.jobError(job, ErrEmptyTopic, "missing generate request")
	}

	job.CurrentStep = jobModel.ExpandQueries
	outcome, err := s.GenerateForTopic(ctx, ParamsFromRequest(*job.JobPayload.Generate, avoidQuestions))
	if err != nil {
		return s.jobError(job, err, "GENERATION_FAILURE")
	}

	log.Debug("generation complete", "fallback", outcome.Fallback)
	job.JobPayload.Outcome = &outcome
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

// IngestChunks stores a document and then labels it with topics. Topic extraction
// failures never change the document's status.
func (s *service) IngestChunks(ctx context.Context, documentId string, chunks []commonModels.ChunkInput, info commonModels.DocumentInfo) (commonModels.Document, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	doc, err := s.store.AddDocument(ctx, documentId, chunks, info)
	if err != nil {
		return doc, err
	}

	stored, err := s.store.Chunks(documentId)
	if err != nil {
		return doc, nil
	}
	labels := s.topics.Extract(ctx, stored)
	if len(labels) > 0 {
		s.store.SetTopics(documentId, labels)
		doc.Topics = labels
	}
	return doc, nil
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.IngestProcessing
	doc, err := ingest.ProcessDocumentIngestion(ctx, job, s)
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE")
	}
	job.JobPayload.Document = &doc
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *service) SearchDocument(ctx context.Context, documentId string, query string, k int) ([]commonModels.ScoredChunk, error) {
	if k < 1 {
		k = config.DefaultSearchK
	}
	if k > config.MaxSearchK {
		k = config.MaxSearchK
	}
	return s.store.SearchDocument(ctx, documentId, query, k)
}

// AskDocument answers a question from the k passages of one ready document closest to it.
func (s *service) AskDocument(ctx context.Context, documentId string, question string, k int) (commonModels.Answer, error) {
	return s.ask(ctx, documentId, question, k, nil)
}

func (s *service) ProcessAskJob(ctx context.Context, job jobModel.Job, history []commonModels.ChatExchange) jobModel.Job {
	if job.JobPayload.Ask == nil {
		return s.jobError(job, ErrEmptyQuestion, "missing ask request")
	}

	job.CurrentStep = jobModel.AnswerQuestion
	answer, err := s.ask(ctx, job.JobPayload.DocumentId, job.JobPayload.Ask.Question, job.JobPayload.Ask.K, history)
	if err != nil {
		return s.jobError(job, err, "ANSWER_FAILURE")
	}
	job.JobPayload.Answer = &answer
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *service) ask(ctx context.Context, documentId string, question string, k int, history []commonModels.ChatExchange) (commonModels.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return commonModels.Answer{}, ErrEmptyQuestion
	}
	log := s.logger.WithTrace(ctx).With("documentId", documentId)

	passages, err := s.SearchDocument(ctx, documentId, question, k)
	if err != nil {
		return commonModels.Answer{}, err
	}
	if len(passages) == 0 {
		metrics.IncrementNoContext()
		return commonModels.Answer{}, commonModels.ErrNoContext
	}

	start := time.Now()
	text, err := s.chat.Answer(ctx, chat.Request{Question: question, Passages: passages, History: history})
	metrics.CaptureExecutionMetrics("answer_question", time.Since(start))
	if err != nil {
		log.Error("answering failed", "error", err)
		return commonModels.Answer{}, err
	}
	return commonModels.Answer{DocumentId: documentId, Question: question, Answer: text, Sources: passages}, nil
}

func (s *service) RemoveDocument(ctx context.Context, documentId string) error {
	return s.store.RemoveDocument(ctx, documentId)
}

func (s *service) ListDocuments() []commonModels.Document {
	return s.store.ListDocuments()
}

func (s *service) GetDocument(documentId string) (commonModels.Document, error) {
	return s.store.GetDocument(documentId)
}

// Topics is the sorted union of topic labels across ready documents.
func (s *service) Topics() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, doc := range s.store.ListDocuments() {
		if doc.Status != commonModels.StatusReady {
			continue
		}
		for _, t := range doc.Topics {
			key := strings.ToLower(t)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}

func (s *service) ExportSnapshot() []chunkStore.DocumentSnapshot {
	return s.store.Export()
}

func (s *service) RestoreSnapshot(ctx context.Context, snaps []chunkStore.DocumentSnapshot) (int, error) {
	return s.store.Restore(ctx, snaps)
}
