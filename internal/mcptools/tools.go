// Package mcptools exposes the rag service as MCP tools so an assistant can quiz a user
// directly over stdio, without the job queue.
package mcptools

import (
	"context"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/rag"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolGenerateQuestion = "generate_question"
	ToolSearchDocument   = "search_document"
	ToolListDocuments    = "list_documents"
	ToolAskDocument      = "ask_document"
)

type Tools struct {
	service rag.Service
	logger  *logger_i.Logger
}

func New(service rag.Service) *Tools {
	return &Tools{service: service, logger: logger_i.NewLogger("mcp_tools")}
}

// Register adds every tool to the server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGenerateQuestion,
		Description: "Generate one multiple choice question about a topic, grounded in the ingested documents.",
	}, t.GenerateQuestion)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchDocument,
		Description: "Find the passages of one document most similar to a query.",
	}, t.SearchDocument)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolListDocuments,
		Description: "List ingested documents with their status and topics.",
	}, t.ListDocuments)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolAskDocument,
		Description: "Answer a question using only the passages of one document.",
	}, t.AskDocument)
}

type GenerateInput struct {
	Topic       string   `json:"topic" jsonschema:"subject of the question"`
	Seed        *int64   `json:"seed,omitempty" jsonschema:"seed for reproducible context selection"`
	Diversity   *float64 `json:"diversity,omitempty" jsonschema:"0 keeps to the most relevant passages, 1 spreads out"`
	NumContexts int      `json:"num_contexts,omitempty" jsonschema:"passages to ground the question on"`
	QueryFanout int      `json:"query_fanout,omitempty" jsonschema:"expanded queries to search with"`
	VariationId int      `json:"variation_id,omitempty" jsonschema:"asks for a different question on the same contexts"`
	NumChoices  int      `json:"num_choices,omitempty" jsonschema:"answer choices, 2 to 6"`
}

type ChoiceOutput struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type ContextOutput struct {
	Key     string  `json:"key"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type QuestionOutput struct {
	Question       string          `json:"question"`
	Choices        []ChoiceOutput  `json:"choices"`
	Answer         string          `json:"answer"`
	Rationale      string          `json:"rationale"`
	Evidence       string          `json:"evidence"`
	Fallback       bool            `json:"fallback"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
	Seed           int64           `json:"seed"`
	Queries        []string        `json:"queries"`
	Contexts       []ContextOutput `json:"contexts"`
}

func (t *Tools) GenerateQuestion(ctx context.Context, _ *mcp.CallToolRequest, in GenerateInput) (*mcp.CallToolResult, QuestionOutput, error) {
	outcome, err := t.service.GenerateForTopic(ctx, rag.GenerateParams{
		Topic:       in.Topic,
		Seed:        in.Seed,
		Diversity:   in.Diversity,
		NumContexts: in.NumContexts,
		QueryFanout: in.QueryFanout,
		VariationID: in.VariationId,
		NumChoices:  in.NumChoices,
	})
	if err != nil {
		t.logger.WithTrace(ctx).Warn("generate_question failed", "topic", in.Topic, "error", err)
		return nil, QuestionOutput{}, err
	}
	return nil, toQuestionOutput(outcome), nil
}

func toQuestionOutput(o commonModels.GenerationOutcome) QuestionOutput {
	out := QuestionOutput{
		Question:       o.Record.Question,
		Choices:        make([]ChoiceOutput, len(o.Record.Choices)),
		Answer:         o.Record.Answer,
		Rationale:      o.Record.Rationale,
		Evidence:       o.Record.Evidence,
		Fallback:       o.Fallback,
		FallbackReason: o.FallbackReason,
		Seed:           o.Seed,
		Queries:        o.Queries,
		Contexts:       make([]ContextOutput, len(o.Contexts)),
	}
	for i, c := range o.Record.Choices {
		out.Choices[i] = ChoiceOutput{Label: c.Label, Text: c.Text}
	}
	for i, c := range o.Contexts {
		out.Contexts[i] = ContextOutput{Key: c.Key, Content: c.Content, Score: c.Score}
	}
	return out
}

type SearchInput struct {
	DocumentId string `json:"document_id" jsonschema:"id returned by list_documents"`
	Query      string `json:"query" jsonschema:"text to search for"`
	K          int    `json:"k,omitempty" jsonschema:"number of passages, default 3"`
}

type PassageOutput struct {
	ChunkIndex int     `json:"chunk_index"`
	Page       int     `json:"page"`
	Content    string  `json:"content"`
	Score      float64 `json:"similarity_score"`
}

type SearchOutput struct {
	DocumentId string          `json:"document_id"`
	Results    []PassageOutput `json:"results"`
}

func (t *Tools) SearchDocument(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	chunks, err := t.service.SearchDocument(ctx, in.DocumentId, in.Query, in.K)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	out := SearchOutput{DocumentId: in.DocumentId, Results: make([]PassageOutput, len(chunks))}
	for i, c := range chunks {
		out.Results[i] = PassageOutput{ChunkIndex: c.Index, Page: c.Page, Content: c.Content, Score: c.Score}
	}
	return nil, out, nil
}

type ListInput struct{}

type DocumentOutput struct {
	Id         string   `json:"id"`
	Filename   string   `json:"filename"`
	Status     string   `json:"status"`
	Chunks     int      `json:"chunks_count"`
	Pages      int      `json:"pages"`
	UploadTime string   `json:"upload_time"`
	Topics     []string `json:"topics,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Topics    []string         `json:"topics"`
}

func (t *Tools) ListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	docs := t.service.ListDocuments()
	out := ListOutput{Documents: make([]DocumentOutput, len(docs)), Topics: t.service.Topics()}
	if out.Topics == nil {
		out.Topics = []string{}
	}
	for i, d := range docs {
		out.Documents[i] = DocumentOutput{
			Id:         d.Id,
			Filename:   d.Filename,
			Status:     string(d.Status),
			Chunks:     d.ChunkCount,
			Pages:      d.Pages,
			UploadTime: d.UploadTime.UTC().Format(time.RFC3339),
			Topics:     d.Topics,
			Error:      d.Error,
		}
	}
	return nil, out, nil
}

type AskInput struct {
	DocumentId string `json:"document_id" jsonschema:"id returned by list_documents"`
	Question   string `json:"question" jsonschema:"question about the document"`
	K          int    `json:"k,omitempty" jsonschema:"passages to answer from, default 3"`
}

type AskOutput struct {
	DocumentId string          `json:"document_id"`
	Answer     string          `json:"answer"`
	Sources    []PassageOutput `json:"sources"`
}

func (t *Tools) AskDocument(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := t.service.AskDocument(ctx, in.DocumentId, in.Question, in.K)
	if err != nil {
		t.logger.WithTrace(ctx).Warn("ask_document failed", "documentId", in.DocumentId, "error", err)
		return nil, AskOutput{}, err
	}
	out := AskOutput{DocumentId: answer.DocumentId, Answer: answer.Answer, Sources: make([]PassageOutput, len(answer.Sources))}
	for i, c := range answer.Sources {
		out.Sources[i] = PassageOutput{ChunkIndex: c.Index, Page: c.Page, Content: c.Content, Score: c.Score}
	}
	return nil, out, nil
}
