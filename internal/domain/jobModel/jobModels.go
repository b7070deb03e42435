package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	GenerateInit  InternalStatus = "Init"
	HistoryCall   InternalStatus = "History"
	ExpandQueries InternalStatus = "ExpandQueries"

	AskInit        InternalStatus = "AskInit"
	AnswerQuestion InternalStatus = "Answer"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeGenerate JobType = "Generate"
	JobTypeIngest   JobType = "Ingest"
	JobTypeAsk      JobType = "Ask"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// GenerateRequest carries the caller's generation knobs. Zero values mean "use the default";
// Seed and Diversity are pointers because zero is a meaningful value for both.
type GenerateRequest struct {
	Topic       string   `json:"topic"`
	Seed        *int64   `json:"seed,omitempty"`
	Diversity   *float64 `json:"diversity,omitempty"`
	NumContexts int      `json:"num_contexts,omitempty"`
	QueryFanout int      `json:"query_fanout,omitempty"`
	VariationId int      `json:"variation_id,omitempty"`
	NumChoices  int      `json:"num_choices,omitempty"`
}

// AskRequest is a question about the document named by JobPayload.DocumentId.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type JobPayload struct {
	Generate *GenerateRequest                `json:"generate,omitempty"`
	Outcome  *commonModels.GenerationOutcome `json:"outcome,omitempty"`

	Ask    *AskRequest          `json:"ask,omitempty"`
	Answer *commonModels.Answer `json:"answer,omitempty"`

	DocumentId     string                 `json:"document_id,omitempty"`
	IngestFileName string                 `json:"ingest_file_name,omitempty"`
	IngestFilePath string                 `json:"-"`
	SizeBytes      int64                  `json:"size_bytes,omitempty"`
	Document       *commonModels.Document `json:"document,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// HistoryStore keeps the most recent generated records per topic and the most recent
// chat exchanges per document, newest first.
type HistoryStore interface {
	AppendRecord(ctx context.Context, topic string, record commonModels.GeneratedRecord) error
	RecentRecords(ctx context.Context, topic string, n int) ([]commonModels.GeneratedRecord, error)

	AppendExchange(ctx context.Context, documentId string, exchange commonModels.ChatExchange) error
	RecentExchanges(ctx context.Context, documentId string, n int) ([]commonModels.ChatExchange, error)
}
