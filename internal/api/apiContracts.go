package api

import (
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	JobType   string            `json:"job_type,omitempty" example:"Generate"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"422"`
	Message string `json:"message" example:"no usable context retrieved"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status     string                          `json:"status"`
	Step       string                          `json:"step,omitempty"`
	Generation *commonModels.GenerationOutcome `json:"generation,omitempty"`
	Document   *commonModels.Document          `json:"document,omitempty"`
	Answer     *commonModels.Answer            `json:"answer,omitempty"`
}

type InitJobResponse struct {
	Id         string `json:"id"`
	StatusURL  string `json:"status_url"`
	DocumentId string `json:"document_id,omitempty"`
}

type DocumentListResponse struct {
	Documents []commonModels.Document `json:"documents"`
}

type SearchResponse struct {
	DocumentId string                     `json:"document_id"`
	Query      string                     `json:"query"`
	Results    []commonModels.ScoredChunk `json:"results"`
}

type TopicsResponse struct {
	Topics []string `json:"topics"`
}

type HistoryResponse struct {
	Topic   string                         `json:"topic"`
	Records []commonModels.GeneratedRecord `json:"records"`
}

// requests---------------------

type GenerateRequest struct {
	Topic       string   `json:"topic" validate:"required" example:"photosynthesis"`
	Seed        *int64   `json:"seed,omitempty" example:"42"`
	Diversity   *float64 `json:"diversity,omitempty" example:"0.3"`
	NumContexts int      `json:"num_contexts,omitempty" example:"6"`
	QueryFanout int      `json:"query_fanout,omitempty" example:"3"`
	VariationId int      `json:"variation_id,omitempty" example:"1"`
	NumChoices  int      `json:"num_choices,omitempty" example:"4"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required" example:"Where does the Calvin cycle take place?"`
	K        int    `json:"k,omitempty" example:"3"`
}
