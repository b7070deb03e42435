package commonModels

import "time"

type DocStatus string

const (
	StatusProcessing DocStatus = "processing"
	StatusReady      DocStatus = "ready"
	StatusError      DocStatus = "error"
)

type Document struct {
	Id         string    `json:"id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Pages      int       `json:"pages"`
	ChunkCount int       `json:"chunks_count"`
	UploadTime time.Time `json:"upload_time"`
	Status     DocStatus `json:"status"`
	Topics     []string  `json:"topics,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// DocumentInfo is what the caller knows about a document before it is chunked.
type DocumentInfo struct {
	Filename  string
	SizeBytes int64
	Pages     int
	Extra     map[string]string
}

// ChunkInput is one extracted span of text, in document order.
type ChunkInput struct {
	Content string
	Page    int
}

type DocChunk struct {
	Key        string `json:"key"`
	DocumentId string `json:"document_id"`
	Index      int    `json:"chunk_index"`
	Content    string `json:"content"`
	Page       int    `json:"page"`
}

type ScoredChunk struct {
	DocChunk
	Score float64 `json:"similarity_score"`
}

// RetrievedChunk is a passage selected as generation context.
type RetrievedChunk struct {
	Key      string            `json:"key"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

type Choice struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type GeneratedRecord struct {
	Question  string   `json:"question"`
	Choices   []Choice `json:"choices"`
	Answer    string   `json:"answer"`
	Rationale string   `json:"rationale"`
	Evidence  string   `json:"evidence"`
}

// Generation tags a record with whether it came from the model or the fallback path.
type Generation struct {
	Record         GeneratedRecord `json:"record"`
	Fallback       bool            `json:"fallback"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
}

// GenerationOutcome is the terminal output of the topic pipeline.
type GenerationOutcome struct {
	Generation
	Topic       string           `json:"topic"`
	Seed        int64            `json:"seed"`
	VariationId int              `json:"variation_id"`
	Queries     []string         `json:"queries"`
	Contexts    []RetrievedChunk `json:"contexts"`
}

// ChatExchange is one answered question about a document.
type ChatExchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Time     time.Time `json:"time"`
}

// Answer is a reply grounded in the passages listed in Sources.
type Answer struct {
	DocumentId string        `json:"document_id"`
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Sources    []ScoredChunk `json:"sources"`
}
