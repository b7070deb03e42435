package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Ingester stores the ordered chunks of one document all-or-nothing.
type Ingester interface {
	IngestChunks(ctx context.Context, documentId string, chunks []commonModels.ChunkInput, info commonModels.DocumentInfo) (commonModels.Document, error)
}

// ProcessDocumentIngestion extracts, chunks and stores the uploaded file of an ingest job.
// The uploaded file is removed whatever the outcome.
func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, ingester Ingester) (commonModels.Document, error) {
	log := logger_i.NewLogger("document_ingestion").WithTrace(ctx).With("jobId", job.Id)

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestFilePath
	defer func() {
		if err := os.Remove(docPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("Error removing uploaded file", "error", err)
		}
	}()

	log.Debug("Processing document", "filename", docName, "path", docPath)

	kind := getDocType(docName)
	if kind == unknownDoc {
		kind = getDocType(docPath)
	}
	if kind == unknownDoc {
		return commonModels.Document{}, fmt.Errorf("%w: unsupported file type %q", ErrUnsupportedType, docName)
	}

	rawPages, err := extractText(ctx, docPath, kind, log)
	if err != nil {
		log.Error("Error extracting document", "error", err)
		return commonModels.Document{}, err
	}
	log.Debug("Extracted document", "pages", len(rawPages))

	chunks := PrepareChunks(rawPages)
	if len(chunks) == 0 {
		return commonModels.Document{}, commonModels.ErrEmptyDocument
	}
	log.Debug("Prepared chunks", "chunks", len(chunks))

	info := commonModels.DocumentInfo{
		Filename:  docName,
		SizeBytes: job.JobPayload.SizeBytes,
		Pages:     len(rawPages),
	}
	return ingester.IngestChunks(ctx, job.JobPayload.DocumentId, chunks, info)
}
