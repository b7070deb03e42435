package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/job"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

// DocumentService is the synchronous part of rag.Service the handlers call directly.
type DocumentService interface {
	ListDocuments() []commonModels.Document
	GetDocument(documentId string) (commonModels.Document, error)
	SearchDocument(ctx context.Context, documentId string, query string, k int) ([]commonModels.ScoredChunk, error)
	RemoveDocument(ctx context.Context, documentId string) error
	Topics() []string
}

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
)

type JobHandler struct {
	service   *job.Service
	documents DocumentService
}

func InitJobHandler(jobService *job.Service, documents DocumentService) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, documents: documents}
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.Debug("Creating new job", "traceId", newJob.traceId, "jobId", newJob.id, "ingest", newJob.isDocumentIngest)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {
	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.DocumentId = newJob.documentId
		_job.JobPayload.IngestFileName = newJob.documentName
		_job.JobPayload.IngestFilePath = newJob.documentSource
		_job.JobPayload.SizeBytes = newJob.sizeBytes
	} else if newJob.ask != nil {
		_job.JobType = jobModel.JobTypeAsk
		_job.JobPayload.DocumentId = newJob.documentId
		_job.JobPayload.Ask = newJob.ask
		_job.CurrentStep = jobModel.AskInit
	} else {
		_job.JobType = jobModel.JobTypeGenerate
		_job.JobPayload.Generate = newJob.generate
		_job.CurrentStep = jobModel.GenerateInit
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.Error("Could not save queued job", "jobId", _job.Id, "error", err)
	}

	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send keeps the queue bounded
	logJH.Debug("Queued job", "jobId", _job.Id)

	// one extra worker every RequestsPerNewWorkerCount jobs, and one per ingestion since those are long
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount()
		select {
		case h.service.DispatcherChannel <- true:
		default:
			logJH.Debug("Dispatcher busy, skipping worker signal", "requestCount", accurateCount)
		}
	}
}
