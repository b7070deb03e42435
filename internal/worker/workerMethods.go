package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	jobmodel "github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType)+"_"+string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	log := logger.WithTrace(ctx).With("jobId", job.Id, "jobType", job.JobType)
	log.Debug("Processing job")

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	switch job.JobType {
	case jobmodel.JobTypeIngest:
		job.CurrentStep = jobmodel.IngestProcessing
		job = ingestDocument(ctx, job)
	case jobmodel.JobTypeAsk:
		job.CurrentStep = jobmodel.HistoryCall
		job = askDocument(ctx, job, log)
	default:
		job.CurrentStep = jobmodel.HistoryCall
		job = generateQuestion(ctx, job, log)
	}

	job.EndTime = time.Now()
	status := job.Status
	if status != jobmodel.JobStatusError {
		status = jobmodel.JobStatusComplete
	}
	// the final write must land even when the job ran out of time
	saveJobState(context.WithoutCancel(ctx), job, status)
	log.Debug("Job finished", "status", status, "elapsed", time.Since(start))
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}

func ingestDocument(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	return _runner.IngestDocument(ctx, job)
}

// generateQuestion feeds recent questions on the topic to the generator as things to avoid,
// and records the new question when the model produced one.
func generateQuestion(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	var avoid []string
	topic := ""
	if job.JobPayload.Generate != nil {
		topic = job.JobPayload.Generate.Topic
	}

	if _jobService.HistoryStore != nil && topic != "" {
		recent, err := _jobService.HistoryStore.RecentRecords(ctx, topic, config.HistoryHintCount)
		if err != nil {
			log.Error("Failed to get question history", "error", err)
		}
		for _, rec := range recent {
			avoid = append(avoid, rec.Question)
		}
	}

	job = _runner.ProcessGenerateJob(ctx, job, avoid)

	if job.Status == jobmodel.JobStatusError || job.JobPayload.Outcome == nil || job.JobPayload.Outcome.Fallback {
		return job
	}
	if _jobService.HistoryStore != nil {
		saveHistory(ctx, topic, job.JobPayload.Outcome.Record, log)
	}
	return job
}

// askDocument replays the recent exchanges about the document and records the new one.
func askDocument(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	documentId := job.JobPayload.DocumentId
	var history []commonModels.ChatExchange
	if _jobService.HistoryStore != nil {
		recent, err := _jobService.HistoryStore.RecentExchanges(ctx, documentId, config.ChatHistoryCount)
		if err != nil {
			log.Error("Failed to get chat history", "error", err)
		}
		history = recent
	}

	job = _runner.ProcessAskJob(ctx, job, history)

	if job.Status == jobmodel.JobStatusError || job.JobPayload.Answer == nil || _jobService.HistoryStore == nil {
		return job
	}
	exchange := commonModels.ChatExchange{
		Question: job.JobPayload.Answer.Question,
		Answer:   job.JobPayload.Answer.Answer,
		Time:     time.Now().UTC(),
	}
	if err := _jobService.HistoryStore.AppendExchange(ctx, documentId, exchange); err != nil {
		log.Error("Failed to save chat history", "error", err)
	}
	return job
}

func saveHistory(ctx context.Context, topic string, rec commonModels.GeneratedRecord, log *logger_i.Logger) {
	if err := _jobService.HistoryStore.AppendRecord(ctx, topic, rec); err != nil {
		log.Error("Failed to save question history", "error", err)
	}
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job state", "jobId", job.Id, "error", err)
	}
}
