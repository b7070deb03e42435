package worker

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/job"
)

// MockRunner tracks which jobs were executed
type MockRunner struct {
	ProcessedCount int32
	OnGenerate     func(ctx context.Context, j jobModel.Job, avoid []string) jobModel.Job
	OnAsk          func(ctx context.Context, j jobModel.Job, history []commonModels.ChatExchange) jobModel.Job
}

func (m *MockRunner) ProcessGenerateJob(ctx context.Context, j jobModel.Job, avoid []string) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, j, avoid)
	}
	return j
}

func (m *MockRunner) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	return j
}

func (m *MockRunner) ProcessAskJob(ctx context.Context, j jobModel.Job, history []commonModels.ChatExchange) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnAsk != nil {
		return m.OnAsk(ctx, j, history)
	}
	return j
}

type MockJobStore struct {
	mu    sync.Mutex
	saved []jobModel.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, j)
	return nil
}

type MockHistoryStore struct {
	mu        sync.Mutex
	appended  []commonModels.GeneratedRecord
	recent    []commonModels.GeneratedRecord
	exchanges map[string][]commonModels.ChatExchange
}

func (m *MockHistoryStore) AppendRecord(ctx context.Context, topic string, rec commonModels.GeneratedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, rec)
	return nil
}

func (m *MockHistoryStore) RecentRecords(ctx context.Context, topic string, n int) ([]commonModels.GeneratedRecord, error) {
	return m.recent, nil
}

func (m *MockHistoryStore) AppendExchange(ctx context.Context, documentId string, ex commonModels.ChatExchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exchanges == nil {
		m.exchanges = map[string][]commonModels.ChatExchange{}
	}
	m.exchanges[documentId] = append([]commonModels.ChatExchange{ex}, m.exchanges[documentId]...)
	return nil
}

func (m *MockHistoryStore) RecentExchanges(ctx context.Context, documentId string, n int) ([]commonModels.ChatExchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.exchanges[documentId]
	if n < len(list) {
		list = list[:n]
	}
	return slices.Clone(list), nil
}

func TestWorkerPool_Flow(t *testing.T) {
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
		HistoryStore:      &MockHistoryStore{},
	}
	mockRunner := &MockRunner{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockRunner)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		time.Sleep(50 * time.Millisecond)

		if count := atomic.LoadInt64(&currentWorkerCount); count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeGenerate}
		time.Sleep(50 * time.Millisecond)

		if processed := atomic.LoadInt32(&mockRunner.ProcessedCount); processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
		final, ok := jobSvc.JobStore.GetJob(context.Background(), "test-1")
		if !ok || final.Status != jobModel.JobStatusComplete || final.EndTime.IsZero() {
			t.Errorf("final job state = %+v", final)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_History(t *testing.T) {
	outcome := func(fallback bool) *commonModels.GenerationOutcome {
		return &commonModels.GenerationOutcome{Generation: commonModels.Generation{
			Record:   commonModels.GeneratedRecord{Question: "new question"},
			Fallback: fallback,
		}}
	}

	tests := []struct {
		name         string
		fallback     bool
		failed       bool
		wantAppended int
		wantStatus   jobModel.JobStatus
	}{
		{"records a generated question", false, false, 1, jobModel.JobStatusComplete},
		{"skips the fallback record", true, false, 0, jobModel.JobStatusComplete},
		{"skips failed jobs", false, true, 0, jobModel.JobStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &MockHistoryStore{recent: []commonModels.GeneratedRecord{{Question: "old one"}, {Question: "older one"}}}
			store := &MockJobStore{}
			var gotAvoid []string
			runner := &MockRunner{OnGenerate: func(ctx context.Context, j jobModel.Job, avoid []string) jobModel.Job {
				gotAvoid = avoid
				if tt.failed {
					j.Status = jobModel.JobStatusError
					return j
				}
				j.JobPayload.Outcome = outcome(tt.fallback)
				return j
			}}
			InitServices(&job.Service{JobStore: store, HistoryStore: history}, runner)

			executeJob(jobModel.Job{
				Id:         "job",
				JobType:    jobModel.JobTypeGenerate,
				JobPayload: jobModel.JobPayload{Generate: &jobModel.GenerateRequest{Topic: "cells"}},
			})

			if !slices.Equal(gotAvoid, []string{"old one", "older one"}) {
				t.Errorf("avoid hints = %v", gotAvoid)
			}
			if len(history.appended) != tt.wantAppended {
				t.Errorf("appended %d records, want %d", len(history.appended), tt.wantAppended)
			}
			final, _ := store.GetJob(context.Background(), "job")
			if final.Status != tt.wantStatus {
				t.Errorf("final status = %s, want %s", final.Status, tt.wantStatus)
			}
			if store.saved[0].Status != jobModel.JobStatusRunning {
				t.Errorf("first save status = %s, want RUNNING", store.saved[0].Status)
			}
		})
	}
}

func TestExecuteJob_Ask(t *testing.T) {
	history := &MockHistoryStore{}
	store := &MockJobStore{}
	var calls [][]commonModels.ChatExchange
	runner := &MockRunner{OnAsk: func(ctx context.Context, j jobModel.Job, h []commonModels.ChatExchange) jobModel.Job {
		calls = append(calls, h)
		if j.JobPayload.Ask.Question == "fail" {
			j.Status = jobModel.JobStatusError
			return j
		}
		j.JobPayload.Answer = &commonModels.Answer{
			DocumentId: j.JobPayload.DocumentId,
			Question:   j.JobPayload.Ask.Question,
			Answer:     "answer to " + j.JobPayload.Ask.Question,
		}
		j.Status = jobModel.JobStatusComplete
		return j
	}}
	InitServices(&job.Service{JobStore: store, HistoryStore: history}, runner)

	ask := func(id, question string) {
		executeJob(jobModel.Job{
			Id:         id,
			JobType:    jobModel.JobTypeAsk,
			JobPayload: jobModel.JobPayload{DocumentId: "doc", Ask: &jobModel.AskRequest{Question: question}},
		})
	}
	ask("job-1", "first")
	ask("job-2", "fail")
	ask("job-3", "second")

	if len(calls) != 3 || len(calls[0]) != 0 {
		t.Fatalf("runner calls = %v", calls)
	}
	if len(calls[2]) != 1 || calls[2][0].Answer != "answer to first" {
		t.Errorf("third call saw history %+v, want only the first exchange", calls[2])
	}
	recorded, _ := history.RecentExchanges(context.Background(), "doc", 10)
	if len(recorded) != 2 || recorded[0].Question != "second" {
		t.Errorf("recorded exchanges = %+v", recorded)
	}

	final, _ := store.GetJob(context.Background(), "job-2")
	if final.Status != jobModel.JobStatusError {
		t.Errorf("failed ask status = %s", final.Status)
	}
	final, _ = store.GetJob(context.Background(), "job-3")
	if final.Status != jobModel.JobStatusComplete || final.JobPayload.Answer == nil {
		t.Errorf("final ask job = %+v", final)
	}
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 0)
	previous := idleTimeout
	idleTimeout = 20 * time.Millisecond
	defer func() { idleTimeout = previous }()

	InitServices(&job.Service{JobChannel: make(chan jobModel.Job)}, &MockRunner{})
	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopWorkerChannel = make(chan bool)

	createWorker()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle worker did not retire")
	}
	if count := atomic.LoadInt64(&currentWorkerCount); count != 0 {
		t.Errorf("Worker should have timed out and retired, but count is %d", count)
	}
}
