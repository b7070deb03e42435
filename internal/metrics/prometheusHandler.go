package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var generationFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "generation_fallback_total",
	Help: "Generations that returned the fallback record, by reason",
}, []string{"reason"})

var noContextTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "generation_no_context_total",
	Help: "Pipeline runs stopped because retrieval found no usable context",
})

var skippedQueries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "retrieval_skipped_queries_total",
	Help: "Per-query retrieval failures that were logged and skipped",
})

var ingestionRollbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ingestion_rollbacks_total",
	Help: "Document ingestions rolled back after a failure",
})

var gateInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "provider_gate_in_flight",
	Help: "External provider calls currently holding a gate slot",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func IncrementFallback(reason string) {
	generationFallbacks.WithLabelValues(reason).Inc()
}

func IncrementNoContext() {
	noContextTotal.Inc()
}

func IncrementSkippedQuery() {
	skippedQueries.Inc()
}

func IncrementIngestionRollback() {
	ingestionRollbacks.Inc()
}

func SetGateInFlight(n int) {
	gateInFlight.Set(float64(n))
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent processing a job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls and pipeline stages.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
