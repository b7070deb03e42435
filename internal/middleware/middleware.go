package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/handlers"
	"github.com/akolanti/QuizRAG/internal/metrics"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
	group      LimitGroup
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// authSettings is read by authenticate; Configure sets it once at startup.
var authSettings config.Settings

func Configure(settings config.Settings) {
	authSettings = settings
}

var GetHandler = Wrap(handlers.GetHandler)

var PostGenerateHandler = WrapGroup(GroupJobs, handlers.PostGenerateHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = WrapGroup(GroupJobs, handlers.PostIngestHandler)
var PostAskHandler = WrapGroup(GroupJobs, handlers.PostAskHandler)

var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var GetDocumentHandler = Wrap(handlers.GetDocumentHandler)
var SearchDocumentHandler = Wrap(handlers.SearchDocumentHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)
var GetTopicsHandler = Wrap(handlers.GetTopicsHandler)
var GetHistoryHandler = Wrap(handlers.GetHistoryHandler)

// Wrap applies trace, auth and the read rate limit.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return WrapGroup(GroupRead, next)
}

func WrapGroup(group LimitGroup, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := processRequest(requestResponseStruct{req: r, writer: rec, group: group})

		if re.badRequest.isBadRequest {
			recordRequest(r, rec.Status)
			return
		}
		next(rec, re.req)
		recordRequest(re.req, rec.Status)
	}
}

// recordRequest labels by route pattern so path parameters do not explode the series count.
func recordRequest(r *http.Request, status int) {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		path = rctx.RoutePattern()
	}
	metrics.HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = authenticate(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re
	}
	re = rateLimiter(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re
	}
	return re
}
