package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/QuizRAG/internal/adapter/utils"
	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/middleware"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
	// BeforeClose runs after the workers drained and before external clients are closed.
	BeforeClose func()
}

// Routes registers every api route on the shared router and returns the instrumented handler.
func Routes() http.Handler {
	r := utils.GetRouter()

	r.Get("/health", middleware.GetHandler)
	r.Post("/generate", middleware.PostGenerateHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)
	r.Post("/ingest", middleware.PostIngestHandler)

	r.Get("/documents", middleware.ListDocumentsHandler)
	r.Get("/documents/{id}", middleware.GetDocumentHandler)
	r.Get("/documents/{id}/search", middleware.SearchDocumentHandler)
	r.Post("/documents/{id}/ask", middleware.PostAskHandler)
	r.Delete("/documents/{id}", middleware.DeleteDocumentHandler)
	r.Get("/topics", middleware.GetTopicsHandler)
	r.Get("/history", middleware.GetHistoryHandler)

	return otelhttp.NewHandler(r, "quizrag-api")
}

func CreateServer(listenAddr string) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      Routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err, "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		if shutdownParams.BeforeClose != nil {
			shutdownParams.BeforeClose()
		}
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Graceful shutdown complete")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
