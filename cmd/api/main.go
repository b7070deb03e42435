// @title           QuizRAG API
// @version         1.0
// @description     Asynchronous quiz question generation over ingested documents
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/QuizRAG/internal/bootstrap"
	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/data/store"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/handlers"
	"github.com/akolanti/QuizRAG/internal/job"
	"github.com/akolanti/QuizRAG/internal/middleware"
	"github.com/akolanti/QuizRAG/internal/rag/expander"
	"github.com/akolanti/QuizRAG/internal/server"
	"github.com/akolanti/QuizRAG/internal/worker"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	settings := config.LoadSettings()
	logger_i.Init(settings.LogLevel, settings.IsProd)
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", settings.ListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobModel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service, history and expansion cache
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	var expansionCache expander.Cache

	jobStore, jobErr := store.GetRedisJobStore(serviceContext, settings.RedisAddr, settings.RedisPassword)
	historyStore, historyErr := store.GetRedisHistoryStore(serviceContext, settings.RedisAddr, settings.RedisPassword)
	redisCache, cacheErr := store.GetRedisExpansionCache(serviceContext, settings.RedisAddr, settings.RedisPassword)
	if jobErr != nil || historyErr != nil || cacheErr != nil {
		logger.Error("Redis stores are offline, falling back to memory", "addr", settings.RedisAddr)
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.HistoryStore = store.InitInMemoryHistoryStore()
		expansionCache = store.InitInMemoryExpansionCache(config.ExpansionCacheTTL)
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.HistoryStore = historyStore
		expansionCache = redisCache
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	ragService, err := bootstrap.NewRagService(serviceContext, settings, expansionCache)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}

	snapshots, err := bootstrap.OpenSnapshots(settings.SnapshotPath)
	if err != nil {
		logger.Error("Could not open snapshot store", "path", settings.SnapshotPath, "error", err)
		return
	}
	defer snapshots.Close()
	if restored, err := snapshots.Restore(serviceContext, ragService); err != nil {
		logger.Warn("Snapshot restore incomplete", "restored", restored, "error", err)
	} else if restored > 0 {
		logger.Info("Documents restored from snapshot", "count", restored)
	}
	bootstrap.StartPreload(serviceContext, ragService, settings.PreloadDir)

	middleware.Configure(settings)
	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
		BeforeClose:      func() { snapshots.Save(ragService) },
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
