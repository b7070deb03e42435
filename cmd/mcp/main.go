package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/QuizRAG/internal/bootstrap"
	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/data/store"
	"github.com/akolanti/QuizRAG/internal/mcptools"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverVersion = "v1.0.0"

func main() {
	settings := config.LoadSettings()
	// stdout carries the protocol
	logger_i.InitWithWriter(os.Stderr, settings.LogLevel, settings.IsProd)
	var logger = logger_i.NewLogger("mcp_main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ragService, err := bootstrap.NewRagService(ctx, settings, store.InitInMemoryExpansionCache(config.ExpansionCacheTTL))
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		os.Exit(1)
	}

	snapshots, err := bootstrap.OpenSnapshots(settings.SnapshotPath)
	if err != nil {
		logger.Error("Could not open snapshot store", "path", settings.SnapshotPath, "error", err)
		os.Exit(1)
	}
	defer snapshots.Close()
	if restored, err := snapshots.Restore(ctx, ragService); err != nil {
		logger.Warn("Snapshot restore incomplete", "restored", restored, "error", err)
	} else {
		logger.Info("Documents restored from snapshot", "count", restored)
	}
	bootstrap.StartPreload(ctx, ragService, settings.PreloadDir)

	server := mcp.NewServer(&mcp.Implementation{Name: "quizrag", Version: serverVersion}, nil)
	mcptools.New(ragService).Register(server)

	logger.Info("MCP server listening on stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", "error", err)
	}
}
