package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/akolanti/QuizRAG/internal/adapter/utils"
	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/rag/ingest"
)

// Preloader is the part of rag.Service a startup preload needs.
type Preloader interface {
	ingest.Ingester
	GetDocument(documentId string) (commonModels.Document, error)
}

type PreloadReport struct {
	Loaded  int
	Skipped int
	Failed  int
}

// Preload ingests every supported file directly inside dir. Ids derive from file names, so
// documents already restored from a snapshot are skipped. Files in dir are never modified.
func Preload(ctx context.Context, svc Preloader, dir string) (PreloadReport, error) {
	var report PreloadReport
	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("preload dir: %w", err)
	}
	log := logger.With("dir", dir)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		name := entry.Name()
		if entry.IsDir() || !ingest.Supported(name) {
			continue
		}

		documentId := utils.DocumentIdForFile(name)
		if doc, err := svc.GetDocument(documentId); err == nil && doc.Status != commonModels.StatusError {
			report.Skipped++
			continue
		}

		if err := preloadFile(ctx, svc, filepath.Join(dir, name), documentId); err != nil {
			log.Warn("Preload failed for file", "file", name, "error", err)
			report.Failed++
			continue
		}
		log.Info("Preloaded document", "file", name, "documentId", documentId)
		report.Loaded++
	}
	return report, nil
}

// StartPreload runs Preload in the background and logs the outcome. An empty dir does nothing.
func StartPreload(ctx context.Context, svc Preloader, dir string) {
	if dir == "" {
		return
	}
	go func() {
		report, err := Preload(ctx, svc, dir)
		if err != nil {
			logger.Error("Preload stopped", "dir", dir, "error", err)
		}
		logger.Info("Preload finished", "dir", dir, "loaded", report.Loaded, "skipped", report.Skipped, "failed", report.Failed)
	}()
}

// preloadFile hands a temporary copy to the ingestion pipeline, which removes what it reads.
func preloadFile(ctx context.Context, svc Preloader, path, documentId string) error {
	copyPath, size, err := copyToTemp(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, config.IngestionTimeout)
	defer cancel()
	job := jobModel.Job{
		Id:      "preload-" + documentId,
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			DocumentId:     documentId,
			IngestFileName: filepath.Base(path),
			IngestFilePath: copyPath,
			SizeBytes:      size,
		},
	}
	_, err = ingest.ProcessDocumentIngestion(ctx, job, svc)
	return err
}

func copyToTemp(path string) (string, int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "preload-*"+filepath.Ext(path))
	if err != nil {
		return "", 0, err
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(dst.Name())
		return "", 0, fmt.Errorf("copy %s: %w", filepath.Base(path), err)
	}
	return dst.Name(), n, nil
}
