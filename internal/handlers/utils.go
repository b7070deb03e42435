package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/akolanti/QuizRAG/internal/adapter"
	"github.com/akolanti/QuizRAG/internal/adapter/utils"
	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/rag"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already out, nothing left but logging
		logRH.Error("Error encoding response", "error", err)
	}
}

func traceId(ctx context.Context) string {
	id, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return id
}

func validateId(id string, trace string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, trace)
}

func validateContext(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		logRH.Warn("context error", "traceId", traceId(ctx), "error", err)
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeServiceError maps a rag error onto its status code. Internal errors are not echoed.
func writeServiceError(w http.ResponseWriter, id string, err error) {
	code, _ := rag.ErrorStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logRH.Error("Request failed", "id", id, "error", err)
		msg = "Internal Server Error"
	}
	WriteErrorResponse(w, code, id, msg)
}

func getTargetDirectory() (string, error) {
	root, err := os.Getwd()
	if err != nil {
		return "", err
	}

	targetDir := filepath.Join(root, config.TemporaryUploadDir)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", err
	}
	return targetDir, nil
}

// saveUpload copies the multipart file to the upload directory and returns its path and size.
func saveUpload(src io.Reader, filename string) (string, int64, error) {
	targetDir, err := getTargetDirectory()
	if err != nil {
		return "", 0, err
	}
	destination, err := os.CreateTemp(targetDir, "upload-*-"+filepath.Base(filename))
	if err != nil {
		return "", 0, err
	}
	defer destination.Close()

	n, err := io.Copy(destination, src)
	if err != nil {
		_ = os.Remove(destination.Name())
		return "", 0, err
	}
	return destination.Name(), n, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func newGenerateJob(r *http.Request, req jobModel.GenerateRequest) newJobData {
	return newJobData{
		id:       utils.GetNewUUID(),
		traceId:  traceId(r.Context()),
		generate: &req,
	}
}

func newIngestJob(r *http.Request, documentId, docName, docPath string, size int64) newJobData {
	return newJobData{
		id:               utils.GetNewUUID(),
		traceId:          traceId(r.Context()),
		isDocumentIngest: true,
		documentId:       documentId,
		documentName:     docName,
		documentSource:   docPath,
		sizeBytes:        size,
	}
}

func newAskJob(r *http.Request, documentId string, req jobModel.AskRequest) newJobData {
	return newJobData{
		id:         utils.GetNewUUID(),
		traceId:    traceId(r.Context()),
		documentId: documentId,
		ask:        &req,
	}
}
