package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/akolanti/QuizRAG/internal/adapter"
	"github.com/akolanti/QuizRAG/internal/adapter/utils"
	"github.com/akolanti/QuizRAG/internal/api"
	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

type newJobData struct {
	id               string
	traceId          string
	generate         *jobModel.GenerateRequest
	ask              *jobModel.AskRequest
	isDocumentIngest bool
	documentId       string
	documentName     string
	documentSource   string
	sizeBytes        int64
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostGenerateHandler godoc
// @Summary      Queue a question generation job
// @Description  Expands the topic into queries, retrieves diverse passages from ready documents and generates one multiple-choice question.
// @Tags         Generation
// @Accept       json
// @Produce      json
// @Param        request  body      api.GenerateRequest  true  "Topic and optional seed, diversity and counts"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Missing topic or malformed body"
// @Router       /generate [post]
func PostGenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	defer r.Body.Close()

	var requestData api.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || strings.TrimSpace(requestData.Topic) == "" {
		logRH.Warn("Bad generate request", "traceId", traceId(r.Context()), "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "topic is required")
		return
	}
	if requestData.Diversity != nil && (*requestData.Diversity < 0 || *requestData.Diversity > 1) {
		WriteErrorResponse(w, http.StatusBadRequest, "", "diversity must be between 0 and 1")
		return
	}

	newJob := newGenerateJob(r, adapter.ToGenerateRequest(requestData))
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, ""))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a generation or ingestion job, with its result or typed error.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "Current job state"
// @Failure      404  {object}  api.JobResponse   "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, traceId(r.Context()))
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestHandler godoc
// @Summary      Upload a document for ingestion
// @Description  Receives a PDF, DOCX, ODT, RTF or TXT file, stores it temporarily and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_id  formData  string  false "Document id, generated when absent"
// @Param        document     formData  file    true  "The file to ingest"
// @Success      202  {object}  api.InitJobResponse "Accepted, returns job and document ids"
// @Failure      400  {object}  api.JobResponse "Missing file or file too large"
// @Failure      409  {object}  api.JobResponse "Document id already in use"
// @Failure      500  {object}  api.JobResponse "Storage error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	documentId := strings.TrimSpace(r.FormValue("document_id"))
	if documentId == "" {
		documentId = utils.GetNewUUID()
	}
	if doc, err := handlerInstance.documents.GetDocument(documentId); err == nil && doc.Status != commonModels.StatusError {
		WriteErrorResponse(w, http.StatusConflict, documentId, commonModels.ErrDocumentExists.Error())
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, documentId, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	path, size, err := saveUpload(fileReader, fileMetadata.Filename)
	if err != nil {
		logRH.Error("Could not store upload", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, documentId, "Storage error")
		return
	}

	newJob := newIngestJob(r, documentId, fileMetadata.Filename, path, size)
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, documentId))
}
