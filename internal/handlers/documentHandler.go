package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/QuizRAG/internal/adapter"
	"github.com/akolanti/QuizRAG/internal/adapter/utils"
	"github.com/akolanti/QuizRAG/internal/api"
	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
)

// ListDocumentsHandler godoc
// @Summary      List documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentListResponse
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DocumentListResponse{Documents: handlerInstance.documents.ListDocuments()})
}

// GetDocumentHandler godoc
// @Summary      Get one document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  commonModels.Document
// @Failure      404  {object}  api.JobResponse
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.documents.GetDocument(id)
	if err != nil {
		writeServiceError(w, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, doc)
}

// SearchDocumentHandler godoc
// @Summary      Search inside one document
// @Description  Returns the chunks of one ready document most similar to the query, best first.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true   "Document ID"
// @Param        q    query     string  true   "Query text"
// @Param        k    query     int     false  "Number of results"
// @Success      200  {object}  api.SearchResponse
// @Failure      400  {object}  api.JobResponse
// @Failure      404  {object}  api.JobResponse
// @Failure      409  {object}  api.JobResponse "Document not ready"
// @Router       /documents/{id}/search [get]
func SearchDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteErrorResponse(w, http.StatusBadRequest, id, "q is required")
		return
	}
	k, err := queryInt(r, "k", config.DefaultSearchK)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, id, err.Error())
		return
	}

	results, err := handlerInstance.documents.SearchDocument(r.Context(), id, query, k)
	if err != nil {
		writeServiceError(w, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.SearchResponse{DocumentId: id, Query: query, Results: results})
}

// PostAskHandler godoc
// @Summary      Queue a question about one document
// @Description  Answers a free-form question from the passages of one ready document closest to it. Recent exchanges about the document are replayed to the model.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        id       path      string          true  "Document ID"
// @Param        request  body      api.AskRequest  true  "Question and optional passage count"
// @Success      202      {object}  api.InitJobResponse
// @Failure      400      {object}  api.JobResponse
// @Failure      404      {object}  api.JobResponse
// @Failure      409      {object}  api.JobResponse "Document not ready"
// @Router       /documents/{id}/ask [post]
func PostAskHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	defer r.Body.Close()
	id := utils.GetChiURLParam(r, "id")

	var requestData api.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || strings.TrimSpace(requestData.Question) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, id, "question is required")
		return
	}
	if requestData.K < 0 || requestData.K > config.MaxSearchK {
		WriteErrorResponse(w, http.StatusBadRequest, id, fmt.Sprintf("k must be between 1 and %d", config.MaxSearchK))
		return
	}

	doc, err := handlerInstance.documents.GetDocument(id)
	if err != nil {
		writeServiceError(w, id, err)
		return
	}
	if doc.Status != commonModels.StatusReady {
		writeServiceError(w, id, fmt.Errorf("%w: %s is %s", commonModels.ErrDocumentNotReady, id, doc.Status))
		return
	}

	newJob := newAskJob(r, id, jobModel.AskRequest{Question: strings.TrimSpace(requestData.Question), K: requestData.K})
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, id))
}

// DeleteDocumentHandler godoc
// @Summary      Remove a document and its vectors
// @Tags         Documents
// @Param        id   path      string  true  "Document ID"
// @Success      204
// @Failure      500  {object}  api.JobResponse
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if err := handlerInstance.documents.RemoveDocument(r.Context(), id); err != nil && !errors.Is(err, commonModels.ErrDocumentNotFound) {
		writeServiceError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTopicsHandler godoc
// @Summary      Topics across ready documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.TopicsResponse
// @Router       /topics [get]
func GetTopicsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	writeJsonResponse(w, http.StatusOK, api.TopicsResponse{Topics: handlerInstance.documents.Topics()})
}

// GetHistoryHandler godoc
// @Summary      Recently generated questions for a topic
// @Tags         Generation
// @Produce      json
// @Param        topic  query     string  true   "Topic"
// @Param        n      query     int     false  "Number of records"
// @Success      200    {object}  api.HistoryResponse
// @Failure      400    {object}  api.JobResponse
// @Router       /history [get]
func GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "topic is required")
		return
	}
	n, err := queryInt(r, "n", config.HistoryHintCount)
	if err != nil || n < 1 || n > config.HistoryKeepCount {
		WriteErrorResponse(w, http.StatusBadRequest, "", "n must be between 1 and 50")
		return
	}

	records := []commonModels.GeneratedRecord{}
	if handlerInstance.service.HistoryStore != nil {
		records, err = handlerInstance.service.HistoryStore.RecentRecords(r.Context(), topic, n)
		if err != nil {
			writeServiceError(w, topic, err)
			return
		}
	}
	writeJsonResponse(w, http.StatusOK, api.HistoryResponse{Topic: topic, Records: records})
}
