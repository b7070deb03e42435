package adapter

import (
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/QuizRAG/internal/api"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
)

func ToInitJobResponse(id string, documentId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:         id,
		StatusURL:  fmt.Sprintf("status/%s", id),
		DocumentId: documentId,
	}
}

func ToGenerateRequest(req api.GenerateRequest) jobModel.GenerateRequest {
	return jobModel.GenerateRequest{
		Topic:       strings.TrimSpace(req.Topic),
		Seed:        req.Seed,
		Diversity:   req.Diversity,
		NumContexts: req.NumContexts,
		QueryFanout: req.QueryFanout,
		VariationId: req.VariationId,
		NumChoices:  req.NumChoices,
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	return api.JobResponse{
		Id:        job.Id,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result: api.Result{
			Status:     string(job.Status),
			Step:       string(job.CurrentStep),
			Generation: job.JobPayload.Outcome,
			Document:   job.JobPayload.Document,
			Answer:     job.JobPayload.Answer,
		},
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   code >= 500,
		},
	}
}
