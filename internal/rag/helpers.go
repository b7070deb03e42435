package rag

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/internal/domain/jobModel"
	"github.com/akolanti/QuizRAG/internal/rag/ingest"
	"github.com/akolanti/QuizRAG/internal/rag/sampling"
)

// GenerateParams are the pipeline inputs. Nil Seed means "derive one from the clock";
// nil Diversity and zero counts mean "use the default".
type GenerateParams struct {
	Topic          string
	Seed           *int64
	Diversity      *float64
	NumContexts    int
	QueryFanout    int
	VariationID    int
	NumChoices     int
	AvoidQuestions []string
}

func ParamsFromRequest(req jobModel.GenerateRequest, avoidQuestions []string) GenerateParams {
	return GenerateParams{
		Topic:          req.Topic,
		Seed:           req.Seed,
		Diversity:      req.Diversity,
		NumContexts:    req.NumContexts,
		QueryFanout:    req.QueryFanout,
		VariationID:    req.VariationId,
		NumChoices:     req.NumChoices,
		AvoidQuestions: avoidQuestions,
	}
}

func (s *service) normalize(p GenerateParams) (GenerateParams, error) {
	p.Topic = sampling.NormalizeText(p.Topic)
	if p.Topic == "" {
		return p, ErrEmptyTopic
	}
	if p.Seed == nil {
		seed := s.now().UnixNano()
		p.Seed = &seed
	}
	diversity := config.DefaultDiversity
	if p.Diversity != nil {
		diversity = sampling.Clamp(*p.Diversity, 0, 1)
	}
	p.Diversity = &diversity
	p.NumContexts = clampInt(p.NumContexts, config.DefaultNumContexts, 1, config.MaxNumContexts)
	p.QueryFanout = clampInt(p.QueryFanout, config.DefaultQueryFanout, 1, config.MaxQueryFanout)
	p.NumChoices = clampInt(p.NumChoices, config.DefaultNumChoices, config.MinNumChoices, config.MaxNumChoices)
	return p, nil
}

func clampInt(v, fallback, lo, hi int) int {
	if v == 0 {
		v = fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ErrorStatus maps a pipeline or store error onto an http status and whether retrying may help.
func ErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, commonModels.ErrDocumentNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, commonModels.ErrDocumentExists), errors.Is(err, commonModels.ErrDocumentNotReady):
		return http.StatusConflict, false
	case errors.Is(err, commonModels.ErrNoContext):
		return http.StatusUnprocessableEntity, false
	case errors.Is(err, ErrEmptyTopic), errors.Is(err, ErrEmptyQuestion), errors.Is(err, commonModels.ErrEmptyDocument), errors.Is(err, ingest.ErrUnsupportedType):
		return http.StatusBadRequest, false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	default:
		return http.StatusInternalServerError, true
	}
}

func (s *service) jobError(job jobModel.Job, err error, message string) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	code, retry := ErrorStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "Internal Server Error"
	}
	job.Error = jobModel.JobError{
		Code:    code,
		Message: strings.TrimSpace(msg),
		Retry:   retry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}
