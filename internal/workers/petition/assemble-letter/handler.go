// internal/workers/petition/assemble-letter/handler.go
package assembleletter

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"petition-workers/internal/common/camunda"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/letter/assembler"
	"petition-workers/internal/models"
)

const TaskType = "assemble-letter"

type Handler struct {
	config       *Config
	assembler    *assembler.Assembler
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(cfg *Config, a *assembler.Assembler, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		assembler:    a,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
		"retries":     job.Retries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job)
	camunda.RecordOutcome(TaskType, start, err)
	if err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	if err := camunda.CompleteJob(context.Background(), client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.Key,
		"final":      output.Final,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(TaskType, job, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Execute runs one assembly. Generation failures surface as errors so the
// job is retried; a blocked letter completes unless ThrowOnBlocked is set.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	sections, err := models.ParseSections(input.Sections)
	if err != nil {
		return nil, apperrors.NewInputValidationError(err.Error())
	}

	res, err := h.assembler.Assemble(ctx, &input.Application, sections)
	if err != nil {
		if _, ok := apperrors.AsStandardError(err); ok {
			return nil, err
		}
		return nil, apperrors.NewGenerationFailedError(err)
	}

	if !res.Final && res.Blocking != nil && h.config.ThrowOnBlocked {
		return nil, res.Blocking
	}

	out := &Output{
		Document: res.Document,
		Final:    res.Final,
		Sections: res.Sections,
		Report:   res.Report,
	}
	if res.Blocking != nil {
		out.BlockingCode = string(res.Blocking.Code)
	}
	return out, nil
}
