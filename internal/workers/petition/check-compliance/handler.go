// internal/workers/petition/check-compliance/handler.go
package checkcompliance

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"petition-workers/internal/common/camunda"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/common/metrics"
	"petition-workers/internal/letter/compliance"
	"petition-workers/internal/models"
)

const TaskType = "check-compliance"

type Handler struct {
	config       *Config
	options      compliance.Options
	catalog      *compliance.Catalog
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

// NewHandler checks with opts unless a job names its own document type, in
// which case the voice follows that type.
func NewHandler(cfg *Config, catalog *compliance.Catalog, opts compliance.Options, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		options:      opts,
		catalog:      catalog,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
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
	}
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	output, err := h.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	if h.config.ThrowOnViolation && !output.Passed {
		return nil, apperrors.NewComplianceViolationError(output.Errors)
	}
	return output, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(TaskType, job, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	sections, err := models.ParseSections(input.Sections)
	if err != nil {
		return nil, apperrors.NewInputValidationError(err.Error())
	}

	opts := h.options
	if input.DocumentType != "" {
		opts.RequiredVoice = compliance.VoiceFor(input.DocumentType)
	}

	cctx := compliance.BuildContext(&input.Application, h.now())
	result := compliance.NewChecker(h.catalog, opts).Check(sections, cctx)
	metrics.RecordFindings(result.Findings)

	h.logger.Info("compliance checked", map[string]interface{}{
		"stage":    "check",
		"passed":   result.Passed,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
		"voice":    opts.RequiredVoice,
	})
	return &Output{RuleCheckResult: result, Decision: string(cctx.Decision.Status)}, nil
}
