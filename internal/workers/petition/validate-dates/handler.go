// internal/workers/petition/validate-dates/handler.go
package validatedates

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"petition-workers/internal/common/camunda"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/letter/dates"
)

const TaskType = "validate-dates"

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(cfg *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
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

	var output *Output
	input, err := h.parseInput(job)
	if err == nil {
		output, err = h.Execute(ctx, input)
	}
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

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(TaskType, job, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Execute validates the dates. Date conflicts are findings, not job errors.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	in := input.Input
	if input.Application != nil {
		fromApp := dates.FromApplication(input.Application)
		if in.EntryDate == "" {
			in.EntryDate = fromApp.EntryDate
		}
		if in.StatusExpiryDate == "" {
			in.StatusExpiryDate = fromApp.StatusExpiryDate
		}
		if in.ProgramStartDate == "" {
			in.ProgramStartDate = fromApp.ProgramStartDate
		}
		if in.FilingDate == "" {
			in.FilingDate = fromApp.FilingDate
		}
	}

	findings := dates.Validate(in, h.now())
	h.logger.Info("dates validated", map[string]interface{}{
		"stage":      "dates",
		"errors":     len(findings.Errors),
		"warnings":   len(findings.Warnings),
		"directives": len(findings.Directives),
	})
	return &Output{Findings: findings, Valid: len(findings.Errors) == 0}, nil
}
