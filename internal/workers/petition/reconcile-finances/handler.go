// internal/workers/petition/reconcile-finances/handler.go
package reconcilefinances

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"petition-workers/internal/common/camunda"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/letter/finance"
)

const TaskType = "reconcile-finances"

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(cfg *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
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
	if h.config.ThrowOnInsufficient {
		if stdErr := BlockingError(output); stdErr != nil {
			return nil, stdErr
		}
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

// Execute reconciles the documented funds against the program's requirement.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	app := &input.Application
	calc := finance.CalculateAvailableFunds(app)
	req := finance.EstimateFromApplication(app)
	decision := finance.Decide(calc, req)

	h.logger.Info("finances reconciled", map[string]interface{}{
		"stage":          "reconcile",
		"totalAvailable": calc.TotalAvailable,
		"sponsorAmount":  calc.SponsorAmount,
		"requiredKnown":  req.Known(),
		"decision":       string(decision.Status),
	})

	return &Output{
		Calculation: calc,
		Required:    req,
		Decision:    decision,
		Summary:     finance.Summary(calc, req),
		Sufficient:  decision.Status == finance.StatusSufficient,
	}, nil
}

// BlockingError is the business error for funds that cannot support a
// letter, or nil when the decision is sufficient or indeterminate.
func BlockingError(out *Output) *apperrors.StandardError {
	if out.Calculation.TotalAvailable <= 0 {
		return apperrors.NewNoFinancialResourcesError()
	}
	if out.Decision.Status == finance.StatusInsufficient {
		return apperrors.NewInsufficientFundsError(out.Calculation.TotalAvailable, out.Decision.Required)
	}
	return nil
}
