package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler fails or throws jobs based on the error taxonomy.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Outcome is what HandleJobError will send for an error.
type Outcome struct {
	Standard *StandardError
	BPMN     *BPMNError
	// Throw is true for business errors, which route to a BPMN boundary event.
	Throw   bool
	Retries int32
}

// Resolve decides between a retrying fail and a BPMN throw. Retries never
// exceed what the job still has.
func (h *ErrorHandler) Resolve(job entities.Job, err error) Outcome {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable || retries == 0 || job.Retries <= 0 {
		return Outcome{Standard: stdErr, BPMN: bpmnErr, Throw: true}
	}
	if int(job.Retries) < retries {
		retries = int(job.Retries)
	}
	// One attempt is being consumed now.
	return Outcome{Standard: stdErr, BPMN: bpmnErr, Retries: int32(retries - 1)}
}

// HandleJobError logs the error and reports it to the broker.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) Outcome {
	out := h.Resolve(job, err)
	h.logError(job, out)

	varsJSON, _ := json.Marshal(out.BPMN.ToErrorVariables())
	if out.Throw {
		cmd := client.NewThrowErrorCommand().
			JobKey(job.Key).
			ErrorCode(out.BPMN.Code).
			ErrorMessage(out.BPMN.Message)
		if withVars, vErr := cmd.VariablesFromString(string(varsJSON)); vErr == nil {
			_, _ = withVars.Send(ctx)
			return out
		}
		_, _ = cmd.Send(ctx)
		return out
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(out.Retries).
		ErrorMessage(out.Standard.Error())
	if withVars, vErr := cmd.VariablesFromString(string(varsJSON)); vErr == nil {
		_, _ = withVars.Send(ctx)
		return out
	}
	_, _ = cmd.Send(ctx)
	return out
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

func (h *ErrorHandler) logError(job entities.Job, out Outcome) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":        job.Key,
		"jobType":       job.Type,
		"workflowKey":   job.ProcessInstanceKey,
		"errorCode":     string(out.Standard.Code),
		"bpmnErrorCode": out.BPMN.Code,
		"message":       out.BPMN.Message,
		"details":       out.Standard.Details,
		"retryable":     out.Standard.Retryable,
		"thrown":        out.Throw,
		"retries":       out.Retries,
		"errorCategory": GetErrorCategory(out.Standard.Code),
	})
}
