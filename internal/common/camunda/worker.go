// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/common/metrics"
	"petition-workers/internal/common/observability"
	"petition-workers/pkg/registry"
)

// JobHandler is implemented by every worker handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerOptions configures one job worker subscription.
type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	Name          string
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for opts.TaskType. The gauge of active jobs
// is maintained around each Handle call.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	step := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(func(c worker.JobClient, job entities.Job) {
			active := metrics.WorkerJobsActive.WithLabelValues(opts.TaskType)
			active.Inc()
			defer active.Dec()
			handler.Handle(c, job)
		})

	cmd := step.MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		cmd = cmd.Timeout(opts.Timeout)
	}
	if opts.Name != "" {
		cmd = cmd.Name(opts.Name)
	}

	w := &CamundaWorker{
		worker:   cmd.Open(),
		logger:   log.WithFields(map[string]interface{}{"taskType": opts.TaskType}),
		taskType: opts.TaskType,
	}
	w.logger.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"timeoutMs":     opts.Timeout.Milliseconds(),
	})
	return w
}

func (w *CamundaWorker) TaskType() string { return w.taskType }

// Stop closes the subscription and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

// DecodeVariables validates the job variables against the task type's input
// schema and unmarshals them into out.
func DecodeVariables(taskType string, job entities.Job, out interface{}) error {
	raw := []byte(job.Variables)

	reg, err := registry.Default()
	if err != nil {
		return errors.NewInputValidationError("activity registry unavailable: " + err.Error())
	}
	res, err := reg.ValidateInput(taskType, raw)
	if err != nil {
		return errors.NewParseError("job variables", err)
	}
	if !res.Valid {
		return errors.NewInputValidationError(strings.Join(res.GetErrorMessages(), "; "))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewParseError("job variables", err)
	}
	return nil
}

// CompleteJob sends the output as job variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return err
	}
	_, err = cmd.Send(ctx)
	return err
}

var obs = observability.Noop()

// SetObservability routes job outcomes to o as well. Call it before any
// worker is opened.
func SetObservability(o *observability.Observability) {
	if o != nil {
		obs = o
	}
}

// RecordOutcome updates the job counters and duration histogram.
func RecordOutcome(taskType string, started time.Time, err error) {
	elapsed := time.Since(started)
	metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())

	status := "completed"
	if err == nil {
		metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
	} else {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.Normalize(err).Code)).Inc()
	}
	obs.RecordJobProcessed(context.Background(), taskType, status)
	obs.RecordJobDuration(context.Background(), taskType, elapsed, status)
}
