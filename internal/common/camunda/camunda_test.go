package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petition-workers/internal/common/config"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/metrics"
)

func job(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: "reconcile-finances", Variables: variables}}
}

func TestDecodeVariables(t *testing.T) {
	type input struct {
		Application struct {
			ID string `json:"id"`
		} `json:"application"`
	}

	tests := []struct {
		name      string
		taskType  string
		variables string
		errCode   apperrors.ErrorCode
	}{
		{name: "valid", taskType: "reconcile-finances", variables: `{"application":{"id":"a1","documents":{}}}`},
		{name: "schema violation", taskType: "reconcile-finances", variables: `{"application":{"id":"a1"}}`, errCode: apperrors.ErrCodeInputValidationFailed},
		{name: "not json", taskType: "reconcile-finances", variables: `{`, errCode: apperrors.ErrCodeParseError},
		{name: "unknown task type", taskType: "send-fax", variables: `{}`, errCode: apperrors.ErrCodeParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in input
			err := DecodeVariables(tt.taskType, job(tt.variables), &in)
			if tt.errCode != "" {
				stdErr, ok := apperrors.AsStandardError(err)
				require.True(t, ok)
				assert.Equal(t, tt.errCode, stdErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a1", in.Application.ID)
		})
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(errors.New("rpc error: code = Unavailable desc = connection refused")))
	assert.True(t, isRetryableZeebeError(context.DeadlineExceeded))
	assert.False(t, isRetryableZeebeError(errors.New("NOT_FOUND: no such job")))
}

func testClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{RetryConfig: &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}}}
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		res, err := testClient(3).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("connection reset by peer")
			}
			return "ok", nil
		}, "topology")

		require.NoError(t, err)
		assert.Equal(t, "ok", res)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error stops at once", func(t *testing.T) {
		calls := 0
		_, err := testClient(3).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			return nil, errors.New("invalid argument")
		}, "complete")

		assert.ErrorContains(t, err, "after 1 attempts")
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := testClient(2).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			return nil, errors.New("unavailable")
		}, "topology")

		assert.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := testClient(3)
		c.config.RetryConfig.BaseDelay = time.Second
		_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
			return nil, errors.New("timeout")
		}, "topology")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRecordOutcome(t *testing.T) {
	const taskType = "camunda-test"

	RecordOutcome(taskType, time.Now(), nil)
	RecordOutcome(taskType, time.Now(), apperrors.NewInsufficientFundsError(100, 200))
	RecordOutcome(taskType, time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(taskType)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(taskType, "INSUFFICIENT_FUNDS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(taskType, "INTERNAL_ERROR")))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", UsePlaintext: true, RequestTimeout: 5000})

	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultRetryConfig, cfg.RetryConfig)
}
