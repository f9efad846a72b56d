package reconcilefinances

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petition-workers/internal/common/config"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/letter/finance"
)

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "petition-letter",
		ElementId:          "Activity_ReconcileFinances",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func application(closing string) map[string]interface{} {
	docs := map[string]interface{}{
		"program_record": []interface{}{map[string]interface{}{"tuition": "$10,000", "livingExpenses": "$7,000"}},
	}
	if closing != "" {
		docs["bank_statement"] = []interface{}{map[string]interface{}{
			"accountHolder": "Ana Souza", "closingBalance": closing, "statementType": "applicant",
		}}
	}
	return map[string]interface{}{
		"applicant": map[string]interface{}{"fullName": "Ana Souza"},
		"documents": docs,
	}
}

func newHandler(t *testing.T) *Handler {
	return NewHandler(DefaultConfig(), logger.NewTestLogger(t))
}

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		errCode   apperrors.ErrorCode
	}{
		{name: "valid", variables: map[string]interface{}{"application": application("25,000.00")}},
		{name: "missing application", variables: map[string]interface{}{}, errCode: apperrors.ErrCodeInputValidationFailed},
		{
			name:      "documents not an object",
			variables: map[string]interface{}{"application": map[string]interface{}{"documents": "none"}},
			errCode:   apperrors.ErrCodeInputValidationFailed,
		},
	}

	h := newHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.errCode != "" {
				stdErr, ok := apperrors.AsStandardError(err)
				require.True(t, ok, "error should be StandardError")
				assert.Equal(t, tt.errCode, stdErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ana Souza", input.Application.ApplicantName())
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		closing    string
		status     finance.Status
		sufficient bool
		blocking   apperrors.ErrorCode
	}{
		{name: "sufficient with buffer", closing: "25,000.00", status: finance.StatusSufficient, sufficient: true},
		{name: "insufficient", closing: "12.000,00", status: finance.StatusInsufficient, blocking: apperrors.ErrCodeInsufficientFunds},
		{name: "nothing documented", closing: "", status: finance.StatusInsufficient, blocking: apperrors.ErrCodeNoFinancialResources},
	}

	h := newHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, map[string]interface{}{"application": application(tt.closing)}))
			require.NoError(t, err)

			out, err := h.Execute(context.Background(), input)
			require.NoError(t, err)

			assert.Equal(t, tt.status, out.Decision.Status)
			assert.Equal(t, tt.sufficient, out.Sufficient)
			assert.Equal(t, out.Calculation.PersonalFunds+out.Calculation.SponsorAmount, out.Calculation.TotalAvailable)
			assert.Contains(t, out.Summary, "Total Required: USD $17,000")

			blocking := BlockingError(out)
			if tt.blocking == "" {
				assert.Nil(t, blocking)
				assert.InDelta(t, 8000, out.Decision.Buffer, 0.001)
				return
			}
			require.NotNil(t, blocking)
			assert.Equal(t, tt.blocking, blocking.Code)
			assert.False(t, blocking.Retryable)
		})
	}
}

func TestHandler_ProcessThrowsWhenConfigured(t *testing.T) {
	job := createMockJob(7, map[string]interface{}{"application": application("")})

	_, err := newHandler(t).process(context.Background(), job)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNoFinancialResources, stdErr.Code)

	cfg := DefaultConfig()
	cfg.ThrowOnInsufficient = false
	out, err := NewHandler(cfg, logger.NewNoOpLogger()).process(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, out.Sufficient)
}

func TestConfig(t *testing.T) {
	cfg := FromWorkerConfig(config.WorkerConfig{Enabled: true, MaxJobsActive: 3, Timeout: 2500})
	assert.Equal(t, 3, cfg.MaxJobsActive)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.ThrowOnInsufficient)
	assert.NoError(t, cfg.Validate())

	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())
}
