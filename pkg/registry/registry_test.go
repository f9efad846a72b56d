package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HasPetitionActivities(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, taskType := range []string{"reconcile-finances", "validate-dates", "check-compliance", "assemble-letter"} {
		a, ok := reg.Activity(taskType)
		require.True(t, ok, taskType)
		assert.Equal(t, "petition", a.Category)
		assert.NotEmpty(t, a.InputSchema)
	}
}

func TestValidateInput(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name     string
		taskType string
		vars     string
		valid    bool
	}{
		{
			name:     "assemble with documents",
			taskType: "assemble-letter",
			vars:     `{"application": {"documents": {"i20": [{"tuition": "10000"}]}}}`,
			valid:    true,
		},
		{
			name:     "assemble without application",
			taskType: "assemble-letter",
			vars:     `{"sections": {}}`,
		},
		{
			name:     "reconcile with non-string fact",
			taskType: "reconcile-finances",
			vars:     `{"application": {"documents": {"bank_statement": [{"closingBalance": 12}]}}}`,
		},
		{
			name:     "compliance with empty sections",
			taskType: "check-compliance",
			vars:     `{"application": {"documents": {}}, "sections": {}}`,
		},
		{
			name:     "compliance with bad document type",
			taskType: "check-compliance",
			vars:     `{"application": {"documents": {}}, "sections": {"introduction": "x"}, "documentType": "memo"}`,
		},
		{
			name:     "dates with bare fields",
			taskType: "validate-dates",
			vars:     `{"entryDate": "2024-01-01", "statusExpiryDate": "D/S"}`,
			valid:    true,
		},
		{
			name:     "dates with nothing",
			taskType: "validate-dates",
			vars:     `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := reg.ValidateInput(tt.taskType, []byte(tt.vars))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, "errors: %v", res.GetErrorMessages())
		})
	}

	_, err = reg.ValidateInput("unknown", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidateInput_MalformedVariables(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, vars := range []string{`{"entryDate": `, `{`, ``} {
		res, err := reg.ValidateInput("validate-dates", []byte(vars))
		assert.ErrorIs(t, err, ErrMalformedVariables, vars)
		assert.Nil(t, res)
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": "0.1", "activities": [{"id": "a", "taskType": "t"}]}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	res, err := reg.ValidateInput("t", []byte(`{"anything": true}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = reg.ValidateInput("t", []byte(`{"anything": `))
	assert.ErrorIs(t, err, ErrMalformedVariables)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"activities": [{"id": "a", "taskType": "t"}, {"id": "b", "taskType": "t"}]}`))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Parse([]byte(`{"activities": [{"id": "a", "taskType": "t", "inputSchema": {"type": 5}}]}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[`))
	assert.Error(t, err)
}

func TestLint(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	assert.Empty(t, reg.Lint())

	bad, err := Parse([]byte(`{"activities": [
		{"id": "a", "displayName": "A", "category": "petition", "taskType": "a", "timeout": "soon"},
		{"id": "a", "displayName": "A2", "category": "petition", "taskType": "a2", "errorCodes": ["MADE_UP"]},
		{"id": "b", "taskType": "b", "retries": -1}
	]}`))
	require.NoError(t, err)

	var msgs []string
	for _, e := range bad.Lint() {
		msgs = append(msgs, e.Error())
	}
	assert.ElementsMatch(t, []string{
		`activity a: invalid timeout "soon"`,
		"duplicate activity ID: a",
		"activity a: unknown error code MADE_UP",
		"activity b missing required field: DisplayName",
		"activity b missing required field: Category",
		"activity b: negative retries",
	}, msgs)

	empty, err := Parse([]byte(`{"activities": []}`))
	require.NoError(t, err)
	assert.Len(t, empty.Lint(), 1)
}
