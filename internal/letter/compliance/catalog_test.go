package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petition-workers/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	for i := 1; i < len(c.Rules); i++ {
		assert.GreaterOrEqual(t, c.Rules[i-1].Priority, c.Rules[i].Priority)
	}

	for _, id := range []string{"STATUS_CONCLUSION", "OVERCLAIM", "VOCAB_PRECISION", "FINANCIAL_TRANSACTION", "EMPLOYMENT_CURRENT", "EMPLOYMENT_PAST", "TIES_SUBJECTIVE", "TIES_OBJECTIVE"} {
		_, ok := c.Rule(id)
		assert.True(t, ok, id)
	}

	r, _ := c.Rule("FINANCIAL_TRANSACTION")
	assert.True(t, r.Applies(models.SectionFinancial))
	assert.False(t, r.Applies(models.SectionTies))
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "malformed yaml", yaml: "rules: [::"},
		{name: "missing id", yaml: "rules:\n  - kind: forbidden\n    severity: error\n    terms: [x]\n"},
		{name: "bad kind", yaml: "rules:\n  - id: A\n    kind: maybe\n    severity: error\n    terms: [x]\n"},
		{name: "bad severity", yaml: "rules:\n  - id: A\n    kind: forbidden\n    severity: fatal\n    terms: [x]\n"},
		{name: "unknown scope", yaml: "rules:\n  - id: A\n    kind: forbidden\n    severity: error\n    scope: appendix\n    terms: [x]\n"},
		{name: "bad regex", yaml: "rules:\n  - id: A\n    kind: forbidden\n    severity: error\n    patterns: ['(']\n"},
		{name: "no matchers", yaml: "rules:\n  - id: A\n    kind: forbidden\n    severity: error\n"},
		{name: "duplicate id", yaml: "rules:\n  - id: A\n    kind: forbidden\n    severity: error\n    terms: [x]\n  - id: A\n    kind: forbidden\n    severity: error\n    terms: [y]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRule_Matches(t *testing.T) {
	c, err := LoadCatalog([]byte(`
rules:
  - id: T
    kind: forbidden
    severity: warning
    terms: ["cash app", "proud"]
`))
	require.NoError(t, err)
	r, _ := c.Rule("T")

	assert.Equal(t, []string{"Cash  App"}, r.Matches("paid via Cash  App"))
	assert.Equal(t, []string{"proud"}, r.Matches("proud and PROUD"))
	assert.Empty(t, r.Matches("a proudly written line"))
}

func TestCatalog_ScanRequiredAny(t *testing.T) {
	c, err := LoadCatalog([]byte(`
rules:
  - id: NEED
    kind: required_any
    severity: warning
    scope: ties_to_home
    message: need a tie
    patterns: ['\bdeed\b']
`))
	require.NoError(t, err)

	findings := c.Scan(models.Sections{models.SectionTies: "I will return home."})
	require.Len(t, findings, 1)
	assert.Equal(t, "NEED", findings[0].RuleID)
	assert.Equal(t, models.SectionTies, findings[0].Section)

	assert.Empty(t, c.Scan(models.Sections{models.SectionTies: "My family holds the deed to our farm."}))
	assert.Empty(t, c.Scan(models.Sections{models.SectionIntroduction: "Hello."}))
}
