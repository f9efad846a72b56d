package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"petition-workers/internal/models"
)

func TestRecordFindings(t *testing.T) {
	before := testutil.ToFloat64(LetterRuleFindings.WithLabelValues("OVERCLAIM", string(models.SeverityError)))

	RecordFindings([]models.Finding{
		{RuleID: "OVERCLAIM", Severity: models.SeverityError},
		{RuleID: "OVERCLAIM", Severity: models.SeverityError},
		{RuleID: "TIES_SUBJECTIVE", Severity: models.SeverityWarning},
	})

	after := testutil.ToFloat64(LetterRuleFindings.WithLabelValues("OVERCLAIM", string(models.SeverityError)))
	assert.Equal(t, 2.0, after-before)
}

func TestRecordSizingAndAutoFix(t *testing.T) {
	sizingBefore := testutil.ToFloat64(LetterSizingActions.WithLabelValues("COMPRESSED"))
	fixBefore := testutil.ToFloat64(LetterAutoFix.WithLabelValues("true"))

	RecordSizing([]models.SizingRecord{{Action: "COMPRESSED"}, {Action: "OK"}})
	RecordAutoFix(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(LetterSizingActions.WithLabelValues("COMPRESSED"))-sizingBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(LetterAutoFix.WithLabelValues("true"))-fixBefore)
}
