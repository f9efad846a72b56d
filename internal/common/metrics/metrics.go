// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"petition-workers/internal/models"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	LetterAssemblies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letter_assemblies_total",
			Help: "Letter assembly runs by outcome (final, blocked, failed)",
		},
		[]string{"outcome"},
	)

	LetterRuleFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letter_rule_findings_total",
			Help: "Compliance findings by rule and severity",
		},
		[]string{"rule", "severity"},
	)

	LetterSizingActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letter_sizing_actions_total",
			Help: "Section sizing actions",
		},
		[]string{"action"},
	)

	LetterAutoFix = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letter_autofix_total",
			Help: "Layout auto-fix attempts by acceptance",
		},
		[]string{"accepted"},
	)

	GenerationCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letter_generation_cache_lookups_total",
			Help: "Generated-section cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// Assembly outcomes.
const (
	OutcomeFinal   = "final"
	OutcomeBlocked = "blocked"
	OutcomeFailed  = "failed"
)

// RecordFindings counts every finding once.
func RecordFindings(findings []models.Finding) {
	for _, f := range findings {
		LetterRuleFindings.WithLabelValues(f.RuleID, string(f.Severity)).Inc()
	}
}

func RecordSizing(records []models.SizingRecord) {
	for _, r := range records {
		LetterSizingActions.WithLabelValues(r.Action).Inc()
	}
}

func RecordAutoFix(accepted bool) {
	LetterAutoFix.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}
