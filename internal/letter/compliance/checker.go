// Package compliance audits generated letter sections against the rule
// catalog and the facts derived from the application.
package compliance

import (
	"fmt"
	"time"

	"petition-workers/internal/letter/dates"
	"petition-workers/internal/letter/exhibits"
	"petition-workers/internal/letter/finance"
	"petition-workers/internal/models"
)

// Grammatical voices.
const (
	VoiceFirst = "first"
	VoiceThird = "third"
)

// Document types and the voice each one is written in.
const (
	DocumentCoverLetter    = "cover_letter"
	DocumentAttorneyLetter = "attorney_letter"
)

// VoiceFor returns the required voice for a document type.
func VoiceFor(documentType string) string {
	if documentType == DocumentAttorneyLetter {
		return VoiceThird
	}
	return VoiceFirst
}

// DefaultContradictionWindow is how close, in characters, a stated available
// figure and a stated required figure must be to count as a contradiction.
const DefaultContradictionWindow = 200

// CiteableSections must each carry at least one exhibit citation.
var CiteableSections = []models.SectionName{
	models.SectionEntryStatus,
	models.SectionChangeOfIntent,
	models.SectionPurpose,
	models.SectionFinancial,
	models.SectionTies,
}

// Options configures a Checker. The zero value is usable.
type Options struct {
	RequiredVoice       string
	ContradictionWindow int
}

// Context is everything the checker knows besides the text itself.
type Context struct {
	Calculation finance.Calculation
	Required    finance.RequiredFunds
	Decision    finance.Decision
	Dates       dates.Findings
	Exhibits    []models.Exhibit
}

// BuildContext derives a fresh Context from the application.
func BuildContext(app *models.Application, now time.Time) Context {
	calc := finance.CalculateAvailableFunds(app)
	req := finance.EstimateFromApplication(app)
	return Context{
		Calculation: calc,
		Required:    req,
		Decision:    finance.Decide(calc, req),
		Dates:       dates.Validate(dates.FromApplication(app), now),
		Exhibits:    exhibits.Available(app),
	}
}

// Checker is safe for concurrent use; it holds no mutable state.
type Checker struct {
	catalog *Catalog
	opts    Options
}

func NewChecker(catalog *Catalog, opts Options) *Checker {
	if opts.RequiredVoice == "" {
		opts.RequiredVoice = VoiceFirst
	}
	if opts.ContradictionWindow <= 0 {
		opts.ContradictionWindow = DefaultContradictionWindow
	}
	return &Checker{catalog: catalog, opts: opts}
}

// Check runs every rule. Passed is true iff no error-severity finding exists.
func (c *Checker) Check(sections models.Sections, ctx Context) models.RuleCheckResult {
	var findings []models.Finding
	findings = append(findings, c.catalog.Scan(sections)...)
	findings = append(findings, checkDates(sections, ctx.Dates)...)
	findings = append(findings, checkFinancialCompleteness(sections)...)
	findings = append(findings, checkContradictions(sections, ctx, c.opts.ContradictionWindow)...)
	findings = append(findings, checkVoice(sections, c.opts.RequiredVoice)...)
	findings = append(findings, checkCitations(sections, ctx.Exhibits)...)
	return Result(findings)
}

// Result folds findings into the pass/fail verdict.
func Result(findings []models.Finding) models.RuleCheckResult {
	res := models.RuleCheckResult{
		Errors:   []string{},
		Warnings: []string{},
		Findings: findings,
	}
	for _, f := range findings {
		if f.Severity == models.SeverityError {
			res.Errors = append(res.Errors, Describe(f))
		} else {
			res.Warnings = append(res.Warnings, Describe(f))
		}
	}
	res.Passed = len(res.Errors) == 0
	return res
}

// Describe renders a finding as a single report line.
func Describe(f models.Finding) string {
	s := f.RuleID
	if f.Section != "" {
		s += " [" + string(f.Section) + "]"
	}
	s += ": " + f.Message
	if f.Match != "" {
		s += fmt.Sprintf(" (found %q)", f.Match)
	}
	return s
}

// ErrorKeys identifies error findings independently of message wording, so
// two check runs can be compared.
func ErrorKeys(findings []models.Finding) map[string]bool {
	out := map[string]bool{}
	for _, f := range findings {
		if f.Severity == models.SeverityError {
			out[f.RuleID+"|"+string(f.Section)+"|"+f.Match] = true
		}
	}
	return out
}
