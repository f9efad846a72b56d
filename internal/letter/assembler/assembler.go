// Package assembler sequences the letter pipeline: pre-generation checks,
// generation, compliance, sizing, layout and final rendering.
package assembler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"petition-workers/internal/common/aws"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/common/metrics"
	"petition-workers/internal/common/observability"
	"petition-workers/internal/letter/compliance"
	"petition-workers/internal/letter/dates"
	"petition-workers/internal/letter/finance"
	"petition-workers/internal/letter/layout"
	"petition-workers/internal/models"
)

// RequiredCategories must be present before a letter may be finalized.
var RequiredCategories = []models.DocumentCategory{
	models.CategoryStatusRecord,
	models.CategoryProgramRecord,
}

// Generator produces section text for a context bundle.
type Generator interface {
	Generate(ctx context.Context, gc models.GenerationContext) (models.Sections, error)
}

// Notifier announces letters that need human review.
type Notifier interface {
	NotifyReview(ctx context.Context, ev aws.ReviewEvent) (string, error)
}

// Result is the outcome of one assembly. Document is empty unless Final.
type Result struct {
	Document string          `json:"document"`
	Final    bool            `json:"final"`
	Sections models.Sections `json:"sections,omitempty"`
	Report   models.Report   `json:"report"`
	// Blocking is the first reason the letter could not be finalized.
	Blocking *apperrors.StandardError `json:"blocking,omitempty"`
}

// Preparation is everything derived from the application before generation.
type Preparation struct {
	Context    compliance.Context
	Generation models.GenerationContext
	Fatal      []*apperrors.StandardError
	Warnings   []string
}

// Blocked reports whether a fatal pre-generation check failed.
func (p Preparation) Blocked() bool { return len(p.Fatal) > 0 }

// FatalMessages renders the fatal checks as report lines.
func (p Preparation) FatalMessages() []string {
	out := make([]string, 0, len(p.Fatal))
	for _, e := range p.Fatal {
		if e.Details != "" {
			out = append(out, e.Message+" ("+e.Details+")")
			continue
		}
		out = append(out, e.Message)
	}
	return out
}

type Option func(*Assembler)

func WithGenerator(g Generator) Option { return func(a *Assembler) { a.generator = g } }

func WithNotifier(n Notifier) Option { return func(a *Assembler) { a.notifier = n } }

func WithLogger(l logger.Logger) Option { return func(a *Assembler) { a.logger = l } }

func WithObservability(o *observability.Observability) Option {
	return func(a *Assembler) { a.obs = o }
}

// WithClock fixes "now" for date checks when the filing date is absent.
func WithClock(now func() time.Time) Option { return func(a *Assembler) { a.now = now } }

// Assembler holds no per-run state and may be shared between goroutines.
type Assembler struct {
	settings  Settings
	checker   *compliance.Checker
	validator *layout.Validator
	generator Generator
	notifier  Notifier
	logger    logger.Logger
	obs       *observability.Observability
	now       func() time.Time
}

func New(settings Settings, catalog *compliance.Catalog, opts ...Option) *Assembler {
	a := &Assembler{
		settings:  settings,
		checker:   compliance.NewChecker(catalog, settings.Compliance),
		validator: layout.NewValidator(settings.Layout, settings.Reducible),
		logger:    logger.NewNoOpLogger(),
		obs:       observability.Noop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("assembler")
	return a
}

func (a *Assembler) Settings() Settings { return a.settings }

// Check runs the compliance checker against sections for app.
func (a *Assembler) Check(app *models.Application, sections models.Sections) models.RuleCheckResult {
	return a.checker.Check(sections, compliance.BuildContext(app, a.now()))
}

// Prepare runs the fatal pre-generation checks and builds the generation context.
func (a *Assembler) Prepare(app *models.Application) Preparation {
	cctx := compliance.BuildContext(app, a.now())
	p := Preparation{Context: cctx}

	for _, c := range RequiredCategories {
		if !app.Has(c) {
			p.Fatal = append(p.Fatal, apperrors.NewRequiredDocumentMissingError(string(c)))
		}
	}

	d := cctx.Decision
	switch {
	case cctx.Calculation.TotalAvailable <= 0:
		p.Fatal = append(p.Fatal, apperrors.NewNoFinancialResourcesError())
	case d.Status == finance.StatusInsufficient:
		p.Fatal = append(p.Fatal, apperrors.NewInsufficientFundsError(cctx.Calculation.TotalAvailable, d.Required))
	case d.Status == finance.StatusIndeterminate:
		p.Warnings = append(p.Warnings, "finance: "+d.Reason)
	}

	for _, e := range cctx.Dates.Errors {
		p.Warnings = append(p.Warnings, "dates: "+e+"; all dates suppressed")
	}
	for _, w := range cctx.Dates.Warnings {
		p.Warnings = append(p.Warnings, "dates: "+w)
	}

	p.Generation = a.generationContext(app, cctx)
	return p
}

func (a *Assembler) generationContext(app *models.Application, cctx compliance.Context) models.GenerationContext {
	requested := append([]models.SectionName(nil), models.SectionOrder...)
	return models.GenerationContext{
		ApplicantName:    app.ApplicantName(),
		VisaType:         visaType(app),
		DocumentType:     a.settings.DocumentType,
		RequiredVoice:    a.settings.Compliance.RequiredVoice,
		Facts:            facts(app, cctx),
		FinancialSummary: finance.Summary(cctx.Calculation, cctx.Required),
		Exhibits:         cctx.Exhibits,
		SuppressedTopics: cctx.Dates.SuppressedTopics,
		Directives:       cctx.Dates.Directives,
		Sections:         requested,
		WordLimits:       a.settings.wordLimits(requested),
	}
}

// Assemble runs the pipeline. When sections is nil the configured generator
// is asked for them. Blocking outcomes are reported in Result; the returned
// error is reserved for infrastructure failures.
func (a *Assembler) Assemble(ctx context.Context, app *models.Application, sections models.Sections) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx, span := a.obs.StartSpan(ctx, "letter.assemble", attribute.String("run_id", runID))
	defer span.End()

	log := a.logger.With(map[string]interface{}{"runId": runID, "applicationId": app.ID})
	res := &Result{Report: models.Report{
		RunID:        runID,
		Errors:       []string{},
		Warnings:     []string{},
		LayoutIssues: []models.LayoutIssue{},
	}}

	_, prepSpan := a.obs.StartSpan(ctx, "letter.prepare")
	prep := a.Prepare(app)
	prepSpan.End()
	res.Report.Warnings = append(res.Report.Warnings, prep.Warnings...)
	log.Info("prepared", map[string]interface{}{
		"stage":    "prepare",
		"fatal":    len(prep.Fatal),
		"warnings": len(prep.Warnings),
		"decision": string(prep.Context.Decision.Status),
		"exhibits": len(prep.Context.Exhibits),
	})
	if prep.Blocked() {
		res.Report.Errors = append(res.Report.Errors, prep.FatalMessages()...)
		res.Blocking = prep.Fatal[0]
		return a.finish(ctx, app, res, start), nil
	}

	if sections == nil {
		if a.generator == nil {
			return nil, fmt.Errorf("no sections supplied and no generator configured")
		}
		genCtx, genSpan := a.obs.StartSpan(ctx, "letter.generate")
		generated, err := a.generator.Generate(genCtx, prep.Generation)
		genSpan.End()
		if err != nil {
			metrics.LetterAssemblies.WithLabelValues(metrics.OutcomeFailed).Inc()
			a.obs.RecordAssembly(ctx, metrics.OutcomeFailed, time.Since(start))
			log.WithError(err).Error("generation failed", map[string]interface{}{"stage": "generate"})
			return nil, err
		}
		sections = generated
	}
	raw := sections.Clone()

	_, checkSpan := a.obs.StartSpan(ctx, "letter.check")
	check := a.checker.Check(raw, prep.Context)
	checkSpan.End()
	metrics.RecordFindings(check.Findings)
	log.Info("checked", map[string]interface{}{
		"stage":    "check",
		"errors":   len(check.Errors),
		"warnings": len(check.Warnings),
	})
	if !check.Passed {
		res.Report.Errors = append(res.Report.Errors, check.Errors...)
		res.Report.Warnings = append(res.Report.Warnings, check.Warnings...)
		res.Report.Findings = check.Findings
		res.Blocking = apperrors.NewComplianceViolationError(check.Errors)
		return a.finish(ctx, app, res, start), nil
	}

	_, sizeSpan := a.obs.StartSpan(ctx, "letter.size")
	engine := a.settings.engine()
	sized, records := engine.SizeAll(raw)
	sized, global := engine.EnforceGlobalBudget(sized)
	records = append(records, global...)
	sizeSpan.End()
	metrics.RecordSizing(records)
	res.Report.SizingActions = records
	log.Info("sized", map[string]interface{}{"stage": "size", "actions": len(records)})

	_, layoutSpan := a.obs.StartSpan(ctx, "letter.layout")
	before := a.validator.Validate(sized)
	fix := a.validator.AutoFix(sized, before)
	layoutSpan.End()
	if !before.IsValid {
		metrics.RecordAutoFix(fix.Accepted)
	}
	log.Info("laid out", map[string]interface{}{
		"stage":          "layout",
		"issuesBefore":   len(before.Issues),
		"issuesAfter":    len(fix.Result.Issues),
		"autoFixApplied": fix.Accepted,
	})

	_, recheckSpan := a.obs.StartSpan(ctx, "letter.recheck")
	final, restored := a.restoreRegressions(raw, fix.Sections, check, prep.Context)
	recheck := a.checker.Check(final, prep.Context)
	recheckSpan.End()
	for _, name := range restored {
		res.Report.Warnings = append(res.Report.Warnings,
			fmt.Sprintf("section %s restored to its pre-compression text: compression introduced a compliance error", name))
	}
	res.Report.Warnings = append(res.Report.Warnings, recheck.Warnings...)
	res.Report.Findings = recheck.Findings
	if !recheck.Passed {
		res.Report.Errors = append(res.Report.Errors, recheck.Errors...)
		res.Blocking = apperrors.NewComplianceViolationError(recheck.Errors)
		return a.finish(ctx, app, res, start), nil
	}

	layoutResult := fix.Result
	if len(restored) > 0 {
		layoutResult = a.validator.Validate(final)
	}
	res.Report.LayoutIssues = append(res.Report.LayoutIssues, layoutResult.Issues...)
	res.Sections = final
	res.Document = Render(app, final, prep.Context.Exhibits, a.settings.DocumentType)
	res.Final = true
	return a.finish(ctx, app, res, start), nil
}

// restoreRegressions compares the compressed sections with the raw ones and
// puts back any section whose compressed form introduced an error that the
// raw text did not have.
func (a *Assembler) restoreRegressions(raw, compressed models.Sections, baseline models.RuleCheckResult, cctx compliance.Context) (models.Sections, []models.SectionName) {
	known := compliance.ErrorKeys(baseline.Findings)
	after := a.checker.Check(compressed, cctx)

	offending := map[models.SectionName]bool{}
	for _, f := range after.Findings {
		if f.Severity != models.SeverityError {
			continue
		}
		if known[f.RuleID+"|"+string(f.Section)+"|"+f.Match] {
			continue
		}
		if f.Section == "" {
			for _, name := range compressed.Populated() {
				if compressed.Get(name) != raw.Get(name) {
					offending[name] = true
				}
			}
			continue
		}
		offending[f.Section] = true
	}
	if len(offending) == 0 {
		return compressed, nil
	}

	out := compressed.Clone()
	var restored []models.SectionName
	for _, name := range models.SectionOrder {
		if offending[name] && compressed.Get(name) != raw.Get(name) {
			out[name] = raw[name]
			restored = append(restored, name)
		}
	}
	return out, restored
}

func (a *Assembler) finish(ctx context.Context, app *models.Application, res *Result, start time.Time) *Result {
	outcome := metrics.OutcomeFinal
	if !res.Final {
		outcome = metrics.OutcomeBlocked
	}
	metrics.LetterAssemblies.WithLabelValues(outcome).Inc()
	a.obs.RecordAssembly(ctx, outcome, time.Since(start))

	log := a.logger.With(map[string]interface{}{"runId": res.Report.RunID})
	log.Info("assembly finished", map[string]interface{}{
		"outcome":      outcome,
		"errors":       len(res.Report.Errors),
		"warnings":     len(res.Report.Warnings),
		"layoutIssues": len(res.Report.LayoutIssues),
		"durationMs":   time.Since(start).Milliseconds(),
	})

	if !res.Final && a.notifier != nil {
		msgID, err := a.notifier.NotifyReview(ctx, aws.ReviewEvent{
			RunID:         res.Report.RunID,
			ApplicationID: app.ID,
			Errors:        res.Report.Errors,
			WarningCount:  len(res.Report.Warnings),
			LayoutIssues:  len(res.Report.LayoutIssues),
		})
		if err != nil {
			log.WithError(apperrors.NewNotificationSendFailedError("sns", err)).Warn("review notification failed", nil)
		} else {
			log.Debug("review notification sent", map[string]interface{}{"messageId": msgID})
		}
	}
	return res
}

func visaType(app *models.Application) string {
	if v := strings.TrimSpace(app.Metadata.VisaType); v != "" {
		return v
	}
	return "F-1"
}

// facts are the plain values handed to the generator. Dates are left out
// when the date validator suppressed them.
func facts(app *models.Application, cctx compliance.Context) map[string]string {
	out := map[string]string{}
	put := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	noDates := cctx.Dates.Suppresses(dates.TopicAllDates)

	put("nationality", app.Applicant.Nationality)
	if pp, ok := app.Passport(); ok && out["nationality"] == "" {
		put("nationality", pp.Nationality)
	}
	put("currentAddress", app.Metadata.CurrentAddress)

	if st, ok := app.CurrentStatus(); ok {
		put("currentStatus", st.ClassOfAdmission)
		put("admissionNumber", st.AdmissionNumber)
		if !noDates {
			put("entryDate", st.EntryDate)
			put("admitUntilDate", st.AdmitUntilDate)
		}
	}
	if prog, ok := app.CurrentProgram(); ok {
		put("schoolName", prog.SchoolName)
		put("programName", prog.ProgramName)
		if !noDates && !cctx.Dates.Suppresses(dates.TopicProgramDates) {
			put("programStartDate", prog.StartDate)
			put("programEndDate", prog.EndDate)
		}
	}

	put("currentEmployment", app.Questionnaire.Answer(models.AnswerCurrentEmployment))
	put("studyPurpose", app.Questionnaire.Answer(models.AnswerStudyPurpose))
	if cctx.Calculation.SponsorAmount > 0 {
		put("sponsorName", cctx.Calculation.SponsorName)
		put("sponsorRelationship", app.Questionnaire.Answer(models.AnswerSponsorRelationship))
	}

	var ties []string
	for _, t := range app.TiesRecords() {
		if d := strings.TrimSpace(t.Description); d != "" {
			ties = append(ties, d)
		}
	}
	put("homeTies", strings.Join(ties, "; "))
	put("fundingStatus", string(cctx.Decision.Status))
	return out
}
