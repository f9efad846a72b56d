package assembler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"petition-workers/internal/common/aws"
	"petition-workers/internal/common/config"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/letter/compliance"
	"petition-workers/internal/letter/dates"
	"petition-workers/internal/models"
)

const financialText = "Tuition: USD $10,000\n" +
	"Living Expenses: USD $7,000\n" +
	"Total Required: USD $17,000\n" +
	"Available Financial Resources:\n" +
	"Personal funds: USD $25,000\n" +
	"Total Available: USD $25,000\n\n" +
	"My personal savings cover tuition and living expenses for the full program (Exhibit D)."

func sections() models.Sections {
	return models.Sections{
		models.SectionIntroduction: "I, Ana Souza, respectfully request a change of nonimmigrant status to F-1 status so that I can pursue graduate study.",
		models.SectionEntryStatus:  "I entered the United States in B-2 status and have complied with the terms of my admission (Exhibit A).",
		models.SectionPurpose:      "I was admitted to the Master of Science program at State University (Exhibit B). The program builds on my professional background in civil engineering.",
		models.SectionFinancial:    financialText,
		models.SectionTies:         "I hold a signed employment offer from Construtora Lima in Sao Paulo that begins after graduation (Exhibit C). My family owns a house in Campinas.",
		models.SectionConclusion:   "I respectfully ask that this request be granted. Thank you for your consideration.",
	}
}

func application() *models.Application {
	return &models.Application{
		ID:        "app-1",
		Applicant: models.Applicant{FullName: "Ana Souza", Nationality: "Brazil"},
		Documents: models.Documents{
			models.CategoryPassport: {{"fullName": "Ana Souza", "nationality": "Brazil"}},
			models.CategoryStatusRecord: {{
				"classOfAdmission": "B-2",
				"entryDate":        "2024-09-01",
				"admitUntilDate":   "2025-03-01",
			}},
			models.CategoryProgramRecord: {{
				"schoolName":       "State University",
				"programName":      "Master of Science in Civil Engineering",
				"programStartDate": "2025-08-20",
				"tuition":          "$10,000",
				"livingExpenses":   "$7,000",
			}},
			models.CategoryBankStatement: {{"accountHolder": "Ana Souza", "closingBalance": "25,000.00", "statementType": "applicant"}},
			models.CategoryTiesRecord:    {{"kind": "employment", "description": "Employment offer from Construtora Lima"}},
		},
		Metadata: models.Metadata{VisaType: "F-1", FilingDate: "2025-01-10"},
	}
}

func clock() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) }

type stubGenerator struct {
	sections models.Sections
	err      error
	calls    int
	got      models.GenerationContext
}

func (g *stubGenerator) Generate(_ context.Context, gc models.GenerationContext) (models.Sections, error) {
	g.calls++
	g.got = gc
	return g.sections, g.err
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyReview(ctx context.Context, ev aws.ReviewEvent) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

func newAssembler(t *testing.T, opts ...Option) *Assembler {
	t.Helper()
	opts = append([]Option{WithClock(clock), WithLogger(logger.NewTestLogger(t))}, opts...)
	return New(DefaultSettings(), compliance.MustDefaultCatalog(), opts...)
}

func TestAssemble_Final(t *testing.T) {
	a := newAssembler(t)

	res, err := a.Assemble(context.Background(), application(), sections())

	require.NoError(t, err)
	assert.True(t, res.Final, "errors: %v", res.Report.Errors)
	assert.Empty(t, res.Report.Errors)
	assert.NotEmpty(t, res.Report.RunID)

	doc := res.Document
	assert.True(t, strings.HasPrefix(doc, "RE: Application for Change of Nonimmigrant Status to F-1\nApplicant: Ana Souza\n\nDear Officer:\n\n"))
	assert.Less(t, strings.Index(doc, "I, Ana Souza"), strings.Index(doc, "I entered the United States"))
	assert.Less(t, strings.Index(doc, "Total Available:"), strings.Index(doc, "I hold a signed employment offer"))
	assert.Contains(t, doc, "Respectfully submitted,\n\nAna Souza\n")
	assert.Contains(t, doc, "Exhibit Index\nExhibit A: ")
	assert.Contains(t, doc, "Exhibit D: ")
}

func TestAssemble_NoFinancialResources(t *testing.T) {
	app := application()
	delete(app.Documents, models.CategoryBankStatement)
	app.Documents[models.CategoryProgramRecord][0]["totalCost"] = "$20,000"

	gen := &stubGenerator{sections: sections()}
	a := newAssembler(t, WithGenerator(gen))

	res, err := a.Assemble(context.Background(), app, nil)

	require.NoError(t, err)
	assert.False(t, res.Final)
	assert.Empty(t, res.Document)
	assert.Contains(t, res.Report.Errors, "no financial resources documented")
	require.NotNil(t, res.Blocking)
	assert.Equal(t, apperrors.ErrCodeNoFinancialResources, res.Blocking.Code)
	assert.Zero(t, gen.calls)
}

func TestAssemble_BlockingPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Application)
		wantErr string
	}{
		{
			name:    "missing status record",
			mutate:  func(a *models.Application) { delete(a.Documents, models.CategoryStatusRecord) },
			wantErr: "Required source document missing (category: status_record)",
		},
		{
			name:    "missing program record",
			mutate:  func(a *models.Application) { delete(a.Documents, models.CategoryProgramRecord) },
			wantErr: "Required source document missing (category: program_record)",
		},
		{
			name: "insufficient funds",
			mutate: func(a *models.Application) {
				a.Documents[models.CategoryBankStatement][0]["closingBalance"] = "12,000.00"
			},
			wantErr: "documented funds below required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := application()
			tt.mutate(app)

			res, err := newAssembler(t).Assemble(context.Background(), app, sections())

			require.NoError(t, err)
			assert.False(t, res.Final)
			found := false
			for _, e := range res.Report.Errors {
				if strings.HasPrefix(e, tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "errors: %v", res.Report.Errors)
		})
	}
}

func TestAssemble_ComplianceErrorsBlock(t *testing.T) {
	s := sections()
	s[models.SectionConclusion] = "I trust this request will be approved."

	res, err := newAssembler(t).Assemble(context.Background(), application(), s)

	require.NoError(t, err)
	assert.False(t, res.Final)
	assert.Empty(t, res.Document)
	require.NotEmpty(t, res.Report.Errors)
	assert.Contains(t, strings.Join(res.Report.Errors, "\n"), "OVERCLAIM")
	require.NotNil(t, res.Blocking)
	assert.Equal(t, apperrors.ErrCodeComplianceViolation, res.Blocking.Code)
	assert.NotEmpty(t, res.Report.Findings)
}

func TestAssemble_GeneratesWhenSectionsOmitted(t *testing.T) {
	gen := &stubGenerator{sections: sections()}
	a := newAssembler(t, WithGenerator(gen))

	res, err := a.Assemble(context.Background(), application(), nil)

	require.NoError(t, err)
	assert.True(t, res.Final, "errors: %v", res.Report.Errors)
	assert.Equal(t, 1, gen.calls)

	gc := gen.got
	assert.Equal(t, "Ana Souza", gc.ApplicantName)
	assert.Equal(t, compliance.VoiceFirst, gc.RequiredVoice)
	assert.Equal(t, models.SectionOrder, gc.Sections)
	assert.Equal(t, 120, gc.WordLimits[string(models.SectionIntroduction)])
	assert.Contains(t, gc.FinancialSummary, "Total Available: USD $25,000")
	assert.Equal(t, "State University", gc.Facts["schoolName"])
	assert.Equal(t, "2024-09-01", gc.Facts["entryDate"])
	assert.Len(t, gc.Exhibits, 4)
}

func TestAssemble_GenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: apperrors.NewGenerationTimeoutError(errors.New("deadline"))}

	res, err := newAssembler(t, WithGenerator(gen)).Assemble(context.Background(), application(), nil)

	assert.Nil(t, res)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeGenerationTimeout, stdErr.Code)
}

func TestAssemble_NoGenerator(t *testing.T) {
	_, err := newAssembler(t).Assemble(context.Background(), application(), nil)
	assert.Error(t, err)
}

func TestAssemble_NotifiesOnlyWhenBlocked(t *testing.T) {
	n := &mockNotifier{}
	n.On("NotifyReview", mock.Anything, mock.MatchedBy(func(ev aws.ReviewEvent) bool {
		return ev.ApplicationID == "app-1" && len(ev.Errors) > 0
	})).Return("msg-1", nil).Once()

	a := newAssembler(t, WithNotifier(n))

	blocked := sections()
	blocked[models.SectionConclusion] = "I trust this request will be approved."
	_, err := a.Assemble(context.Background(), application(), blocked)
	require.NoError(t, err)

	_, err = a.Assemble(context.Background(), application(), sections())
	require.NoError(t, err)

	n.AssertExpectations(t)
}

func TestAssemble_NotifierFailureDoesNotFail(t *testing.T) {
	n := &mockNotifier{}
	n.On("NotifyReview", mock.Anything, mock.Anything).Return("", errors.New("throttled"))

	app := application()
	delete(app.Documents, models.CategoryStatusRecord)

	res, err := newAssembler(t, WithNotifier(n)).Assemble(context.Background(), app, sections())

	require.NoError(t, err)
	assert.False(t, res.Final)
	n.AssertExpectations(t)
}

func TestAssemble_Idempotent(t *testing.T) {
	a := newAssembler(t)

	first, err := a.Assemble(context.Background(), application(), sections())
	require.NoError(t, err)
	second, err := a.Assemble(context.Background(), application(), sections())
	require.NoError(t, err)

	assert.Equal(t, first.Document, second.Document)
	assert.Equal(t, first.Report.Errors, second.Report.Errors)
	assert.Equal(t, first.Report.LayoutIssues, second.Report.LayoutIssues)
	assert.NotEqual(t, first.Report.RunID, second.Report.RunID)
}

func TestPrepare_DateConflictsSuppressDates(t *testing.T) {
	app := application()
	app.Documents[models.CategoryStatusRecord][0]["admitUntilDate"] = "2024-12-01"

	p := newAssembler(t).Prepare(app)

	assert.False(t, p.Blocked())
	assert.Contains(t, p.Generation.Directives, dates.DirectiveNoDates)
	assert.Contains(t, p.Generation.SuppressedTopics, dates.TopicAllDates)
	assert.NotContains(t, p.Generation.Facts, "entryDate")
	assert.NotContains(t, p.Generation.Facts, "programStartDate")
	assert.NotEmpty(t, p.Warnings)
}

func TestPrepare_IndeterminateIsWarning(t *testing.T) {
	app := application()
	app.Documents[models.CategoryProgramRecord][0] = models.ExtractedDocumentFacts{"schoolName": "State University"}

	p := newAssembler(t).Prepare(app)

	assert.False(t, p.Blocked())
	require.NotEmpty(t, p.Warnings)
	assert.True(t, strings.HasPrefix(p.Warnings[0], "finance: "))
}

func TestRestoreRegressions(t *testing.T) {
	a := newAssembler(t)
	app := application()
	raw := sections()
	cctx := compliance.BuildContext(app, clock())
	baseline := a.checker.Check(raw, cctx)
	require.True(t, baseline.Passed, "baseline: %v", baseline.Errors)

	compressed := raw.Clone()
	compressed[models.SectionFinancial] = "My personal savings cover tuition for the full program (Exhibit D)."
	compressed[models.SectionIntroduction] = "I, Ana Souza, respectfully request a change of nonimmigrant status to F-1 status."

	out, restored := a.restoreRegressions(raw, compressed, baseline, cctx)

	assert.Equal(t, []models.SectionName{models.SectionFinancial}, restored)
	assert.Equal(t, raw[models.SectionFinancial], out[models.SectionFinancial])
	assert.Equal(t, compressed[models.SectionIntroduction], out[models.SectionIntroduction])
}

func TestRender_ExhibitIndexOnlyCitedAndAvailable(t *testing.T) {
	app := application()
	s := sections()
	s[models.SectionTies] = "My family owns a house in Campinas (Exhibit F)."
	available := []models.Exhibit{
		{Letter: "A", Description: "Passport and arrival record"},
		{Letter: "B", Description: "Program record"},
		{Letter: "E", Description: "Tax Return"},
	}

	doc := Render(app, s, available, compliance.DocumentAttorneyLetter)

	assert.Contains(t, doc, "Exhibit A: Passport and arrival record\n")
	assert.Contains(t, doc, "Exhibit B: Program record\n")
	assert.NotContains(t, doc, "Exhibit E:")
	assert.NotContains(t, doc, "Exhibit F:")
	assert.Contains(t, doc, "Counsel for Ana Souza")
}

func TestRender_NoIndexWithoutCitations(t *testing.T) {
	s := models.Sections{models.SectionIntroduction: "I request a change of status."}
	doc := Render(application(), s, []models.Exhibit{{Letter: "A", Description: "x"}}, compliance.DocumentCoverLetter)
	assert.NotContains(t, doc, "Exhibit Index")
}

func TestSettingsFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LetterConfig
		wantVoice string
		check     func(t *testing.T, s Settings)
	}{
		{
			name:      "empty keeps defaults",
			cfg:       config.LetterConfig{},
			wantVoice: compliance.VoiceFirst,
			check: func(t *testing.T, s Settings) {
				assert.Equal(t, DefaultSettings(), s)
			},
		},
		{
			name:      "attorney letter is third person",
			cfg:       config.LetterConfig{DocumentType: compliance.DocumentAttorneyLetter},
			wantVoice: compliance.VoiceThird,
		},
		{
			name:      "explicit voice wins",
			cfg:       config.LetterConfig{DocumentType: compliance.DocumentAttorneyLetter, RequiredVoice: "first"},
			wantVoice: compliance.VoiceFirst,
		},
		{
			name: "limits and budget",
			cfg: config.LetterConfig{
				MaxTotalWords:     800,
				ReducibleSections: []string{"conclusion"},
				Sections:          map[string]config.SectionLimit{"introduction": {Min: 10, Max: 50}},
			},
			wantVoice: compliance.VoiceFirst,
			check: func(t *testing.T, s Settings) {
				assert.Equal(t, 800, s.MaxTotal)
				assert.Equal(t, []models.SectionName{models.SectionConclusion}, s.Reducible)
				assert.Equal(t, 50, s.Limits[models.SectionIntroduction].Max)
				assert.Equal(t, 220, s.Limits[models.SectionPurpose].Max)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SettingsFromConfig(tt.cfg)
			assert.Equal(t, tt.wantVoice, s.Compliance.RequiredVoice)
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestSettingsFromConfig_DoesNotAliasDefaults(t *testing.T) {
	s := SettingsFromConfig(config.LetterConfig{Sections: map[string]config.SectionLimit{"introduction": {Min: 1, Max: 2}}})
	assert.Equal(t, 2, s.Limits[models.SectionIntroduction].Max)
	assert.Equal(t, 120, DefaultSettings().Limits[models.SectionIntroduction].Max)
}
