// internal/models/application.go
package models

import (
	"sort"
	"strings"
)

// Applicant holds identity facts that are not tied to one source document.
type Applicant struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Email       string `json:"email,omitempty"`
}

// QuestionnaireAnswer is one free-form answer tagged by step and category.
type QuestionnaireAnswer struct {
	Step     string `json:"step,omitempty"`
	Category string `json:"category,omitempty"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

type Questionnaire []QuestionnaireAnswer

// Answer returns the first non-empty answer for any of the keys.
func (q Questionnaire) Answer(keys ...string) string {
	for _, k := range keys {
		for _, a := range q {
			if strings.EqualFold(a.Key, k) {
				if v := strings.TrimSpace(a.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// ByCategory returns all answers tagged with the category, in input order.
func (q Questionnaire) ByCategory(category string) []QuestionnaireAnswer {
	var out []QuestionnaireAnswer
	for _, a := range q {
		if strings.EqualFold(a.Category, category) {
			out = append(out, a)
		}
	}
	return out
}

// Questionnaire keys read by the pipeline.
const (
	AnswerPersonalSavings     = "personalSavings"
	AnswerSponsorName         = "sponsorName"
	AnswerSponsorRelationship = "sponsorRelationship"
	AnswerCurrentEmployment   = "currentEmployment"
	AnswerStudyPurpose        = "studyPurpose"
)

type Metadata struct {
	CurrentAddress string `json:"currentAddress,omitempty"`
	VisaType       string `json:"visaType,omitempty"`
	FilingDate     string `json:"filingDate,omitempty"`
}

// Documents is the category → records mapping delivered by the extraction
// collaborator. Unknown categories are kept as-is and surface as extra exhibits.
type Documents map[DocumentCategory][]ExtractedDocumentFacts

// Application is the aggregated view the letter pipeline operates on.
type Application struct {
	ID            string        `json:"id,omitempty"`
	Applicant     Applicant     `json:"applicant"`
	Documents     Documents     `json:"documents"`
	Questionnaire Questionnaire `json:"questionnaire,omitempty"`
	Metadata      Metadata      `json:"metadata"`
}

// Has reports whether at least one record exists for the category.
func (a *Application) Has(c DocumentCategory) bool {
	return len(a.Documents[c]) > 0
}

// Passport returns the authoritative passport record; the last one uploaded wins.
func (a *Application) Passport() (Passport, bool) {
	recs := a.Documents[CategoryPassport]
	if len(recs) == 0 {
		return Passport{}, false
	}
	return DecodePassport(recs[len(recs)-1]), true
}

// CurrentStatus returns the single authoritative status record.
func (a *Application) CurrentStatus() (StatusRecord, bool) {
	recs := a.Documents[CategoryStatusRecord]
	if len(recs) == 0 {
		return StatusRecord{}, false
	}
	return DecodeStatusRecord(recs[len(recs)-1]), true
}

// CurrentProgram returns the single authoritative program record.
func (a *Application) CurrentProgram() (ProgramRecord, bool) {
	recs := a.Documents[CategoryProgramRecord]
	if len(recs) == 0 {
		return ProgramRecord{}, false
	}
	return DecodeProgramRecord(recs[len(recs)-1]), true
}

func (a *Application) BankStatements() []BankStatement {
	recs := a.Documents[CategoryBankStatement]
	out := make([]BankStatement, 0, len(recs))
	for _, r := range recs {
		out = append(out, DecodeBankStatement(r))
	}
	return out
}

func (a *Application) AssetRecords() []AssetRecord {
	recs := a.Documents[CategoryAssetRecord]
	out := make([]AssetRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, DecodeAssetRecord(r))
	}
	return out
}

func (a *Application) TiesRecords() []TiesRecord {
	recs := a.Documents[CategoryTiesRecord]
	out := make([]TiesRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, DecodeTiesRecord(r))
	}
	return out
}

// KnownCategories lists the buckets with a typed variant.
var KnownCategories = []DocumentCategory{
	CategoryPassport,
	CategoryStatusRecord,
	CategoryProgramRecord,
	CategoryBankStatement,
	CategoryAssetRecord,
	CategoryTiesRecord,
}

// OtherCategories returns the populated categories without a typed variant,
// sorted so that exhibit assignment is deterministic.
func (a *Application) OtherCategories() []DocumentCategory {
	known := make(map[DocumentCategory]bool, len(KnownCategories))
	for _, c := range KnownCategories {
		known[c] = true
	}
	var out []DocumentCategory
	for c, recs := range a.Documents {
		if !known[c] && len(recs) > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ApplicantName prefers the questionnaire identity, then the passport.
func (a *Application) ApplicantName() string {
	if n := strings.TrimSpace(a.Applicant.FullName); n != "" {
		return n
	}
	if p, ok := a.Passport(); ok {
		return p.FullName
	}
	return ""
}
