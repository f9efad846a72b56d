package finance

import (
	"regexp"

	"petition-workers/internal/letter/currency"
	"petition-workers/internal/models"
)

// RequiredFunds is derived from the program record. A nil field means the
// figure could not be determined, which is not the same as zero.
type RequiredFunds struct {
	Tuition       *float64 `json:"tuition,omitempty"`
	Living        *float64 `json:"living,omitempty"`
	TotalRequired *float64 `json:"totalRequired,omitempty"`
}

// Known reports whether a required total is available.
func (r RequiredFunds) Known() bool { return r.TotalRequired != nil }

var (
	tuitionLabel = regexp.MustCompile(`(?i)tuition(?:\s+and\s+fees)?[^0-9$\n]{0,40}\$?\s*([0-9](?:[0-9.,]*[0-9])?)`)
	livingLabel  = regexp.MustCompile(`(?i)(?:living(?:\s+expenses)?|room\s+and\s+board|housing)[^0-9$\n]{0,40}\$?\s*([0-9](?:[0-9.,]*[0-9])?)`)
	totalLabel   = regexp.MustCompile(`(?i)total(?:\s+required|\s+cost)?[^0-9$\n]{0,40}\$?\s*([0-9](?:[0-9.,]*[0-9])?)`)
)

// EstimateRequiredFunds derives the program's minimum cost.
//
// Structured fields win over free text, field by field. When tuition and
// living expenses are both known their sum is the required total, even if a
// separate aggregate was reported (those usually add fees, books, insurance).
func EstimateRequiredFunds(programText string, structured *models.ProgramRecord) RequiredFunds {
	var tuition, living, total *float64
	if structured != nil {
		tuition = positive(structured.Tuition)
		living = positive(structured.LivingExpenses)
		total = positive(structured.TotalCost)
	}

	if tuition == nil {
		tuition = labeled(tuitionLabel, programText)
	}
	if living == nil {
		living = labeled(livingLabel, programText)
	}
	if total == nil {
		total = labeled(totalLabel, programText)
	}

	out := RequiredFunds{Tuition: tuition, Living: living}
	switch {
	case tuition != nil && living != nil:
		sum := *tuition + *living
		out.TotalRequired = &sum
	case total != nil:
		out.TotalRequired = total
	}
	return out
}

// EstimateFromApplication reads the current program record.
func EstimateFromApplication(app *models.Application) RequiredFunds {
	prog, ok := app.CurrentProgram()
	if !ok {
		return RequiredFunds{}
	}
	return EstimateRequiredFunds(prog.FinancialText, &prog)
}

func positive(raw string) *float64 {
	if v := currency.ParseAmount(raw); v > 0 {
		return &v
	}
	return nil
}

func labeled(re *regexp.Regexp, text string) *float64 {
	if text == "" {
		return nil
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return positive(m[1])
}
