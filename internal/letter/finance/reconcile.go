// Package finance reconciles money amounts scattered across bank statements,
// sponsor records, and program cost figures into one sufficiency decision.
package finance

import (
	"strings"

	"petition-workers/internal/letter/currency"
	"petition-workers/internal/models"
)

// Calculation is derived, never stored.
// TotalAvailable == PersonalFunds + SponsorAmount always holds.
type Calculation struct {
	PersonalFunds      float64  `json:"personalFunds"`
	SponsorAmount      float64  `json:"sponsorAmount"`
	TotalAvailable     float64  `json:"totalAvailable"`
	BankStatementTotal *float64 `json:"bankStatementTotal,omitempty"`
	SponsorName        string   `json:"sponsorName,omitempty"`
}

// minNameToken is the shortest sponsor-name token used for fuzzy matching.
const minNameToken = 3

// CalculateAvailableFunds aggregates declared savings and statement balances.
//
// Applicant statements are summed. Sponsor statements are not: several
// statements for one sponsor are taken as snapshots of the same account, so
// the largest single balance is used.
func CalculateAvailableFunds(app *models.Application) Calculation {
	declared := currency.ParseAmount(app.Questionnaire.Answer(models.AnswerPersonalSavings, "savings", "personalFunds"))
	sponsorName := app.Questionnaire.Answer(models.AnswerSponsorName)

	var (
		applicantTotal float64
		applicantSeen  bool
		sponsorMax     float64
	)
	for _, st := range app.BankStatements() {
		balance := StatementBalance(st)
		if balance <= 0 {
			continue
		}
		if IsSponsorStatement(st, sponsorName) {
			sponsorMax = max(sponsorMax, balance)
			continue
		}
		applicantTotal += balance
		applicantSeen = true
	}

	calc := Calculation{
		PersonalFunds: declared,
		SponsorAmount: sponsorMax,
		SponsorName:   sponsorName,
	}
	if applicantSeen {
		total := applicantTotal
		calc.BankStatementTotal = &total
		calc.PersonalFunds = max(declared, applicantTotal)
	}
	calc.TotalAvailable = calc.PersonalFunds + calc.SponsorAmount
	return calc
}

// StatementBalance parses the closing balance and the alternate total
// balance independently and keeps the larger one.
func StatementBalance(st models.BankStatement) float64 {
	return max(currency.ParseAmount(st.ClosingBalance), currency.ParseAmount(st.TotalBalance))
}

// IsSponsorStatement attributes a statement to the sponsor. The explicit role
// tag wins; otherwise any sponsor-name token of three or more characters found
// (case-insensitively) in the account holder marks it as the sponsor's.
func IsSponsorStatement(st models.BankStatement, sponsorName string) bool {
	switch st.Role {
	case models.RoleSponsor:
		return true
	case models.RoleApplicant:
		return false
	}
	holder := strings.ToLower(st.AccountHolder)
	if holder == "" {
		return false
	}
	for _, tok := range strings.Fields(strings.ToLower(sponsorName)) {
		tok = strings.Trim(tok, ".,;:'\"()")
		if len(tok) >= minNameToken && strings.Contains(holder, tok) {
			return true
		}
	}
	return false
}
