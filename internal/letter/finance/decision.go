package finance

import (
	"fmt"
	"strings"

	"petition-workers/internal/letter/currency"
)

type Status string

const (
	StatusSufficient    Status = "sufficient"
	StatusInsufficient  Status = "insufficient"
	StatusIndeterminate Status = "indeterminate"
)

// Decision is the single funding verdict for an application.
type Decision struct {
	Status   Status  `json:"status"`
	Buffer   float64 `json:"buffer"`
	Deficit  float64 `json:"deficit"`
	Required float64 `json:"required"`
	Reason   string  `json:"reason,omitempty"`
}

// Decide compares available funds to the required total. Nothing available
// is always insufficient; an unknown requirement is indeterminate otherwise.
func Decide(calc Calculation, req RequiredFunds) Decision {
	if calc.TotalAvailable <= 0 {
		d := Decision{Status: StatusInsufficient, Reason: "no financial resources documented"}
		if req.Known() {
			d.Required = *req.TotalRequired
			d.Deficit = *req.TotalRequired
		}
		return d
	}
	if !req.Known() {
		return Decision{Status: StatusIndeterminate, Reason: "required funds could not be determined from the program record"}
	}

	required := *req.TotalRequired
	if calc.TotalAvailable >= required {
		return Decision{Status: StatusSufficient, Buffer: calc.TotalAvailable - required, Required: required}
	}
	return Decision{
		Status:   StatusInsufficient,
		Deficit:  required - calc.TotalAvailable,
		Required: required,
		Reason: fmt.Sprintf("documented funds (%s) are below the required amount (%s)",
			currency.FormatUSD(calc.TotalAvailable), currency.FormatUSD(required)),
	}
}

// Summary labels. The compliance checker keys off these literals.
const (
	LabelTuition         = "Tuition:"
	LabelLiving          = "Living Expenses:"
	LabelTotalRequired   = "Total Required:"
	LabelAvailableHeader = "Available Financial Resources:"
	LabelPersonalFunds   = "Personal funds:"
	LabelSponsorFmt      = "Financial sponsorship by %s:"
	LabelTotalAvailable  = "Total Available:"
)

// Summary renders the financial summary literal, one labelled line per field,
// each followed by "USD $<amount>" and nothing else.
func Summary(calc Calculation, req RequiredFunds) string {
	var lines []string
	if req.Tuition != nil {
		lines = append(lines, LabelTuition+" "+currency.FormatUSD(*req.Tuition))
	}
	if req.Living != nil {
		lines = append(lines, LabelLiving+" "+currency.FormatUSD(*req.Living))
	}
	if req.TotalRequired != nil {
		lines = append(lines, LabelTotalRequired+" "+currency.FormatUSD(*req.TotalRequired))
	}
	lines = append(lines,
		LabelAvailableHeader,
		LabelPersonalFunds+" "+currency.FormatUSD(calc.PersonalFunds),
	)
	if calc.SponsorAmount > 0 {
		name := strings.TrimSpace(calc.SponsorName)
		if name == "" {
			name = "Sponsor"
		}
		lines = append(lines, fmt.Sprintf(LabelSponsorFmt, name)+" "+currency.FormatUSD(calc.SponsorAmount))
	}
	lines = append(lines, LabelTotalAvailable+" "+currency.FormatUSD(calc.TotalAvailable))
	return strings.Join(lines, "\n")
}
