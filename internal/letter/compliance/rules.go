package compliance

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"petition-workers/internal/letter/currency"
	"petition-workers/internal/letter/dates"
	"petition-workers/internal/letter/exhibits"
	"petition-workers/internal/letter/finance"
	"petition-workers/internal/models"
)

// Rule ids of the checks that need application context.
const (
	RuleDateSuppression        = "DATE_SUPPRESSION"
	RuleFinancialCompleteness  = "FINANCIAL_COMPLETENESS"
	RuleFinancialContradiction = "FINANCIAL_CONTRADICTION"
	RuleFinancialMismatch      = "FINANCIAL_MISMATCH"
	RuleStatedTotalMismatch    = "STATED_TOTAL_MISMATCH"
	RuleAdequacyClaim          = "ADEQUACY_CLAIM"
	RuleVoiceForbidden         = "VOICE_FORBIDDEN"
	RuleVoiceMissing           = "VOICE_MISSING"
	RuleCitationMissing        = "CITATION_MISSING"
	RuleCitationDensity        = "CITATION_DENSITY"
	RuleUnavailableExhibit     = "UNAVAILABLE_EXHIBIT"
)

const (
	months     = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`
	fullMonths = `(?:january|february|march|april|may|june|july|august|september|october|november|december)`
	amount     = `\$?\s*([0-9](?:[0-9.,]*[0-9])?)`
)

var (
	datePattern = regexp.MustCompile(`(?i)\b\d{4}-\d{1,2}-\d{1,2}\b` +
		`|\b\d{1,2}/\d{1,2}/\d{2,4}\b` +
		`|\b` + months + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b` +
		`|\b\d{1,2}\s+` + months + `,?\s+\d{4}\b` +
		`|\b` + fullMonths + `\s+\d{4}\b`)

	tuitionMention = regexp.MustCompile(`(?i)\btuition\b`)
	livingMention  = regexp.MustCompile(`(?i)\bliving\s+(?:expenses?|costs?)\b`)

	availableAmount = regexp.MustCompile(`(?i)\bavailable\b([^$0-9\n]{0,40})` + amount)
	requiredAmount  = regexp.MustCompile(`(?i)\b(?:required|needed|total\s+cost)\b([^$0-9\n]{0,40})` + amount)
	totalAvailable  = regexp.MustCompile(`(?i)\btotal\s+available\b[^$0-9\n]{0,40}` + amount)
	adequacyClaim   = regexp.MustCompile(`(?i)\b(?:sufficient|adequate)\b`)

	requiredLabel  = regexp.MustCompile(`(?i)\b(?:required|needed|cost)\b`)
	availableLabel = regexp.MustCompile(`(?i)\bavailable\b`)

	formName = regexp.MustCompile(`\b[A-Z]{1,2}-\d+[A-Z]?\b`)
)

func finding(id, category string, sev models.Severity, section models.SectionName, match, msg string) models.Finding {
	return models.Finding{RuleID: id, Category: category, Severity: sev, Section: section, Match: match, Message: msg}
}

func checkDates(sections models.Sections, df dates.Findings) []models.Finding {
	var out []models.Finding
	if df.Suppresses(dates.TopicProgramDates) {
		purpose := sections.Get(models.SectionPurpose)
		lower := strings.ToLower(purpose)
		hit := ""
		for _, tok := range df.ProgramDateTokens {
			if strings.Contains(lower, strings.ToLower(tok)) {
				hit = tok
				break
			}
		}
		if hit == "" {
			hit = datePattern.FindString(purpose)
		}
		if hit != "" {
			out = append(out, finding(RuleDateSuppression, "dates", models.SeverityError, models.SectionPurpose, hit,
				"program dates must not be mentioned"))
		}
	}
	if df.Suppresses(dates.TopicAllDates) {
		for _, name := range sections.Populated() {
			if m := datePattern.FindString(sections.Get(name)); m != "" {
				out = append(out, finding(RuleDateSuppression, "dates", models.SeverityError, name, m,
					"specific dates must not be mentioned"))
			}
		}
	}
	return out
}

func checkFinancialCompleteness(sections models.Sections) []models.Finding {
	text := sections.Get(models.SectionFinancial)
	tuition := tuitionMention.MatchString(text)
	living := livingMention.MatchString(text)
	switch {
	case tuition && !living:
		return []models.Finding{finding(RuleFinancialCompleteness, "financial", models.SeverityError, models.SectionFinancial, "tuition",
			"mentions tuition without living expenses")}
	case living && !tuition:
		return []models.Finding{finding(RuleFinancialCompleteness, "financial", models.SeverityError, models.SectionFinancial, "living expenses",
			"mentions living expenses without tuition")}
	}
	return nil
}

type statedAmount struct {
	section models.SectionName
	pos     int
	value   float64
	raw     string
}

func labelledAmounts(sections models.Sections, re, opposite *regexp.Regexp) []statedAmount {
	var out []statedAmount
	for _, name := range sections.Populated() {
		text := sections.Get(name)
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			gap := text[idx[2]:idx[3]]
			if opposite.MatchString(gap) {
				continue
			}
			v, ok := currency.Parse(text[idx[4]:idx[5]])
			if !ok || v <= 0 {
				continue
			}
			out = append(out, statedAmount{section: name, pos: idx[0], value: v, raw: text[idx[0]:idx[1]]})
		}
	}
	return out
}

func checkContradictions(sections models.Sections, ctx Context, window int) []models.Finding {
	var out []models.Finding

	avail := labelledAmounts(sections, availableAmount, requiredLabel)
	req := labelledAmounts(sections, requiredAmount, availableLabel)
	sponsor := ctx.Calculation.SponsorAmount
	seen := map[string]bool{}
	for _, a := range avail {
		for _, r := range req {
			if a.value >= r.value {
				continue
			}
			key := fmt.Sprintf("%s|%v|%v", a.section, a.value, r.value)
			if seen[key] {
				continue
			}
			seen[key] = true

			near := a.section == r.section && abs(a.pos-r.pos) <= window
			absorbed := sponsor > 0 && a.value+sponsor >= r.value
			msg := fmt.Sprintf("stated available %s is less than stated required %s",
				currency.FormatUSD(a.value), currency.FormatUSD(r.value))
			switch {
			case near && !absorbed:
				out = append(out, finding(RuleFinancialContradiction, "financial", models.SeverityError, a.section, a.raw, msg))
			default:
				out = append(out, finding(RuleFinancialMismatch, "financial", models.SeverityWarning, a.section, a.raw, msg))
			}
		}
	}

	if reconciled := ctx.Calculation.TotalAvailable; reconciled > 0 {
		for _, name := range sections.Populated() {
			for _, m := range totalAvailable.FindAllStringSubmatch(sections.Get(name), -1) {
				v, ok := currency.Parse(m[1])
				if ok && math.Abs(v-reconciled) > 0.5 {
					out = append(out, finding(RuleStatedTotalMismatch, "financial", models.SeverityWarning, name, m[0],
						fmt.Sprintf("stated total available does not match the documented %s", currency.FormatUSD(reconciled))))
				}
			}
		}
	}

	if ctx.Decision.Status == finance.StatusInsufficient {
		for _, name := range sections.Populated() {
			if m := adequacyClaim.FindString(sections.Get(name)); m != "" {
				out = append(out, finding(RuleAdequacyClaim, "financial", models.SeverityError, name, m,
					"claims adequate funds although documented funds are insufficient"))
			}
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var (
	firstPersonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bI\b`),
		regexp.MustCompile(`(?i)\b(?:me|my|mine|myself)\b`),
		regexp.MustCompile(`\bI\s+(?i:am|was|have|had|will|would|intend|plan|decided|entered|seek|request|hold|own)\b`),
	}
	// Third-person references to the applicant. Sponsors and family members
	// are legitimately "he" or "she" in a first-person letter, so only
	// applicant-specific verbs count.
	thirdPersonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bthe\s+(?:applicant|beneficiary)(?:'s)?\b`),
		regexp.MustCompile(`(?i)\b(?:he|she)\s+(?:intends|plans|decided|entered|seeks|requests|enrolled|was\s+admitted|wishes)\b`),
	}
	thirdPersonPresent = append(append([]*regexp.Regexp{}, thirdPersonPatterns...),
		regexp.MustCompile(`\b(?:Mr|Ms|Mrs|Miss)\.?\s+[A-Z][a-z]+`),
		regexp.MustCompile(`(?i)\b(?:he|she|his|her|him|himself|herself)\b`))
)

func voiceText(text string) string {
	return formName.ReplaceAllString(exhibits.StripCitations(text), " ")
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func checkVoice(sections models.Sections, required string) []models.Finding {
	forbidden, present := thirdPersonPatterns, firstPersonPatterns
	forbiddenName := VoiceThird
	if required == VoiceThird {
		forbidden, present = firstPersonPatterns, thirdPersonPresent
		forbiddenName = VoiceFirst
	}

	var out []models.Finding
	found := false
	for _, name := range sections.Populated() {
		text := voiceText(sections.Get(name))
		if m := firstMatch(forbidden, text); m != "" {
			out = append(out, finding(RuleVoiceForbidden, "voice", models.SeverityError, name, m,
				fmt.Sprintf("uses %s-person voice; the letter must be written in the %s person", forbiddenName, required)))
		}
		if firstMatch(present, text) != "" {
			found = true
		}
	}
	if !found && len(sections.Populated()) > 0 {
		out = append(out, finding(RuleVoiceMissing, "voice", models.SeverityWarning, "", "",
			fmt.Sprintf("no %s-person voice detected", required)))
	}
	return out
}

func checkCitations(sections models.Sections, available []models.Exhibit) []models.Finding {
	var out []models.Finding
	populated, total := 0, 0
	for _, name := range CiteableSections {
		text := sections.Get(name)
		if text == "" {
			continue
		}
		populated++
		n := exhibits.CitationCount(text)
		total += n
		if n == 0 {
			out = append(out, finding(RuleCitationMissing, "citations", models.SeverityWarning, name, "",
				"section cites no exhibit"))
		}
	}
	if total < populated {
		out = append(out, finding(RuleCitationDensity, "citations", models.SeverityWarning, "", "",
			fmt.Sprintf("%d exhibit citations for %d evidentiary sections", total, populated)))
	}

	have := exhibits.Letters(available)
	for _, name := range sections.Populated() {
		for _, l := range exhibits.Sorted(exhibits.ReferencedIn(sections.Get(name))) {
			if !have[l] {
				out = append(out, finding(RuleUnavailableExhibit, "citations", models.SeverityWarning, name, "Exhibit "+l,
					"cites an exhibit with no supporting document"))
			}
		}
	}
	return out
}
