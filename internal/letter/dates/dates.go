// Package dates checks the legal ordering of entry, status expiry, program
// start, and filing dates, and derives the topic suppressions that follow.
package dates

import (
	"fmt"
	"strings"
	"time"

	"petition-workers/internal/models"
)

// Directives and suppressed topics propagated into generation and compliance.
const (
	DirectiveNoProgramDates = "DO NOT MENTION PROGRAM DATES"
	DirectiveNoDates        = "DO NOT MENTION SPECIFIC DATES"

	TopicProgramDates = "program_dates"
	TopicAllDates     = "all_dates"
)

// ExpiryWarningWindow is how close to status expiry a filing draws a warning.
const ExpiryWarningWindow = 30 * 24 * time.Hour

// Input holds raw date strings as extracted. Empty or unparsable values are
// treated as absent.
type Input struct {
	EntryDate        string `json:"entryDate,omitempty"`
	StatusExpiryDate string `json:"statusExpiryDate,omitempty"`
	ProgramStartDate string `json:"programStartDate,omitempty"`
	FilingDate       string `json:"filingDate,omitempty"`
}

// Findings is the outcome of Validate.
type Findings struct {
	Errors             []string `json:"errors"`
	Warnings           []string `json:"warnings"`
	Directives         []string `json:"directives,omitempty"`
	SuppressedTopics   []string `json:"suppressedTopics,omitempty"`
	DateConflicts      []string `json:"dateConflicts,omitempty"`
	ProgramDateTokens  []string `json:"programDateTokens,omitempty"`
	ProgramDatesUnsafe bool     `json:"programDatesUnsafe"`
	AnyDatesUnsafe     bool     `json:"anyDatesUnsafe"`
}

// Suppresses reports whether the topic is suppressed.
func (f Findings) Suppresses(topic string) bool {
	for _, t := range f.SuppressedTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// FromApplication collects the date inputs from the authoritative records.
func FromApplication(app *models.Application) Input {
	in := Input{FilingDate: app.Metadata.FilingDate}
	if st, ok := app.CurrentStatus(); ok {
		in.EntryDate = st.EntryDate
		in.StatusExpiryDate = st.AdmitUntilDate
	}
	if prog, ok := app.CurrentProgram(); ok {
		in.ProgramStartDate = prog.StartDate
	}
	return in
}

// Validate evaluates every rule independently. now is used when the filing
// date is absent.
func Validate(in Input, now time.Time) Findings {
	f := Findings{Errors: []string{}, Warnings: []string{}}

	entry, hasEntry := Parse(in.EntryDate)
	expiry, hasExpiry := Parse(in.StatusExpiryDate)
	start, hasStart := Parse(in.ProgramStartDate)
	filing, hasFiling := Parse(in.FilingDate)
	if !hasFiling {
		filing = truncateDay(now)
	}

	if hasEntry && hasExpiry && !entry.Before(expiry) {
		f.Errors = append(f.Errors, "invalid dates: entry not before expiry")
		f.DateConflicts = append(f.DateConflicts, conflict("entry", entry, "status expiry", expiry))
	}

	if hasExpiry {
		switch {
		case filing.After(expiry):
			f.Errors = append(f.Errors, "cannot file after expiry")
			f.DateConflicts = append(f.DateConflicts, conflict("filing", filing, "status expiry", expiry))
		case expiry.Sub(filing) <= ExpiryWarningWindow:
			f.Warnings = append(f.Warnings, fmt.Sprintf(
				"filing date %s is within 30 days of status expiry %s", Format(filing), Format(expiry)))
		}
	}

	if hasStart && start.Before(filing) {
		f.Warnings = append(f.Warnings, fmt.Sprintf(
			"program start date %s is before the filing date %s; the program may have already started", Format(start), Format(filing)))
	}

	if hasStart && hasEntry && start.Before(entry) {
		f.Warnings = append(f.Warnings, fmt.Sprintf(
			"program start date %s is before the entry date %s", Format(start), Format(entry)))
		f.DateConflicts = append(f.DateConflicts, conflict("program start", start, "entry", entry))
		f.ProgramDatesUnsafe = true
		f.Directives = append(f.Directives, DirectiveNoProgramDates)
		f.SuppressedTopics = append(f.SuppressedTopics, TopicProgramDates)
	}

	if len(f.Errors) > 0 {
		f.AnyDatesUnsafe = true
		f.Directives = append(f.Directives, DirectiveNoDates)
		f.SuppressedTopics = append(f.SuppressedTopics, TopicAllDates)
	}

	if hasStart {
		f.ProgramDateTokens = Tokens(in.ProgramStartDate, start)
	}
	return f
}

func conflict(a string, at time.Time, b string, bt time.Time) string {
	return fmt.Sprintf("%s %s vs %s %s", a, Format(at), b, Format(bt))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Format renders a date the way the report does.
func Format(t time.Time) string { return t.Format("2006-01-02") }

var layouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"02Jan2006",
	time.RFC3339,
}

// Parse accepts the common layouts found in status and program records.
// Placeholders such as "D/S" (duration of status) are not dates.
func Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

// Tokens returns the textual renderings of a date that would reveal it in
// prose: the raw value plus the usual written forms.
func Tokens(raw string, t time.Time) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			return
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	add(raw)
	add(t.Format("2006-01-02"))
	add(t.Format("01/02/2006"))
	add(t.Format("1/2/2006"))
	add(t.Format("January 2, 2006"))
	add(t.Format("Jan 2, 2006"))
	add(t.Format("2 January 2006"))
	add(t.Format("January 2006"))
	return out
}
