// Package exhibits assigns exhibit letters to the evidence present in an
// application and scans prose for the exhibits it cites.
package exhibits

import (
	"regexp"
	"sort"
	"strings"

	"petition-workers/internal/models"
)

// Canonical slot descriptions.
const (
	DescIdentity  = "Identification and immigration status documents"
	DescProgram   = "Program and school records"
	DescTies      = "Purpose of study and ties to home country"
	DescFinancial = "Proof of financial ability"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type slot struct {
	letter      string
	description string
	category    models.DocumentCategory
	present     func(*models.Application) bool
}

var fixedSlots = []slot{
	{"A", DescIdentity, models.CategoryStatusRecord, func(a *models.Application) bool {
		return a.Has(models.CategoryPassport) || a.Has(models.CategoryStatusRecord)
	}},
	{"B", DescProgram, models.CategoryProgramRecord, func(a *models.Application) bool {
		return a.Has(models.CategoryProgramRecord)
	}},
	{"C", DescTies, models.CategoryTiesRecord, func(a *models.Application) bool {
		return a.Has(models.CategoryTiesRecord)
	}},
	{"D", DescFinancial, models.CategoryBankStatement, func(a *models.Application) bool {
		return a.Has(models.CategoryBankStatement) || a.Has(models.CategoryAssetRecord)
	}},
}

// Available returns the exhibits backed by documents in the application.
// Fixed slots keep their letters even when an earlier slot is empty; extra
// categories are lettered from E onward in sorted category order.
func Available(app *models.Application) []models.Exhibit {
	var out []models.Exhibit
	for _, s := range fixedSlots {
		if s.present(app) {
			out = append(out, models.Exhibit{Letter: s.letter, Description: s.description, Category: s.category})
		}
	}
	next := len(fixedSlots)
	for _, c := range app.OtherCategories() {
		if next >= len(alphabet) {
			break
		}
		out = append(out, models.Exhibit{
			Letter:      string(alphabet[next]),
			Description: describe(c),
			Category:    c,
		})
		next++
	}
	return out
}

func describe(c models.DocumentCategory) string {
	words := strings.FieldsFunc(string(c), func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Letters returns the set of letters in exhibits.
func Letters(exhibits []models.Exhibit) map[string]bool {
	out := make(map[string]bool, len(exhibits))
	for _, e := range exhibits {
		out[e.Letter] = true
	}
	return out
}

var (
	citationHead = regexp.MustCompile(`(?i)\bexhibits?\s+([a-z])\b`)
	listItem     = regexp.MustCompile(`(?i)^\s*(?:,|and\b|&)\s*([a-z])\b`)
	itemEnd      = regexp.MustCompile(`(?i)^(?:\s*[,.;:!?)\]&]|\s+and\b|\s*$)`)
)

type citation struct {
	start, end int
	letters    []string
}

// listed reports whether a list item reads as an exhibit letter rather than
// a word: it must close the list or be a capital that is not also a word.
func listed(letter, rest string) bool {
	if itemEnd.MatchString(rest) {
		return true
	}
	return letter != "I" && letter != "A" && letter == strings.ToUpper(letter)
}

func citations(text string) []citation {
	var out []citation
	for _, head := range citationHead.FindAllStringSubmatchIndex(text, -1) {
		c := citation{start: head[0], end: head[1], letters: []string{strings.ToUpper(text[head[2]:head[3]])}}
		for {
			m := listItem.FindStringSubmatchIndex(text[c.end:])
			if m == nil {
				break
			}
			letter := text[c.end+m[2] : c.end+m[3]]
			if !listed(letter, text[c.end+m[1]:]) {
				break
			}
			c.letters = append(c.letters, strings.ToUpper(letter))
			c.end += m[1]
		}
		out = append(out, c)
	}
	return out
}

// ReferencedIn returns every exhibit letter cited in text, upper-cased.
// "Exhibit A", "(Exhibit B)", "exhibits C and D" and "Exhibit E, F & G" all count.
func ReferencedIn(text string) map[string]bool {
	out := map[string]bool{}
	for _, c := range citations(text) {
		for _, l := range c.letters {
			out[l] = true
		}
	}
	return out
}

// CitationCount counts citation occurrences, each list item counting once.
func CitationCount(text string) int {
	n := 0
	for _, c := range citations(text) {
		n += len(c.letters)
	}
	return n
}

// StripCitations blanks out citations so their letters are not read as words.
func StripCitations(text string) string {
	var b strings.Builder
	last := 0
	for _, c := range citations(text) {
		b.WriteString(text[last:c.start])
		b.WriteByte(' ')
		last = c.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// Sorted returns the letters of a set in alphabetical order.
func Sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
