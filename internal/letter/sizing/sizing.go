// Package sizing fits generated sections to word budgets without cutting
// sentences or inflating short content.
package sizing

import (
	"math"
	"strings"

	"petition-workers/internal/models"
)

// Sizing actions.
const (
	ActionOK           = "OK"
	ActionUnderMin     = "OK_UNDER_MIN"
	ActionCompressed   = "COMPRESSED"
	ActionUnfittable   = "UNFITTABLE"
	ActionGlobalBudget = "GLOBAL_BUDGET"
)

type Limits struct {
	Min int `mapstructure:"min" json:"min" yaml:"min" validate:"gte=0"`
	Max int `mapstructure:"max" json:"max" yaml:"max" validate:"gt=0,gtefield=Min"`
}

// DefaultLimits are per-section word limits for a letter that fits on three pages.
var DefaultLimits = map[models.SectionName]Limits{
	models.SectionIntroduction:   {Min: 60, Max: 120},
	models.SectionLegalBasis:     {Min: 60, Max: 130},
	models.SectionEntryStatus:    {Min: 80, Max: 160},
	models.SectionChangeOfIntent: {Min: 80, Max: 180},
	models.SectionPurpose:        {Min: 100, Max: 220},
	models.SectionFinancial:      {Min: 80, Max: 200},
	models.SectionTies:           {Min: 80, Max: 200},
	models.SectionConclusion:     {Min: 40, Max: 100},
}

const DefaultMaxTotalWords = 1100

// DefaultReducible lists the low-evidentiary-risk sections the global budget
// may shorten. Factual and financial sections are never on it.
var DefaultReducible = []models.SectionName{
	models.SectionIntroduction,
	models.SectionLegalBasis,
	models.SectionConclusion,
}

type Result struct {
	Text        string `json:"text"`
	Action      string `json:"action"`
	WordsBefore int    `json:"wordsBefore"`
	WordsAfter  int    `json:"wordsAfter"`
	// OverMax is set when the result still exceeds limits.Max because its
	// first sentence alone does.
	OverMax bool `json:"overMax,omitempty"`
}

// SizeSection fits text into limits.Max. Short text is returned unchanged.
// UNFITTABLE means sentences were dropped and the single sentence kept is
// still over budget; sizing that sentence again reports OK with OverMax set,
// since nothing further can be removed.
func SizeSection(text string, limits Limits) Result {
	words := models.WordCount(text)
	res := Result{Text: text, Action: ActionOK, WordsBefore: words, WordsAfter: words}
	switch {
	case limits.Max > 0 && words > limits.Max:
		compressed, fits := Compress(text, limits.Max)
		res.Text = compressed
		switch {
		case fits:
			res.Action = ActionCompressed
		case compressed == text:
			res.OverMax = true
		default:
			res.Action = ActionUnfittable
			res.OverMax = true
		}
		res.WordsAfter = models.WordCount(res.Text)
	case words < limits.Min:
		res.Action = ActionUnderMin
	}
	return res
}

// Compress keeps whole sentences, paragraph by paragraph, until the next one
// would exceed budget. If even the first sentence is over budget it is
// returned intact and fits is false.
func Compress(text string, budget int) (string, bool) {
	if models.WordCount(text) <= budget {
		return text, true
	}

	var (
		paragraphs []string
		used       int
		first      string
	)
outer:
	for _, p := range models.Paragraphs(text) {
		var kept []string
		for _, s := range Sentences(p) {
			if first == "" {
				first = s
			}
			n := models.WordCount(s)
			if used+n > budget {
				if len(kept) > 0 {
					paragraphs = append(paragraphs, joinSentences(kept))
				}
				break outer
			}
			kept = append(kept, s)
			used += n
		}
		if len(kept) > 0 {
			paragraphs = append(paragraphs, joinSentences(kept))
		}
	}

	if len(paragraphs) == 0 {
		return first, false
	}
	return strings.Join(paragraphs, "\n\n"), true
}

// joinSentences keeps labelled summary lines on their own lines.
func joinSentences(sentences []string) string {
	var b strings.Builder
	for i, s := range sentences {
		if i > 0 {
			prev := sentences[i-1]
			if strings.HasSuffix(prev, ".") || strings.HasSuffix(prev, "!") || strings.HasSuffix(prev, "?") ||
				strings.HasSuffix(prev, ".)") || strings.HasSuffix(prev, ".\"") {
				b.WriteByte(' ')
			} else {
				b.WriteByte('\n')
			}
		}
		b.WriteString(s)
	}
	return b.String()
}

// Engine applies per-section limits and the global word budget.
type Engine struct {
	Limits        map[models.SectionName]Limits
	MaxTotalWords int
	Reducible     []models.SectionName
}

// NewEngine returns an engine with the default limits.
func NewEngine() *Engine {
	return &Engine{Limits: DefaultLimits, MaxTotalWords: DefaultMaxTotalWords, Reducible: DefaultReducible}
}

// SizeAll sizes every populated section and reports what was done.
func (e *Engine) SizeAll(sections models.Sections) (models.Sections, []models.SizingRecord) {
	out := sections.Clone()
	var records []models.SizingRecord
	for _, name := range sections.Populated() {
		limits, ok := e.Limits[name]
		if !ok {
			continue
		}
		res := SizeSection(sections.Get(name), limits)
		out[name] = res.Text
		records = append(records, models.SizingRecord{
			Section:     name,
			Action:      res.Action,
			WordsBefore: res.WordsBefore,
			WordsAfter:  res.WordsAfter,
			OverMax:     res.OverMax,
		})
	}
	return out, records
}

// EnforceGlobalBudget shrinks the reducible sections, each in proportion to
// its share of the words still reducible, until the total fits or nothing
// reducible is left. The overflow is re-measured after every section.
func (e *Engine) EnforceGlobalBudget(sections models.Sections) (models.Sections, []models.SizingRecord) {
	return EnforceGlobalBudget(sections, e.MaxTotalWords, e.Reducible)
}

func EnforceGlobalBudget(sections models.Sections, maxTotal int, reducible []models.SectionName) (models.Sections, []models.SizingRecord) {
	out := sections.Clone()
	overflow := TotalWords(out) - maxTotal
	if maxTotal <= 0 || overflow <= 0 {
		return out, nil
	}

	var candidates []models.SectionName
	for _, name := range reducible {
		if out.Get(name) != "" {
			candidates = append(candidates, name)
		}
	}

	var records []models.SizingRecord
	for i, name := range candidates {
		if overflow <= 0 {
			break
		}
		remaining := 0
		for _, n := range candidates[i:] {
			remaining += models.WordCount(out.Get(n))
		}
		if remaining == 0 {
			break
		}

		text := out.Get(name)
		before := models.WordCount(text)
		cut := int(math.Ceil(float64(overflow) * float64(before) / float64(remaining)))
		compressed, _ := Compress(text, max(before-cut, 0))
		after := models.WordCount(compressed)
		if after >= before {
			continue
		}
		out[name] = compressed
		overflow = TotalWords(out) - maxTotal
		records = append(records, models.SizingRecord{
			Section:     name,
			Action:      ActionGlobalBudget,
			WordsBefore: before,
			WordsAfter:  after,
		})
	}
	return out, records
}

// TotalWords sums the words of all populated sections.
func TotalWords(sections models.Sections) int {
	n := 0
	for _, name := range sections.Populated() {
		n += models.WordCount(sections.Get(name))
	}
	return n
}
