// Package layout estimates how a letter will sit on the page and applies a
// single bounded corrective pass when it does not fit.
package layout

import (
	"math"
	"strings"

	"petition-workers/internal/letter/sizing"
	"petition-workers/internal/models"
)

// Issue types.
const (
	IssueParagraphTooShort = "PARAGRAPH_TOO_SHORT"
	IssueParagraphTooLong  = "PARAGRAPH_TOO_LONG"
	IssueParagraphTooDense = "PARAGRAPH_TOO_DENSE"
	IssueTooManyPages      = "TOO_MANY_PAGES"
	IssueTooFewParagraphs  = "TOO_FEW_PARAGRAPHS"
	IssueTooManyParagraphs = "TOO_MANY_PARAGRAPHS"
)

// Config holds the calibration constants.
type Config struct {
	AvgWordsPerLine      float64 `mapstructure:"avg_words_per_line" validate:"gt=0"`
	MaxWordsPerPage      int     `mapstructure:"max_words_per_page" validate:"gt=0"`
	MaxPages             float64 `mapstructure:"max_pages" validate:"gt=0"`
	MinLinesPerParagraph float64 `mapstructure:"min_lines_per_paragraph" validate:"gte=0"`
	MaxLinesPerParagraph float64 `mapstructure:"max_lines_per_paragraph" validate:"gtfield=MinLinesPerParagraph"`
	MaxWordsPerParagraph int     `mapstructure:"max_words_per_paragraph" validate:"gt=0"`
	MinParagraphs        int     `mapstructure:"min_paragraphs" validate:"gte=0"`
	MaxParagraphs        int     `mapstructure:"max_paragraphs" validate:"gtefield=MinParagraphs"`
}

func DefaultConfig() Config {
	return Config{
		AvgWordsPerLine:      12,
		MaxWordsPerPage:      500,
		MaxPages:             3,
		MinLinesPerParagraph: 2,
		MaxLinesPerParagraph: 18,
		MaxWordsPerParagraph: 180,
		MinParagraphs:        6,
		MaxParagraphs:        14,
	}
}

type Validator struct {
	cfg       Config
	reducible []models.SectionName
}

// NewValidator builds a validator. reducible lists the sections the page
// budget fix may shorten.
func NewValidator(cfg Config, reducible []models.SectionName) *Validator {
	return &Validator{cfg: cfg, reducible: reducible}
}

type paragraph struct {
	section models.SectionName
	index   int
	text    string
	words   int
}

func paragraphsOf(sections models.Sections) []paragraph {
	var out []paragraph
	for _, name := range sections.Populated() {
		for i, p := range models.Paragraphs(sections.Get(name)) {
			out = append(out, paragraph{section: name, index: i + 1, text: p, words: models.WordCount(p)})
		}
	}
	return out
}

// Lines estimates printed lines for a word count.
func (v *Validator) Lines(words int) float64 {
	return float64(words) / v.cfg.AvgWordsPerLine
}

// Validate measures the letter. IsValid is true iff no issue was found.
func (v *Validator) Validate(sections models.Sections) models.LayoutValidationResult {
	paras := paragraphsOf(sections)
	res := models.LayoutValidationResult{ParagraphCount: len(paras), Issues: []models.LayoutIssue{}}

	for _, p := range paras {
		res.TotalWords += p.words
		lines := v.Lines(p.words)
		if lines < v.cfg.MinLinesPerParagraph {
			res.Issues = append(res.Issues, models.LayoutIssue{
				Type: IssueParagraphTooShort, Section: p.section, Paragraph: p.index,
				Value: round(lines), Limit: v.cfg.MinLinesPerParagraph,
			})
		}
		if lines > v.cfg.MaxLinesPerParagraph {
			res.Issues = append(res.Issues, models.LayoutIssue{
				Type: IssueParagraphTooLong, Section: p.section, Paragraph: p.index,
				Value: round(lines), Limit: v.cfg.MaxLinesPerParagraph,
			})
		}
		if p.words > v.cfg.MaxWordsPerParagraph {
			res.Issues = append(res.Issues, models.LayoutIssue{
				Type: IssueParagraphTooDense, Section: p.section, Paragraph: p.index,
				Value: float64(p.words), Limit: float64(v.cfg.MaxWordsPerParagraph),
			})
		}
	}

	res.EstimatedPages = round(float64(res.TotalWords) / float64(v.cfg.MaxWordsPerPage))
	if res.EstimatedPages > v.cfg.MaxPages {
		res.Issues = append(res.Issues, models.LayoutIssue{
			Type: IssueTooManyPages, Value: res.EstimatedPages, Limit: v.cfg.MaxPages,
		})
	}
	if res.ParagraphCount < v.cfg.MinParagraphs {
		res.Issues = append(res.Issues, models.LayoutIssue{
			Type: IssueTooFewParagraphs, Value: float64(res.ParagraphCount), Limit: float64(v.cfg.MinParagraphs),
		})
	}
	if res.ParagraphCount > v.cfg.MaxParagraphs {
		res.Issues = append(res.Issues, models.LayoutIssue{
			Type: IssueTooManyParagraphs, Value: float64(res.ParagraphCount), Limit: float64(v.cfg.MaxParagraphs),
		})
	}

	res.IsValid = len(res.Issues) == 0
	return res
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

// Fix is the outcome of AutoFix.
type Fix struct {
	Sections models.Sections
	Result   models.LayoutValidationResult
	Accepted bool
}

// AutoFix applies one targeted corrective pass for the reported issues and
// re-validates once. The fix is kept only if it strictly reduces the number
// of issues; otherwise the original sections and result are returned.
// Short content is never padded.
func (v *Validator) AutoFix(sections models.Sections, before models.LayoutValidationResult) Fix {
	keep := Fix{Sections: sections, Result: before}
	if before.IsValid || len(before.Issues) == 0 {
		return keep
	}

	fixed := sections.Clone()
	has := map[string]bool{}
	for _, is := range before.Issues {
		has[is.Type] = true
		if is.Type == IssueParagraphTooLong || is.Type == IssueParagraphTooDense {
			v.compressParagraph(fixed, is.Section, is.Paragraph)
		}
	}
	if has[IssueTooManyPages] {
		fixed, _ = sizing.EnforceGlobalBudget(fixed, int(v.cfg.MaxPages*float64(v.cfg.MaxWordsPerPage)), v.reducible)
	}
	if has[IssueParagraphTooShort] {
		v.mergeShortParagraphs(fixed)
	}
	if has[IssueTooManyParagraphs] {
		v.mergeUntilWithinCount(fixed)
	}

	after := v.Validate(fixed)
	if len(after.Issues) >= len(before.Issues) {
		return keep
	}
	return Fix{Sections: fixed, Result: after, Accepted: true}
}

func (v *Validator) paragraphBudget() int {
	return min(v.cfg.MaxWordsPerParagraph, int(v.cfg.MaxLinesPerParagraph*v.cfg.AvgWordsPerLine))
}

func (v *Validator) compressParagraph(sections models.Sections, name models.SectionName, index int) {
	paras := models.Paragraphs(sections.Get(name))
	if index < 1 || index > len(paras) {
		return
	}
	compressed, fits := sizing.Compress(paras[index-1], v.paragraphBudget())
	if !fits {
		return
	}
	paras[index-1] = compressed
	sections[name] = strings.Join(paras, "\n\n")
}

// mergeShortParagraphs joins each under-length paragraph with its smaller
// neighbour in the same section when the result stays within budget.
func (v *Validator) mergeShortParagraphs(sections models.Sections) {
	minWords := int(math.Ceil(v.cfg.MinLinesPerParagraph * v.cfg.AvgWordsPerLine))
	for _, name := range sections.Populated() {
		paras := models.Paragraphs(sections.Get(name))
		for i := 0; i < len(paras) && len(paras) > 1; {
			if models.WordCount(paras[i]) >= minWords {
				i++
				continue
			}
			j := v.mergePartner(paras, i)
			if j < 0 {
				i++
				continue
			}
			paras = merge(paras, min(i, j))
			i = min(i, j)
		}
		sections[name] = strings.Join(paras, "\n\n")
	}
}

func (v *Validator) mergePartner(paras []string, i int) int {
	best, bestWords := -1, 0
	for _, j := range []int{i - 1, i + 1} {
		if j < 0 || j >= len(paras) {
			continue
		}
		combined := models.WordCount(paras[i]) + models.WordCount(paras[j])
		if combined > v.cfg.MaxWordsPerParagraph {
			continue
		}
		if best < 0 || combined < bestWords {
			best, bestWords = j, combined
		}
	}
	return best
}

// mergeUntilWithinCount repeatedly merges the smallest adjacent pair of
// paragraphs within one section until the paragraph count fits.
func (v *Validator) mergeUntilWithinCount(sections models.Sections) {
	for len(paragraphsOf(sections)) > v.cfg.MaxParagraphs {
		var (
			bestSection models.SectionName
			bestIndex   = -1
			bestWords   int
		)
		for _, name := range sections.Populated() {
			paras := models.Paragraphs(sections.Get(name))
			for i := 0; i+1 < len(paras); i++ {
				combined := models.WordCount(paras[i]) + models.WordCount(paras[i+1])
				if combined > v.cfg.MaxWordsPerParagraph {
					continue
				}
				if bestIndex < 0 || combined < bestWords {
					bestSection, bestIndex, bestWords = name, i, combined
				}
			}
		}
		if bestIndex < 0 {
			return
		}
		paras := merge(models.Paragraphs(sections.Get(bestSection)), bestIndex)
		sections[bestSection] = strings.Join(paras, "\n\n")
	}
}

// merge joins paras[i] and paras[i+1]. A paragraph ending in a labelled line
// rather than a sentence keeps the next one on its own line.
func merge(paras []string, i int) []string {
	sep := " "
	if !strings.ContainsAny(paras[i][len(paras[i])-1:], ".!?)\"") {
		sep = "\n"
	}
	out := make([]string, 0, len(paras)-1)
	out = append(out, paras[:i]...)
	out = append(out, paras[i]+sep+paras[i+1])
	return append(out, paras[i+2:]...)
}
