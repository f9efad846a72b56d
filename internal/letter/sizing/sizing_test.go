package sizing

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petition-workers/internal/models"
)

// sentence returns a sentence of exactly n words.
func sentence(n int, tag string) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", tag, i)
	}
	return strings.Join(words, " ") + "."
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple",
			text: "I entered in 2023. I enrolled later! Did I?",
			want: []string{"I entered in 2023.", "I enrolled later!", "Did I?"},
		},
		{
			name: "abbreviations",
			text: "I arrived in the U.S. in May. Mr. Lima, e.g. my uncle, is my sponsor.",
			want: []string{"I arrived in the U.S. in May.", "Mr. Lima, e.g. my uncle, is my sponsor."},
		},
		{
			name: "initials and exhibit letters",
			text: "My sponsor is Roberto A. Lima (Exhibit D). See Exhibit A. It confirms entry.",
			want: []string{"My sponsor is Roberto A. Lima (Exhibit D).", "See Exhibit A.", "It confirms entry."},
		},
		{
			name: "amounts are not boundaries",
			text: "My savings total USD $1,234.56 today. That is all.",
			want: []string{"My savings total USD $1,234.56 today.", "That is all."},
		},
		{
			name: "line breaks end sentences",
			text: "Tuition: USD $10,000\nLiving Expenses: USD $7,000",
			want: []string{"Tuition: USD $10,000", "Living Expenses: USD $7,000"},
		},
		{
			name: "closing quote",
			text: `The school wrote "admitted." I accepted.`,
			want: []string{`The school wrote "admitted."`, "I accepted."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sentences(tt.text))
		})
	}
}

func TestSizeSection(t *testing.T) {
	long := sentence(30, "a") + " " + sentence(30, "b") + " " + sentence(30, "c")

	tests := []struct {
		name   string
		text   string
		limits Limits
		action string
		words  int
	}{
		{name: "within limits", text: sentence(50, "a"), limits: Limits{Min: 40, Max: 60}, action: ActionOK, words: 50},
		{name: "under minimum is never inflated", text: sentence(10, "a"), limits: Limits{Min: 40, Max: 60}, action: ActionUnderMin, words: 10},
		{name: "compressed to whole sentences", text: long, limits: Limits{Min: 10, Max: 65}, action: ActionCompressed, words: 60},
		{name: "exact budget", text: long, limits: Limits{Min: 10, Max: 90}, action: ActionOK, words: 90},
		{name: "first sentence over budget", text: long, limits: Limits{Min: 5, Max: 20}, action: ActionUnfittable, words: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := SizeSection(tt.text, tt.limits)
			assert.Equal(t, tt.action, res.Action)
			assert.Equal(t, tt.words, res.WordsAfter)
			assert.Equal(t, tt.words, models.WordCount(res.Text))
			assert.True(t, strings.HasSuffix(res.Text, "."), "never cut mid-sentence")
		})
	}
}

func TestSizeSection_LoneSentenceOverBudget(t *testing.T) {
	long := sentence(30, "a") + " " + sentence(30, "b")
	limits := Limits{Min: 5, Max: 20}

	once := SizeSection(long, limits)
	require.Equal(t, ActionUnfittable, once.Action)
	assert.True(t, once.OverMax)
	assert.Equal(t, sentence(30, "a"), once.Text)

	twice := SizeSection(once.Text, limits)
	assert.Equal(t, ActionOK, twice.Action)
	assert.True(t, twice.OverMax)
	assert.Equal(t, once.Text, twice.Text)
	assert.Equal(t, 30, twice.WordsAfter)

	within := SizeSection(sentence(10, "c"), limits)
	assert.False(t, within.OverMax)
}

func TestSizeSection_UnderMinReturnsTextUnchanged(t *testing.T) {
	text := "Short.\n\nStill short."
	res := SizeSection(text, Limits{Min: 50, Max: 100})
	assert.Equal(t, text, res.Text)
}

func TestCompress_KeepsParagraphs(t *testing.T) {
	text := sentence(10, "a") + " " + sentence(10, "b") + "\n\n" + sentence(10, "c") + " " + sentence(10, "d")

	out, fits := Compress(text, 35)

	require.True(t, fits)
	assert.Equal(t, sentence(10, "a")+" "+sentence(10, "b")+"\n\n"+sentence(10, "c"), out)
}

func TestCompress_KeepsSummaryLines(t *testing.T) {
	text := "Tuition: USD $10,000\nLiving Expenses: USD $7,000\nTotal Required: USD $17,000\n" + sentence(40, "x")

	out, fits := Compress(text, 12)

	require.True(t, fits)
	assert.Equal(t, "Tuition: USD $10,000\nLiving Expenses: USD $7,000\nTotal Required: USD $17,000", out)
}

func TestSizeSection_FixedPointAfterOnePass(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var paragraphs []string
		for p := 0; p < 1+rng.Intn(4); p++ {
			var sentences []string
			for s := 0; s < 1+rng.Intn(6); s++ {
				sentences = append(sentences, sentence(3+rng.Intn(20), fmt.Sprintf("w%d_%d_", p, s)))
			}
			paragraphs = append(paragraphs, strings.Join(sentences, " "))
		}
		text := strings.Join(paragraphs, "\n\n")
		limits := Limits{Min: 20 + rng.Intn(40), Max: 25 + rng.Intn(150)}
		if limits.Max < limits.Min {
			limits.Max = limits.Min
		}

		once := SizeSection(text, limits)
		twice := SizeSection(once.Text, limits)
		assert.Contains(t, []string{ActionOK, ActionUnderMin}, twice.Action, "iteration %d", i)
		assert.Equal(t, once.Text, twice.Text, "iteration %d", i)
	}
}

func TestEnforceGlobalBudget(t *testing.T) {
	sections := models.Sections{
		models.SectionIntroduction: sentence(20, "i") + " " + sentence(20, "j") + " " + sentence(20, "k"),
		models.SectionFinancial:    sentence(50, "f"),
		models.SectionConclusion:   sentence(10, "c") + " " + sentence(10, "d"),
	}
	require.Equal(t, 130, TotalWords(sections))

	out, records := EnforceGlobalBudget(sections, 100, DefaultReducible)

	assert.LessOrEqual(t, TotalWords(out), 100)
	assert.Equal(t, sections.Get(models.SectionFinancial), out.Get(models.SectionFinancial), "financial section is never reduced")
	require.NotEmpty(t, records)
	for _, r := range records {
		assert.Equal(t, ActionGlobalBudget, r.Action)
		assert.Less(t, r.WordsAfter, r.WordsBefore)
	}
	// Original is not mutated.
	assert.Equal(t, 130, TotalWords(sections))
}

func TestEnforceGlobalBudget_WithinBudget(t *testing.T) {
	sections := models.Sections{models.SectionIntroduction: sentence(10, "a")}
	out, records := EnforceGlobalBudget(sections, 100, DefaultReducible)
	assert.Equal(t, sections, out)
	assert.Nil(t, records)
}

func TestEnforceGlobalBudget_NothingReducible(t *testing.T) {
	sections := models.Sections{
		models.SectionFinancial: sentence(80, "f"),
		models.SectionTies:      sentence(80, "t"),
	}
	out, records := EnforceGlobalBudget(sections, 100, DefaultReducible)
	assert.Equal(t, sections, out)
	assert.Empty(t, records)
}

func TestEngine_SizeAll(t *testing.T) {
	e := &Engine{
		Limits: map[models.SectionName]Limits{
			models.SectionIntroduction: {Min: 5, Max: 15},
			models.SectionConclusion:   {Min: 50, Max: 100},
		},
	}
	sections := models.Sections{
		models.SectionIntroduction: sentence(10, "a") + " " + sentence(10, "b"),
		models.SectionConclusion:   sentence(10, "c"),
	}

	out, records := e.SizeAll(sections)

	assert.Equal(t, sentence(10, "a"), out.Get(models.SectionIntroduction))
	assert.Equal(t, []models.SizingRecord{
		{Section: models.SectionIntroduction, Action: ActionCompressed, WordsBefore: 20, WordsAfter: 10},
		{Section: models.SectionConclusion, Action: ActionUnderMin, WordsBefore: 10, WordsAfter: 10},
	}, records)
}
