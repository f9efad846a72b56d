// Package genai is the boundary to the external text-generation service.
// Everything it returns is re-validated by the letter pipeline.
package genai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"petition-workers/internal/models"
)

const systemPrompt = `You draft sections of an immigration petition letter from verified facts.
Use only the facts provided. Never state a conclusion about the applicant's legal status.
Cite evidence as "(Exhibit X)" using only the listed exhibit letters.
Reproduce the financial summary lines exactly as given, one per line.
Respond with a single JSON object and nothing else.`

// BuildPrompt renders the system and user messages for a context bundle.
func BuildPrompt(gc models.GenerationContext) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Document type: %s\n", gc.DocumentType)
	if gc.RequiredVoice != "" {
		fmt.Fprintf(&b, "Write in the %s person.\n", gc.RequiredVoice)
	}
	fmt.Fprintf(&b, "Applicant: %s\nRequested classification: %s\n", gc.ApplicantName, gc.VisaType)

	if len(gc.Facts) > 0 {
		b.WriteString("\nFacts:\n")
		keys := make([]string, 0, len(gc.Facts))
		for k := range gc.Facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, gc.Facts[k])
		}
	}

	if gc.FinancialSummary != "" {
		b.WriteString("\nFinancial summary (copy verbatim into financial_ability):\n")
		b.WriteString(gc.FinancialSummary)
		b.WriteString("\n")
	}

	if len(gc.Exhibits) > 0 {
		b.WriteString("\nExhibits:\n")
		for _, ex := range gc.Exhibits {
			fmt.Fprintf(&b, "- Exhibit %s: %s\n", ex.Letter, ex.Description)
		}
	}

	if len(gc.Directives) > 0 {
		b.WriteString("\nDirectives:\n")
		for _, d := range gc.Directives {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}

	b.WriteString("\nReturn JSON of the form {\"sections\": {\"<name>\": \"<text>\"}} with these sections")
	b.WriteString(" (separate paragraphs with a blank line):\n")
	for _, name := range gc.Sections {
		if limit, ok := gc.WordLimits[string(name)]; ok {
			fmt.Fprintf(&b, "- %s (at most %d words)\n", name, limit)
		} else {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}

	return systemPrompt, b.String()
}

// contextJSON is the stable encoding used for cache keys and HTTP payloads.
func contextJSON(gc models.GenerationContext) []byte {
	// Map keys are sorted by encoding/json, so the output is deterministic.
	raw, _ := json.Marshal(gc)
	return raw
}
