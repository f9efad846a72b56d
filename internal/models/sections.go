// internal/models/sections.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SectionName string

const (
	SectionIntroduction   SectionName = "introduction"
	SectionLegalBasis     SectionName = "legal_basis"
	SectionEntryStatus    SectionName = "entry_status"
	SectionChangeOfIntent SectionName = "change_of_intent"
	SectionPurpose        SectionName = "purpose_of_study"
	SectionFinancial      SectionName = "financial_ability"
	SectionTies           SectionName = "ties_to_home"
	SectionConclusion     SectionName = "conclusion"
)

// SectionOrder is the fixed order sections appear in the final letter.
var SectionOrder = []SectionName{
	SectionIntroduction,
	SectionLegalBasis,
	SectionEntryStatus,
	SectionChangeOfIntent,
	SectionPurpose,
	SectionFinancial,
	SectionTies,
	SectionConclusion,
}

var optionalSections = map[SectionName]bool{
	SectionLegalBasis:     true,
	SectionChangeOfIntent: true,
}

func (s SectionName) Optional() bool { return optionalSections[s] }

func (s SectionName) Known() bool {
	for _, n := range SectionOrder {
		if n == s {
			return true
		}
	}
	return false
}

// Sections is the named paragraph bundle returned by the text-generation
// collaborator. Values are prose; a blank line separates paragraphs.
type Sections map[SectionName]string

// Get returns the trimmed text of a section.
func (s Sections) Get(name SectionName) string {
	return strings.TrimSpace(s[name])
}

// Populated returns the non-empty sections in letter order.
func (s Sections) Populated() []SectionName {
	var out []SectionName
	for _, n := range SectionOrder {
		if s.Get(n) != "" {
			out = append(out, n)
		}
	}
	return out
}

// MissingRequired returns required sections that are empty.
func (s Sections) MissingRequired() []SectionName {
	var out []SectionName
	for _, n := range SectionOrder {
		if !n.Optional() && s.Get(n) == "" {
			out = append(out, n)
		}
	}
	return out
}

// Joined concatenates populated sections in order, separated by blank lines.
func (s Sections) Joined() string {
	parts := make([]string, 0, len(s))
	for _, n := range s.Populated() {
		parts = append(parts, s.Get(n))
	}
	return strings.Join(parts, "\n\n")
}

// ParseSections converts a raw name → text map, rejecting names the letter
// does not have. A nil map yields nil Sections.
func ParseSections(raw map[string]string) (Sections, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(Sections, len(raw))
	for k, v := range raw {
		name := SectionName(k)
		if !name.Known() {
			return nil, fmt.Errorf("unknown section %q", k)
		}
		out[name] = v
	}
	return out, nil
}

// Clone returns an independent copy.
func (s Sections) Clone() Sections {
	out := make(Sections, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// MarshalJSON emits keys in the canonical letter order.
func (s Sections) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, n := range SectionOrder {
		v, ok := s[n]
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(string(n))
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// Paragraphs splits section text on blank lines.
func Paragraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
