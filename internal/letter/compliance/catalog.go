package compliance

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"petition-workers/internal/models"
)

//go:embed rules.yaml
var defaultCatalog []byte

type Kind string

const (
	KindForbidden   Kind = "forbidden"
	KindRequiredAny Kind = "required_any"
)

// ScopeAll applies a rule to every populated section.
const ScopeAll = "all"

// Rule is one entry of the term → category → severity table.
type Rule struct {
	ID         string          `yaml:"id"`
	Category   string          `yaml:"category"`
	Kind       Kind            `yaml:"kind"`
	Severity   models.Severity `yaml:"severity"`
	Scope      string          `yaml:"scope"`
	Priority   int             `yaml:"priority"`
	Message    string          `yaml:"message"`
	Suggestion string          `yaml:"suggestion"`
	Terms      []string        `yaml:"terms"`
	Patterns   []string        `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// Catalog is the compiled, priority-ordered rule table.
type Catalog struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultCatalog loads the embedded rule table.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalog)
}

// MustDefaultCatalog panics if the embedded table is malformed.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog parses and compiles a YAML rule table.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule catalog: %w", err)
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	sort.SliceStable(c.Rules, func(i, j int) bool {
		return c.Rules[i].Priority > c.Rules[j].Priority
	})
	return &c, nil
}

func (c *Catalog) compile() error {
	seen := map[string]bool{}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.ID == "" {
			return fmt.Errorf("rule %d has no id", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %s", r.ID)
		}
		seen[r.ID] = true

		switch r.Kind {
		case KindForbidden, KindRequiredAny:
		default:
			return fmt.Errorf("rule %s: invalid kind %q", r.ID, r.Kind)
		}
		switch r.Severity {
		case models.SeverityError, models.SeverityWarning:
		default:
			return fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
		}
		if r.Scope == "" {
			r.Scope = ScopeAll
		}
		if r.Scope != ScopeAll && !models.SectionName(r.Scope).Known() {
			return fmt.Errorf("rule %s: unknown scope %q", r.ID, r.Scope)
		}

		r.compiled = r.compiled[:0]
		for _, term := range r.Terms {
			expr := `(?i)\b` + strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(term)), " ", `\s+`) + `\b`
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("rule %s: failed to compile term %q: %w", r.ID, term, err)
			}
			r.compiled = append(r.compiled, re)
		}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return fmt.Errorf("rule %s: failed to compile pattern %q: %w", r.ID, p, err)
			}
			r.compiled = append(r.compiled, re)
		}
		if len(r.compiled) == 0 {
			return fmt.Errorf("rule %s has no terms or patterns", r.ID)
		}
	}
	return nil
}

// Rule returns the rule with the given id.
func (c *Catalog) Rule(id string) (Rule, bool) {
	for _, r := range c.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Applies reports whether the rule covers the section.
func (r Rule) Applies(section models.SectionName) bool {
	return r.Scope == ScopeAll || models.SectionName(r.Scope) == section
}

// Matches returns every distinct matched phrase in text.
func (r Rule) Matches(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, re := range r.compiled {
		for _, m := range re.FindAllString(text, -1) {
			key := strings.ToLower(m)
			if !seen[key] {
				seen[key] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Scan applies the catalog to each populated section.
func (c *Catalog) Scan(sections models.Sections) []models.Finding {
	var findings []models.Finding
	for _, r := range c.Rules {
		for _, name := range sections.Populated() {
			if !r.Applies(name) {
				continue
			}
			text := sections.Get(name)
			matches := r.Matches(text)
			switch r.Kind {
			case KindForbidden:
				for _, m := range matches {
					findings = append(findings, models.Finding{
						RuleID:   r.ID,
						Category: r.Category,
						Severity: r.Severity,
						Section:  name,
						Match:    m,
						Message:  r.message(),
					})
				}
			case KindRequiredAny:
				if len(matches) == 0 {
					findings = append(findings, models.Finding{
						RuleID:   r.ID,
						Category: r.Category,
						Severity: r.Severity,
						Section:  name,
						Message:  r.message(),
					})
				}
			}
		}
	}
	return findings
}

func (r Rule) message() string {
	if r.Suggestion != "" && !strings.Contains(r.Message, r.Suggestion) {
		return fmt.Sprintf("%s (use %q)", r.Message, r.Suggestion)
	}
	return r.Message
}
