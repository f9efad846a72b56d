// internal/models/report.go
package models

// Exhibit is one evidence slot in the letter's exhibit index.
type Exhibit struct {
	Letter      string           `json:"letter"`
	Description string           `json:"description"`
	Category    DocumentCategory `json:"category,omitempty"`
}

// GenerationContext is the structured bundle handed to the text-generation
// collaborator. It is rebuilt from the application on every attempt.
type GenerationContext struct {
	ApplicantName    string            `json:"applicantName"`
	VisaType         string            `json:"visaType"`
	DocumentType     string            `json:"documentType"`
	RequiredVoice    string            `json:"requiredVoice"`
	Facts            map[string]string `json:"facts"`
	FinancialSummary string            `json:"financialSummary"`
	Exhibits         []Exhibit         `json:"exhibits"`
	SuppressedTopics []string          `json:"suppressedTopics,omitempty"`
	Directives       []string          `json:"directives,omitempty"`
	Sections         []SectionName     `json:"sections"`
	WordLimits       map[string]int    `json:"wordLimits,omitempty"`
}

// Severity classifies a finding as blocking or advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single rule hit.
type Finding struct {
	RuleID   string      `json:"ruleId"`
	Category string      `json:"category"`
	Severity Severity    `json:"severity"`
	Section  SectionName `json:"section,omitempty"`
	Match    string      `json:"match,omitempty"`
	Message  string      `json:"message"`
}

// RuleCheckResult is the compliance verdict. Passed is true iff Errors is empty.
type RuleCheckResult struct {
	Passed   bool      `json:"passed"`
	Errors   []string  `json:"errors"`
	Warnings []string  `json:"warnings"`
	Findings []Finding `json:"findings,omitempty"`
}

// LayoutIssue is one structural layout violation.
type LayoutIssue struct {
	Type      string      `json:"type"`
	Section   SectionName `json:"section,omitempty"`
	Paragraph int         `json:"paragraph,omitempty"`
	Value     float64     `json:"value"`
	Limit     float64     `json:"limit"`
}

type LayoutValidationResult struct {
	IsValid        bool          `json:"isValid"`
	EstimatedPages float64       `json:"estimatedPages"`
	TotalWords     int           `json:"totalWords"`
	ParagraphCount int           `json:"paragraphCount"`
	Issues         []LayoutIssue `json:"issues"`
}

// SizingRecord records what the sizing engine did to one section.
type SizingRecord struct {
	Section     SectionName `json:"section"`
	Action      string      `json:"action"`
	WordsBefore int         `json:"wordsBefore"`
	WordsAfter  int         `json:"wordsAfter"`
	OverMax     bool        `json:"overMax,omitempty"`
}

// Report is the structured outcome consumed by downstream review tooling.
type Report struct {
	RunID         string         `json:"runId"`
	Errors        []string       `json:"errors"`
	Warnings      []string       `json:"warnings"`
	LayoutIssues  []LayoutIssue  `json:"layoutIssues"`
	SizingActions []SizingRecord `json:"sizingActions,omitempty"`
	Findings      []Finding      `json:"findings,omitempty"`
}
