// internal/workers/petition/check-compliance/models.go
package checkcompliance

import "petition-workers/internal/models"

type Input struct {
	Application  models.Application `json:"application"`
	Sections     map[string]string  `json:"sections"`
	DocumentType string             `json:"documentType,omitempty"`
}

type Output struct {
	models.RuleCheckResult
	Decision string `json:"fundingDecision"`
}
