// internal/workers/petition/validate-dates/models.go
package validatedates

import (
	"petition-workers/internal/letter/dates"
	"petition-workers/internal/models"
)

// Input carries the raw dates. When an application is supplied, its
// authoritative records fill any date left empty.
type Input struct {
	dates.Input
	Application *models.Application `json:"application,omitempty"`
}

type Output struct {
	dates.Findings
	Valid bool `json:"valid"`
}
