// internal/workers/petition/reconcile-finances/models.go
package reconcilefinances

import (
	"petition-workers/internal/letter/finance"
	"petition-workers/internal/models"
)

type Input struct {
	Application models.Application `json:"application"`
}

type Output struct {
	Calculation finance.Calculation   `json:"calculation"`
	Required    finance.RequiredFunds `json:"required"`
	Decision    finance.Decision      `json:"decision"`
	Summary     string                `json:"summary"`
	Sufficient  bool                  `json:"sufficient"`
}
