package assembler

import (
	"strings"

	"petition-workers/internal/letter/compliance"
	"petition-workers/internal/letter/exhibits"
	"petition-workers/internal/models"
)

const (
	salutation = "Dear Officer:"
	closing    = "Respectfully submitted,"
)

// Render concatenates the sections in letter order between the boilerplate
// header and footer. The exhibit index lists only exhibits that are both
// available and cited in the body.
func Render(app *models.Application, sections models.Sections, available []models.Exhibit, documentType string) string {
	var b strings.Builder

	name := app.ApplicantName()
	b.WriteString("RE: Application for Change of Nonimmigrant Status to " + visaType(app) + "\n")
	if name != "" {
		b.WriteString("Applicant: " + name + "\n")
	}
	b.WriteString("\n" + salutation + "\n\n")

	body := sections.Joined()
	b.WriteString(body)
	b.WriteString("\n\n" + closing + "\n\n")
	b.WriteString(signature(name, documentType))
	b.WriteString("\n")

	if index := ExhibitIndex(body, available); len(index) > 0 {
		b.WriteString("\nExhibit Index\n")
		for _, e := range index {
			b.WriteString("Exhibit " + e.Letter + ": " + e.Description + "\n")
		}
	}
	return b.String()
}

func signature(name, documentType string) string {
	if documentType == compliance.DocumentAttorneyLetter {
		if name == "" {
			return "Counsel for the Applicant"
		}
		return "Counsel for " + name
	}
	if name == "" {
		return "The Applicant"
	}
	return name
}

// ExhibitIndex returns the available exhibits cited in body, in letter order.
func ExhibitIndex(body string, available []models.Exhibit) []models.Exhibit {
	cited := exhibits.ReferencedIn(body)
	var out []models.Exhibit
	for _, e := range available {
		if cited[e.Letter] {
			out = append(out, e)
		}
	}
	return out
}
