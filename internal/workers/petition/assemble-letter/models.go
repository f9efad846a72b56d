// internal/workers/petition/assemble-letter/models.go
package assembleletter

import "petition-workers/internal/models"

// Input carries the application and, optionally, sections generated
// upstream. Without sections the assembler calls the generator.
type Input struct {
	Application models.Application `json:"application"`
	Sections    map[string]string  `json:"sections,omitempty"`
}

type Output struct {
	Document string          `json:"document,omitempty"`
	Final    bool            `json:"final"`
	Sections models.Sections `json:"sections,omitempty"`
	Report   models.Report   `json:"report"`
	// BlockingCode names why the letter was not finalized.
	BlockingCode string `json:"blockingCode,omitempty"`
}
