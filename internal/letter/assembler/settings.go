package assembler

import (
	"petition-workers/internal/common/config"
	"petition-workers/internal/letter/compliance"
	"petition-workers/internal/letter/layout"
	"petition-workers/internal/letter/sizing"
	"petition-workers/internal/models"
)

// Settings is the immutable calibration of one assembler. Build it once and
// share it; nothing in the pipeline mutates it.
type Settings struct {
	DocumentType string
	Compliance   compliance.Options
	Limits       map[models.SectionName]sizing.Limits
	MaxTotal     int
	Reducible    []models.SectionName
	Layout       layout.Config
}

// DefaultSettings is a cover letter with the built-in limits.
func DefaultSettings() Settings {
	limits := make(map[models.SectionName]sizing.Limits, len(sizing.DefaultLimits))
	for k, v := range sizing.DefaultLimits {
		limits[k] = v
	}
	return Settings{
		DocumentType: compliance.DocumentCoverLetter,
		Compliance: compliance.Options{
			RequiredVoice:       compliance.VoiceFor(compliance.DocumentCoverLetter),
			ContradictionWindow: compliance.DefaultContradictionWindow,
		},
		Limits:    limits,
		MaxTotal:  sizing.DefaultMaxTotalWords,
		Reducible: append([]models.SectionName(nil), sizing.DefaultReducible...),
		Layout:    layout.DefaultConfig(),
	}
}

// SettingsFromConfig converts the validated letter block. The voice follows
// the document type unless required_voice overrides it.
func SettingsFromConfig(c config.LetterConfig) Settings {
	s := DefaultSettings()
	if c.DocumentType != "" {
		s.DocumentType = c.DocumentType
	}
	s.Compliance.RequiredVoice = compliance.VoiceFor(s.DocumentType)
	if c.RequiredVoice != "" {
		s.Compliance.RequiredVoice = c.RequiredVoice
	}
	if c.ContradictionWindow > 0 {
		s.Compliance.ContradictionWindow = c.ContradictionWindow
	}
	if c.MaxTotalWords > 0 {
		s.MaxTotal = c.MaxTotalWords
	}
	if len(c.ReducibleSections) > 0 {
		s.Reducible = s.Reducible[:0]
		for _, name := range c.ReducibleSections {
			s.Reducible = append(s.Reducible, models.SectionName(name))
		}
	}
	for name, lim := range c.Sections {
		s.Limits[models.SectionName(name)] = sizing.Limits{Min: lim.Min, Max: lim.Max}
	}
	if c.Layout.AvgWordsPerLine > 0 {
		s.Layout = layout.Config(c.Layout)
	}
	return s
}

func (s Settings) engine() *sizing.Engine {
	return &sizing.Engine{Limits: s.Limits, MaxTotalWords: s.MaxTotal, Reducible: s.Reducible}
}

// wordLimits is the per-section maximum handed to the generator.
func (s Settings) wordLimits(requested []models.SectionName) map[string]int {
	out := make(map[string]int, len(requested))
	for _, name := range requested {
		if lim, ok := s.Limits[name]; ok && lim.Max > 0 {
			out[string(name)] = lim.Max
		}
	}
	return out
}
