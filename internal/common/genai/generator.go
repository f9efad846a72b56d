package genai

import (
	"context"
	"fmt"
	"time"

	"petition-workers/internal/common/config"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/models"
)

// SectionGenerator asks a Completer for the requested sections and
// shape-checks the answer.
type SectionGenerator struct {
	completer Completer
	logger    logger.Logger
	timeout   time.Duration
}

func NewSectionGenerator(c Completer, log logger.Logger) *SectionGenerator {
	return &SectionGenerator{completer: c, logger: log.Named("genai")}
}

// WithTimeout bounds each completion call. Zero leaves the caller's deadline.
func (g *SectionGenerator) WithTimeout(d time.Duration) *SectionGenerator {
	g.timeout = d
	return g
}

func (g *SectionGenerator) Generate(ctx context.Context, gc models.GenerationContext) (models.Sections, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	system, user := BuildPrompt(gc)
	raw, err := g.completer.Complete(ctx, system, user, contextJSON(gc))
	if err != nil {
		g.logger.WithError(err).Warn("generation call failed", nil)
		return nil, err
	}
	sections, err := ParseSections(raw, gc.Sections)
	if err != nil {
		g.logger.WithError(err).Warn("generated output rejected", map[string]interface{}{"length": len(raw)})
		return nil, err
	}
	g.logger.Debug("sections generated", map[string]interface{}{"sections": len(sections)})
	return sections, nil
}

// NewCompleter builds the configured Completer.
func NewCompleter(cfg config.GenAIConfig) (Completer, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	case "http", "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("apis.genai.base_url is required for the http provider")
		}
		return NewHTTPClient(HTTPConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			MaxRetries:  cfg.MaxRetries,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unknown genai provider %q", cfg.Provider)
	}
}
