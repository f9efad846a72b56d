package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/validation"
	"petition-workers/internal/models"
)

// OutputSchema is the JSON schema generated output must satisfy for the
// requested sections. Optional sections may be omitted.
func OutputSchema(requested []models.SectionName) map[string]interface{} {
	props := map[string]interface{}{}
	required := []interface{}{}
	for _, name := range requested {
		props[string(name)] = map[string]interface{}{"type": "string"}
		if !name.Optional() {
			required = append(required, string(name))
		}
	}
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"sections"},
		"properties": map[string]interface{}{
			"sections": map[string]interface{}{
				"type":                 "object",
				"required":             required,
				"properties":           props,
				"additionalProperties": false,
			},
		},
	}
}

type output struct {
	Sections map[string]string `json:"sections"`
}

// ParseSections extracts and shape-checks a section bundle from raw model
// output. Markdown code fences and text around the JSON object are ignored.
func ParseSections(raw string, requested []models.SectionName) (models.Sections, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, apperrors.NewGenerationOutputInvalidError("no JSON object in response")
	}

	schema, err := validation.Compile(OutputSchema(requested))
	if err != nil {
		return nil, err
	}
	res, err := schema.ValidateJSON([]byte(body))
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, apperrors.NewGenerationOutputInvalidError(strings.Join(res.GetErrorMessages(), "; "))
	}

	var out output
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, apperrors.NewGenerationOutputInvalidError(fmt.Sprintf("decode: %v", err))
	}
	sections := models.Sections{}
	for name, text := range out.Sections {
		if text = strings.TrimSpace(text); text != "" {
			sections[models.SectionName(name)] = text
		}
	}
	var missing []models.SectionName
	for _, name := range requested {
		if !name.Optional() && sections.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewGenerationOutputInvalidError(fmt.Sprintf("empty required sections: %v", missing))
	}
	return sections, nil
}

func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}
