// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"petition-workers/internal/common/validation"
)

//go:embed activities.json
var embeddedRegistry []byte

// ErrMalformedVariables is returned when job variables are not a JSON document.
var ErrMalformedVariables = errors.New("job variables are not valid JSON")

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(embeddedRegistry)
	})
	return defaultReg, defaultErr
}

// LoadRegistry reads a registry file from disk.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a registry and compiles every input schema.
func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	reg.byTaskType = make(map[string]*Activity, len(reg.Activities))
	reg.schemas = make(map[string]*validation.Schema, len(reg.Activities))
	for i := range reg.Activities {
		a := &reg.Activities[i]
		if _, dup := reg.byTaskType[a.TaskType]; dup {
			return nil, fmt.Errorf("duplicate task type %q", a.TaskType)
		}
		reg.byTaskType[a.TaskType] = a
		if len(a.InputSchema) == 0 {
			continue
		}
		s, err := validation.Compile(a.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		reg.schemas[a.TaskType] = s
	}
	return &reg, nil
}

// Activity looks up an activity by task type.
func (r *ActivityRegistry) Activity(taskType string) (*Activity, bool) {
	a, ok := r.byTaskType[taskType]
	return a, ok
}

// ValidateInput checks raw job variables against the activity's input
// schema. Activities without a schema accept any JSON document.
func (r *ActivityRegistry) ValidateInput(taskType string, variables []byte) (*validation.ValidationResult, error) {
	if _, ok := r.byTaskType[taskType]; !ok {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}
	if !json.Valid(variables) {
		return nil, ErrMalformedVariables
	}
	s, ok := r.schemas[taskType]
	if !ok {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return s.ValidateJSON(variables)
}
