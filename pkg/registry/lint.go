package registry

import (
	"fmt"
	"time"

	apperrors "petition-workers/internal/common/errors"
)

// Lint reports registry entries the workers cannot honour: missing fields,
// unparsable timeouts and error codes no worker can throw.
func (r *ActivityRegistry) Lint() []error {
	var errs []error
	if len(r.Activities) == 0 {
		return []error{fmt.Errorf("registry contains no activities")}
	}

	known := make(map[string]bool, len(apperrors.BPMNErrorMapping))
	for _, code := range apperrors.BPMNErrorMapping {
		known[code] = true
	}

	ids := make(map[string]bool)
	for _, a := range r.Activities {
		switch {
		case a.ID == "":
			errs = append(errs, fmt.Errorf("activity missing required field: ID"))
			continue
		case ids[a.ID]:
			errs = append(errs, fmt.Errorf("duplicate activity ID: %s", a.ID))
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			errs = append(errs, fmt.Errorf("activity %s missing required field: DisplayName", a.ID))
		}
		if a.TaskType == "" {
			errs = append(errs, fmt.Errorf("activity %s missing required field: TaskType", a.ID))
		}
		if a.Category == "" {
			errs = append(errs, fmt.Errorf("activity %s missing required field: Category", a.ID))
		}
		if a.Timeout != "" {
			if d, err := time.ParseDuration(a.Timeout); err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout))
			}
		}
		if a.Retries < 0 {
			errs = append(errs, fmt.Errorf("activity %s: negative retries", a.ID))
		}
		for _, code := range a.ErrorCodes {
			if !known[code] {
				errs = append(errs, fmt.Errorf("activity %s: unknown error code %s", a.ID, code))
			}
		}
	}
	return errs
}
