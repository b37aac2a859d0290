package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/envgridgo/internal/ctxlog"
)

// requiredKinds is every step kind the planner can emit. The registry must
// carry a handler for each before a run starts.
var requiredKinds = []StepKind{KindInstall, KindCommand, KindLint}

// Validate performs a strict parity check between the step kinds the planner
// emits and the handlers registered in code.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var errs []string
	for _, kind := range requiredKinds {
		if _, ok := r.handlers[kind]; !ok {
			errs = append(errs, fmt.Sprintf("no handler registered for step kind %q", kind))
		}
	}
	for kind := range r.handlers {
		known := false
		for _, req := range requiredKinds {
			if kind == req {
				known = true
				break
			}
		}
		if !known {
			errs = append(errs, fmt.Sprintf("handler registered for unknown step kind %q", kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "kinds", len(r.handlers))
	return nil
}
