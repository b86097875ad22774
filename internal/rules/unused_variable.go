package rules

import (
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// UnusedVariable warns when a defined variable is never referenced —
// spec.md §4.6 rule 7.
type UnusedVariable struct{}

func (UnusedVariable) Name() string { return "UnusedVariable" }

func (UnusedVariable) Description() string {
	return "warns when a defined variable is never referenced"
}

func (UnusedVariable) Check(ctx *validate.Context) []validate.Outcome {
	if ctx.ElementKind != "variable" {
		return nil
	}
	if ctx.State.ReferencedVariables[ctx.ElementName] {
		return nil
	}
	return []validate.Outcome{{
		Kind:     validate.OutcomeWarning,
		Category: diagnostic.CategoryStyle,
		Message:  "variable \"" + ctx.ElementName + "\" is declared but never referenced",
	}}
}
