package rules

import (
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// InputDefined errors on every input.X / env.X reference whose name is
// absent from the effective inputs map — spec.md §4.6 rule 1. It is the
// rule-set's responsibility, not the two-pass engine's, because "defined"
// depends on the manifest's effective environment, a concern layered on
// top of pure AST structure. When ctx.Manifest is nil (no manifest found,
// or it failed to load), the engine has already emitted the info-level
// "syntax-only mode" note — spec.md §4.9 — so this rule must not also flood
// the file with an "undefined input" error per reference.
type InputDefined struct{}

func (InputDefined) Name() string { return "InputDefined" }

func (InputDefined) Description() string {
	return "errors when a referenced input is not present in the effective inputs for the active environment"
}

func (InputDefined) Check(ctx *validate.Context) []validate.Outcome {
	if ctx.ElementKind != "input_ref" || ctx.Manifest == nil {
		return nil
	}
	if _, ok := ctx.Effective[ctx.ElementName]; ok {
		return nil
	}
	env := ctx.EnvName
	if env == "" {
		env = "global"
	}
	return []validate.Outcome{{
		Kind:     validate.OutcomeError,
		Category: diagnostic.CategoryInput,
		Message:  "undefined input \"" + ctx.ElementName + "\"",
		Suggestion: &diagnostic.Suggestion{
			Message: "add \"" + ctx.ElementName + "\" to the \"" + env + "\" environment in the manifest",
		},
	}}
}
