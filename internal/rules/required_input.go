package rules

import (
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// RequiredInput errors when an action's command spec marks an input
// required and it is provided neither as an attribute on the action block
// nor via the effective inputs map — spec.md §4.6 rule 3. A nil ctx.Manifest
// means the effective inputs map is empty regardless of what the runbook's
// environments would otherwise resolve, so this rule must wait for a loaded
// manifest rather than report every required input as missing.
type RequiredInput struct{}

func (RequiredInput) Name() string { return "RequiredInput" }

func (RequiredInput) Description() string {
	return "errors when an action omits an input its command spec marks required"
}

func (RequiredInput) Check(ctx *validate.Context) []validate.Outcome {
	if ctx.ElementKind != "action" || ctx.Registry == nil || ctx.Manifest == nil {
		return nil
	}
	def, ok := ctx.State.Actions[ctx.ElementName]
	if !ok {
		return nil
	}
	spec, ok := ctx.Registry.LookupAction(def.Namespace, def.Action)
	if !ok {
		return nil
	}

	provided := make(map[string]bool)
	for _, a := range ctx.State.Attributes {
		if a.BlockKind == "action" && a.BlockName == ctx.ElementName {
			provided[a.AttrName] = true
		}
	}

	var outcomes []validate.Outcome
	for _, name := range spec.RequiredInputs() {
		if provided[name] {
			continue
		}
		if _, ok := ctx.Effective[name]; ok {
			continue
		}
		outcomes = append(outcomes, validate.Outcome{
			Kind:     validate.OutcomeError,
			Category: diagnostic.CategoryInput,
			Message:  "action \"" + ctx.ElementName + "\" is missing required input \"" + name + "\"",
		})
	}
	return outcomes
}
