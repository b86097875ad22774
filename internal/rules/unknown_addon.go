package rules

import (
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// UnknownAddon errors on `addon "ns" {}` where ns is not in the registry,
// suggesting the closest known namespace by edit distance — spec.md §4.6
// rule 5.
type UnknownAddon struct{}

func (UnknownAddon) Name() string { return "UnknownAddon" }

func (UnknownAddon) Description() string {
	return "errors on an addon block whose namespace is not in the addon spec registry"
}

func (UnknownAddon) Check(ctx *validate.Context) []validate.Outcome {
	if ctx.ElementKind != "addon" || ctx.Registry == nil {
		return nil
	}
	if ctx.Registry.HasNamespace(ctx.ElementName) {
		return nil
	}
	o := validate.Outcome{
		Kind:     validate.OutcomeError,
		Category: diagnostic.CategoryAddon,
		Message:  "unknown addon namespace \"" + ctx.ElementName + "\"",
	}
	if s := ctx.Registry.SuggestNamespace(ctx.ElementName); s != "" {
		o.Suggestion = &diagnostic.Suggestion{
			Message: "did you mean \"" + s + "\"?",
			Example: "addon \"" + s + "\" {}",
		}
	}
	return []validate.Outcome{o}
}
