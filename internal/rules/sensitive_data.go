package rules

import (
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// SensitiveData warns when an attribute name suggests it holds a secret
// (contains "key", "secret", "private", or "token") and its value looks
// like a literal rather than an indirection ($var, vault(...), env.X) —
// spec.md §4.6 rule 4. The key-matcher and masking are shared with the
// LSP hover path via internal/addon, so the two never drift apart.
type SensitiveData struct{}

func (SensitiveData) Name() string { return "SensitiveData" }

func (SensitiveData) Description() string {
	return "warns when an attribute that looks like a secret appears to hold a literal value"
}

func (SensitiveData) Check(ctx *validate.Context) []validate.Outcome {
	var outcomes []validate.Outcome
	for _, a := range ctx.State.Attributes {
		if a.BlockName != ctx.ElementName || a.BlockKind != ctx.ElementKind {
			continue
		}
		if !a.IsLiteral || !addon.LooksSensitive(a.AttrName) || !addon.LooksLikeLiteralSecret(a.Literal) {
			continue
		}
		sp := a.Span
		outcomes = append(outcomes, validate.Outcome{
			Kind:     validate.OutcomeWarning,
			Category: diagnostic.CategorySecurity,
			Message:  "\"" + a.AttrName + "\" looks like a literal secret (" + addon.MaskSensitiveValue(a.Literal) + ")",
			Span:     &sp,
			Suggestion: &diagnostic.Suggestion{
				Message: "reference a vault or environment variable instead of a literal value",
			},
		})
	}
	return outcomes
}
