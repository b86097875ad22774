package rules

import (
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// DeprecatedInput warns when a referenced input is marked deprecated by
// the manifest — spec.md §4.6 rule 2. The manifest's own format may have
// no way to mark a key deprecated (a leading "#deprecated" YAML comment is
// one option spec.md calls out and explicitly permits implementers to
// skip); when ctx.Manifest is nil or reports nothing deprecated, this rule
// simply never fires.
type DeprecatedInput struct{}

func (DeprecatedInput) Name() string { return "DeprecatedInput" }

func (DeprecatedInput) Description() string {
	return "warns when a used input is marked deprecated in the manifest"
}

func (DeprecatedInput) Check(ctx *validate.Context) []validate.Outcome {
	if ctx.ElementKind != "input_ref" || ctx.Manifest == nil {
		return nil
	}
	deprecated := ctx.Manifest.DeprecatedInputs()
	if deprecated == nil || !deprecated[ctx.ElementName] {
		return nil
	}
	return []validate.Outcome{{
		Kind:     validate.OutcomeWarning,
		Category: diagnostic.CategoryInput,
		Message:  "input \"" + ctx.ElementName + "\" is deprecated",
	}}
}
