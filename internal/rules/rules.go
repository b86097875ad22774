// Package rules implements the built-in validate.Rule set: concrete
// input-validation and style checks layered on top of the two-pass
// engine's collected State. Each rule is small, stateless, and registered
// in a fixed order, mirroring the teacher's Provider-per-step-type idiom
// (pkg/providers/provider.go) — many narrow implementations of one strict
// interface rather than one large switch.
package rules

import "github.com/txtx-tools/doctor/internal/validate"

// Default returns the built-in rule set in the order diagnostics should be
// produced for a given element: input-validation rules first, then
// addon/style rules, then the best-effort circular-dependency check.
func Default() []validate.Rule {
	return []validate.Rule{
		InputDefined{},
		DeprecatedInput{},
		RequiredInput{},
		SensitiveData{},
		UnknownAddon{},
		InputNamingConvention{},
		UnusedVariable{},
		CircularDependency{},
	}
}
