package rules

import (
	"strings"

	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// InputNamingConvention is a style warning for input names that are not
// snake_case — spec.md §4.6 rule 6.
type InputNamingConvention struct{}

func (InputNamingConvention) Name() string { return "InputNamingConvention" }

func (InputNamingConvention) Description() string {
	return "warns when a declared input name is not snake_case"
}

func (InputNamingConvention) Check(ctx *validate.Context) []validate.Outcome {
	if ctx.ElementKind != "input" {
		return nil
	}
	if isSnakeCase(ctx.ElementName) {
		return nil
	}
	return []validate.Outcome{{
		Kind:     validate.OutcomeWarning,
		Category: diagnostic.CategoryStyle,
		Message:  "input name \"" + ctx.ElementName + "\" is not snake_case",
		Suggestion: &diagnostic.Suggestion{
			Message: "rename to " + toSnakeCase(ctx.ElementName),
		},
	}}
}

func isSnakeCase(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		if !isLower && !isDigit && r != '_' {
			return false
		}
	}
	return name[0] != '_' && name[len(name)-1] != '_'
}

func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		case r == '-' || r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
